package notify

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"wakepark/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func samplePayload() events.BookingEventPayload {
	return events.BookingEventPayload{
		BookingID:       7,
		Reference:       "WP-AB12CD34",
		CustomerName:    "Jānis",
		Phone:           "+37120000000",
		EquipmentRental: true,
		SlotCount:       2,
		FirstSlotStart:  time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC),
		TotalCents:      5000,
	}
}

func TestNotifierSendsOnBookingCreated(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTelegramNotifierWithSender(sender, 42, nil)

	bus := events.NewEventBus()
	notifier.SubscribeTo(bus)

	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, samplePayload()))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "Новая бронь")
	assert.Contains(t, msg.Text, "WP-AB12CD34")
	assert.Contains(t, msg.Text, "Jānis")
	// 12:00 UTC это 15:00 по Риге летом.
	assert.Contains(t, msg.Text, "20.06.2026 15:00")
	assert.Contains(t, msg.Text, "50.00 €")
	assert.Contains(t, msg.Text, "Аренда снаряжения: да")
}

func TestNotifierSendsOnBookingCancelled(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTelegramNotifierWithSender(sender, 42, nil)

	bus := events.NewEventBus()
	notifier.SubscribeTo(bus)

	require.NoError(t, bus.PublishJSON(events.EventBookingCancelled, samplePayload()))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "Бронь отменена")
}

func TestNotifierIgnoresUnrelatedEvents(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTelegramNotifierWithSender(sender, 42, nil)

	bus := events.NewEventBus()
	notifier.SubscribeTo(bus)

	require.NoError(t, bus.PublishJSON(events.EventSlotsRegenerated, events.RegenerationEventPayload{SlotsCreated: 10}))
	assert.Empty(t, sender.sent)
}

func TestNotifierHandlesBadPayload(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTelegramNotifierWithSender(sender, 42, nil)

	err := notifier.onBookingEvent(&events.Event{
		Type:    events.EventBookingCreated,
		Payload: []byte("{not json"),
	})
	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestNotifierReportsSendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram down")}
	notifier := NewTelegramNotifierWithSender(sender, 42, nil)

	err := notifier.onBookingEvent(&events.Event{
		Type:    events.EventBookingCreated,
		Payload: mustJSON(t, samplePayload()),
	})
	assert.Error(t, err)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
