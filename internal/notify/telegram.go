// Package notify pushes booking events to the operators' Telegram chat.
package notify

import (
	"encoding/json"
	"fmt"

	"wakepark/internal/config"
	"wakepark/internal/events"
	"wakepark/internal/timezone"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the slice of the Telegram API the notifier needs. tgbotapi.BotAPI
// satisfies it; tests substitute a fake.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier переводит события брони в сообщения операторам.
type TelegramNotifier struct {
	sender Sender
	chatID int64
	logger zerolog.Logger
}

func NewTelegramNotifier(cfg config.TelegramConfig, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug

	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "notify").Logger()
	}
	base.Info().Str("bot", bot.Self.UserName).Msg("telegram notifier authorized")

	return &TelegramNotifier{sender: bot, chatID: cfg.OperatorChatID, logger: base}, nil
}

// NewTelegramNotifierWithSender wires a custom sender, for tests.
func NewTelegramNotifierWithSender(sender Sender, chatID int64, logger *zerolog.Logger) *TelegramNotifier {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "notify").Logger()
	}
	return &TelegramNotifier{sender: sender, chatID: chatID, logger: base}
}

// SubscribeTo registers the notifier on the bus for booking lifecycle events.
func (n *TelegramNotifier) SubscribeTo(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.onBookingEvent)
	bus.Subscribe(events.EventBookingCancelled, n.onBookingEvent)
}

func (n *TelegramNotifier) onBookingEvent(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.logger.Error().Err(err).Str("event", event.Type).Msg("decode booking event")
		return err
	}

	text := n.formatBooking(event.Type, payload)
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.sender.Send(msg); err != nil {
		n.logger.Error().Err(err).Str("event", event.Type).Msg("send telegram notification")
		return err
	}
	return nil
}

func (n *TelegramNotifier) formatBooking(eventType string, p events.BookingEventPayload) string {
	header := "🆕 Новая бронь"
	if eventType == events.EventBookingCancelled {
		header = "❌ Бронь отменена"
	}

	rental := "нет"
	if p.EquipmentRental {
		rental = "да"
	}

	return fmt.Sprintf(
		"%s <b>%s</b>\n"+
			"Клиент: %s\n"+
			"Телефон: %s\n"+
			"Первый сеанс: %s\n"+
			"Сеансов: %d\n"+
			"Аренда снаряжения: %s\n"+
			"Сумма: %.2f €",
		header,
		p.Reference,
		p.CustomerName,
		p.Phone,
		timezone.FormatLocal(p.FirstSlotStart, "02.01.2006 15:04"),
		p.SlotCount,
		rental,
		float64(p.TotalCents)/100,
	)
}
