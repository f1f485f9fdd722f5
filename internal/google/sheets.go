// Package google mirrors bookings into the office Google Sheet. The sheet is
// a convenience copy for staff; sqlite stays the source of truth.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"wakepark/internal/models"
	"wakepark/internal/timezone"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const bookingsRange = "Bookings"

// ErrRowNotFound отдается, когда для номера брони нет строки в таблице.
var ErrRowNotFound = errors.New("booking row not found")

// SheetsService пишет брони в Google таблицу. Строки ищутся по номеру брони
// в колонке A, индекс кешируется.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	rowCache      map[string]int
	cacheMu       sync.RWMutex
}

func NewSheetsService(credentialsFile, spreadsheetID string) (*SheetsService, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	service := &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[string]int),
	}

	// Warm up cache in background
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = service.WarmUpCache(ctx)
	}()

	return service, nil
}

// TestConnection проверяет доступ к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsRange+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// WarmUpCache populates the row index cache by reading the reference column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsRange+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if reference, ok := row[0].(string); ok && reference != "" {
			s.rowCache[reference] = i + 1
		}
	}
	return nil
}

// AppendBooking добавляет новую бронь в конец листа
func (s *SheetsService) AppendBooking(ctx context.Context, booking *models.BookingWithSlots) error {
	if booking == nil {
		return fmt.Errorf("booking is nil")
	}

	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking, "active")},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, bookingsRange+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// UpsertBooking updates an existing booking row or appends a new one if not found.
func (s *SheetsService) UpsertBooking(ctx context.Context, booking *models.BookingWithSlots) error {
	if booking == nil {
		return fmt.Errorf("booking is nil")
	}

	rowIdx, err := s.FindBookingRow(ctx, booking.Reference)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return s.AppendBooking(ctx, booking)
		}
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:I%d", bookingsRange, rowIdx, rowIdx)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking, "active")},
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// UpdateBookingStatus updates status (and the updated-at column) for a row.
func (s *SheetsService) UpdateBookingStatus(ctx context.Context, reference string, status string) error {
	rowIdx, err := s.FindBookingRow(ctx, reference)
	if err != nil {
		return err
	}

	now := timezone.FormatLocal(time.Now(), "2006-01-02 15:04:05")

	statusRange := fmt.Sprintf("%s!H%d:H%d", bookingsRange, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, statusRange, &sheets.ValueRange{
		Values: [][]interface{}{{status}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return err
	}

	updatedRange := fmt.Sprintf("%s!I%d:I%d", bookingsRange, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, updatedRange, &sheets.ValueRange{
		Values: [][]interface{}{{now}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// FindBookingRow locates the row index (1-based) for a reference in column A.
func (s *SheetsService) FindBookingRow(ctx context.Context, reference string) (int, error) {
	if reference == "" {
		return 0, fmt.Errorf("booking reference is required")
	}

	if row, ok := s.getCachedRow(reference); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsRange+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if v, ok := row[0].(string); ok && v == reference {
			rowIdx := i + 1 // Values are zero-based; sheet rows are 1-based
			s.setCachedRow(reference, rowIdx)
			return rowIdx, nil
		}
	}

	return 0, ErrRowNotFound
}

func (s *SheetsService) getCachedRow(reference string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[reference]
	return row, ok
}

func (s *SheetsService) setCachedRow(reference string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[reference] = row
}

// ClearCache сбрасывает кеш строк.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
}

func bookingRowValues(booking *models.BookingWithSlots, status string) []interface{} {
	firstSlot := ""
	if len(booking.Slots) > 0 {
		firstSlot = timezone.FormatLocal(booking.Slots[0].StartTime, "2006-01-02 15:04")
	}
	return []interface{}{
		booking.Reference,
		booking.CustomerName,
		booking.Email,
		booking.Phone,
		firstSlot,
		len(booking.Slots),
		float64(booking.TotalCents()) / 100,
		status,
		timezone.FormatLocal(booking.UpdatedAt, "2006-01-02 15:04:05"),
	}
}
