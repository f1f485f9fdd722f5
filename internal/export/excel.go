// Package export builds xlsx workbooks for the admin back office.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wakepark/internal/models"
	"wakepark/internal/timezone"

	"github.com/xuri/excelize/v2"
)

const bookingsSheet = "Бронирования"

// BookingsWorkbook собирает Excel файл со списком бронирований. Caller владеет
// файлом и закрывает его.
func BookingsWorkbook(bookings []models.BookingWithSlots) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "Номер", "Имя", "Email", "Телефон", "Аренда",
		"Комментарий", "Сеансы", "Сумма, €", "Создано",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, header)
		_ = f.SetCellStyle(bookingsSheet, cell, cell, headerStyle)
	}

	for i, booking := range bookings {
		row := i + 2
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("A%d", row), booking.ID)
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("B%d", row), booking.Reference)
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("C%d", row), booking.CustomerName)
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("D%d", row), booking.Email)
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("E%d", row), booking.Phone)
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("F%d", row), boolToYesNo(booking.EquipmentRental))
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("G%d", row), booking.Comment)
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("H%d", row), formatSlots(booking.Slots))
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("I%d", row), float64(booking.TotalCents())/100)
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("J%d", row), timezone.FormatLocal(booking.CreatedAt, "02.01.2006 15:04"))
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 8)
	_ = f.SetColWidth(bookingsSheet, "B", "B", 14)
	_ = f.SetColWidth(bookingsSheet, "C", "C", 22)
	_ = f.SetColWidth(bookingsSheet, "D", "E", 20)
	_ = f.SetColWidth(bookingsSheet, "F", "F", 10)
	_ = f.SetColWidth(bookingsSheet, "G", "G", 30)
	_ = f.SetColWidth(bookingsSheet, "H", "H", 40)
	_ = f.SetColWidth(bookingsSheet, "I", "J", 16)

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

// SaveBookings пишет книгу на диск и возвращает путь к файлу.
func SaveBookings(bookings []models.BookingWithSlots, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f, err := BookingsWorkbook(bookings)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}
	return filePath, nil
}

// formatSlots сводит сеансы брони в одну ячейку, по строке на сеанс.
func formatSlots(slots []models.TimeSlot) string {
	out := ""
	for i, slot := range slots {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("%s - %s",
			timezone.FormatLocal(slot.StartTime, "02.01 15:04"),
			timezone.FormatLocal(slot.EndTime, "15:04"))
	}
	return out
}

func boolToYesNo(b bool) string {
	if b {
		return "Да"
	}
	return "Нет"
}
