package database

import "errors"

var (
	// ErrSlotUnavailable возвращается, когда слот уже занят или зарезервирован
	ErrSlotUnavailable = errors.New("time slot is not available")

	// ErrReservationExpired резервация истекла до подтверждения
	ErrReservationExpired = errors.New("reservation has expired")

	// ErrSlotNotReserved подтверждение пришло на слот без резервации
	ErrSlotNotReserved = errors.New("time slot is not reserved")

	// ErrBookingNotFound заявка не найдена
	ErrBookingNotFound = errors.New("booking not found")

	// ErrSlotNotFound слот не найден
	ErrSlotNotFound = errors.New("time slot not found")

	// ErrConfigNotFound настройка не найдена
	ErrConfigNotFound = errors.New("configuration value not found")
)
