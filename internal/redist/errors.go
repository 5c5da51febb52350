package redist

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSupplier — у пользователя нет кабинета с активным токеном.
	ErrNoSupplier = errors.New("no supplier with active token")

	// ErrNotFound — артикул или склад исчез между шагами мастера.
	ErrNotFound = errors.New("not found")

	// ErrExhausted — на складе-источнике ничего не осталось.
	ErrExhausted = errors.New("nothing available to move")

	// ErrUpstream — WB API недоступен или отвечает ошибками.
	ErrUpstream = errors.New("wb api unavailable")

	// ErrUnknownOutcome — отправка оборвалась по таймауту, результат неизвестен;
	// заявка сохранена и будет досведена фоновым поиском слота.
	ErrUnknownOutcome = errors.New("submit outcome unknown")
)

// InsufficientStockError — к моменту подтверждения доступно меньше, чем выбрано.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available", e.Available)
}
