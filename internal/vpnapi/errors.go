package vpnapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound возвращается, когда API ответило 404 (например, у пользователя нет аккаунта).
var ErrNotFound = errors.New("not found")

// APIError — ответ API с кодом не из диапазона 2xx.
// Message содержит поле error из тела ответа, если его удалось разобрать.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("unexpected status: %d: %s", e.StatusCode, e.Message)
}

// Is позволяет проверять 404 через errors.Is(err, ErrNotFound).
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// ServerMessage возвращает сообщение сервера из err, если оно есть.
func ServerMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}
