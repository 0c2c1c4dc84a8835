package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Статусы подписки, которые возвращает API.
const (
	StatusActive   = "active"
	StatusExpired  = "expired"
	StatusLimited  = "limited"
	StatusDisabled = "disabled"
)

// UserStatus — текущее состояние подписки пользователя.
// LimitGB и ExpireDate равны nil, если лимит или срок не заданы.
type UserStatus struct {
	Username   string     `json:"username"`
	Status     string     `json:"status"`
	FreeMode   bool       `json:"free_mode"`
	UsedGB     float64    `json:"used_gb"`
	LimitGB    *float64   `json:"limit_gb"`
	ExpireDate *Timestamp `json:"expire_date"`
	TariffType string     `json:"tariff_type,omitempty"`
}

// CreateResult — ответ на создание VPN-ключа.
type CreateResult struct {
	Config     string   `json:"config"`
	Username   string   `json:"username,omitempty"`
	LimitGB    *float64 `json:"limit_gb,omitempty"`
	ExpireDays *int     `json:"expire_days,omitempty"`
}

// ConfigResult — ответ с конфигурацией подключения.
type ConfigResult struct {
	Config string `json:"config"`
}

// BuyExtraResult — ответ на покупку дополнительного трафика.
type BuyExtraResult struct {
	NewLimitGB *float64 `json:"new_limit_gb,omitempty"`
}

// FreeModeResult — ответ на включение бесплатного режима.
type FreeModeResult struct {
	Config     string     `json:"config"`
	ExpireDate *Timestamp `json:"expire_date,omitempty"`
}

// TelegramIDRequest — тело POST-запросов действий.
type TelegramIDRequest struct {
	TelegramID int64 `json:"telegram_id"`
}

// ErrorBody — тело ответа API с ошибкой.
type ErrorBody struct {
	Error string `json:"error"`
}

// timestampLayouts перечисляет форматы дат, которые встречаются в ответах API:
// RFC3339 и "наивный" ISO без часового пояса.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp — момент времени из JSON. Даты без часового пояса
// интерпретируются в локальной зоне процесса.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON разбирает строку даты в одном из поддерживаемых форматов.
// Нераспознанная дата оставляет нулевое время.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("models.Timestamp: %w", err)
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.ParseInLocation(layout, raw, time.Local)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	// дата в неизвестном формате считается отсутствующей
	t.Time = time.Time{}
	return nil
}

// MarshalJSON сериализует дату в RFC3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339))
}
