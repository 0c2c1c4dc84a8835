// Package models содержит структуры данных, которыми обменивается Mini-App
// с внешним API подписок: тарифы, статус пользователя и результаты действий.
package models

// Tariff описывает статические тарифы, отображаемые пользователю.
type Tariff struct {
	Base     BaseTariff      `json:"base"`
	Extra    ExtraTariff     `json:"extra"`
	FreeMode *FreeModeTariff `json:"free_mode,omitempty"`
}

// BaseTariff — базовый тариф: объём, срок и цена.
type BaseTariff struct {
	GB    float64 `json:"gb" validate:"gte=0"`
	Days  int     `json:"days" validate:"gte=0"`
	Price float64 `json:"price" validate:"gte=0"`
}

// ExtraTariff — докупка дополнительного трафика.
type ExtraTariff struct {
	GB    float64 `json:"gb" validate:"gte=0"`
	Price float64 `json:"price" validate:"gte=0"`
}

// FreeModeTariff — параметры бесплатного (ограниченного по скорости) режима.
type FreeModeTariff struct {
	SpeedMbps float64 `json:"speed_mbps" validate:"gte=0"`
}
