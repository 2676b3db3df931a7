package models

import "time"

// Tipos de alerta: por encima o por debajo del precio objetivo
const (
	AlertTypeAbove = "above"
	AlertTypeBelow = "below"
)

// Alert es una alerta de precio de un usuario. Se dispara una sola vez:
// al alcanzarse el umbral pasa a inactiva y guarda el precio que la disparó.
type Alert struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	CryptoSymbol   string     `json:"crypto_symbol"`
	TargetPrice    float64    `json:"target_price"`
	AlertType      string     `json:"alert_type"`
	IsActive       bool       `json:"is_active"`
	TriggeredAt    *time.Time `json:"triggered_at,omitempty"`
	TriggeredPrice float64    `json:"triggered_price,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type AlertCreateRequest struct {
	CryptoSymbol string  `json:"crypto_symbol" binding:"required"`
	TargetPrice  float64 `json:"target_price" binding:"required,gt=0"`
	AlertType    string  `json:"alert_type" binding:"required,oneof=above below"`
}

type AlertUpdateRequest struct {
	CryptoSymbol *string  `json:"crypto_symbol"`
	TargetPrice  *float64 `json:"target_price"`
	AlertType    *string  `json:"alert_type"`
	IsActive     *bool    `json:"is_active"`
}

// AlertStats resume el estado global de las alertas
type AlertStats struct {
	TotalAlerts     int    `json:"total_alerts"`
	ActiveAlerts    int    `json:"active_alerts"`
	TriggeredAlerts int    `json:"triggered_alerts"`
	InactiveAlerts  int    `json:"inactive_alerts"`
	LastTriggeredID string `json:"last_triggered_id,omitempty"`
}

// AlertCheckResult es el resumen de una pasada del verificador
type AlertCheckResult struct {
	CheckedAt        time.Time `json:"checked_at"`
	TotalActive      int       `json:"total_active_alerts"`
	AlertsChecked    int       `json:"alerts_checked"`
	AlertsTriggered  int       `json:"alerts_triggered"`
	AlertsSkipped    int       `json:"alerts_skipped"`
	TriggeredDetails []string  `json:"triggered_details,omitempty"`
	Errors           []string  `json:"errors,omitempty"`
}
