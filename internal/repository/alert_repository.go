package repository

import (
	"database/sql"
	"time"

	"github.com/cryptopulse/api/internal/models"
)

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// CreateAlert crea una alerta activa para un usuario
func (r *AlertRepository) CreateAlert(userID string, req *models.AlertCreateRequest) (*models.Alert, error) {
	alert := &models.Alert{
		ID:           models.GenerateUUID(),
		UserID:       userID,
		CryptoSymbol: models.CanonicalSymbol(req.CryptoSymbol),
		TargetPrice:  req.TargetPrice,
		AlertType:    req.AlertType,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	query := `
		INSERT INTO alerts (id, user_id, crypto_symbol, target_price, alert_type, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)`

	_, err := r.db.Exec(query,
		alert.ID,
		alert.UserID,
		alert.CryptoSymbol,
		alert.TargetPrice,
		alert.AlertType,
		alert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return alert, nil
}

func scanAlert(row interface{ Scan(...any) error }) (*models.Alert, error) {
	alert := &models.Alert{}
	var triggeredAt sql.NullTime
	err := row.Scan(
		&alert.ID,
		&alert.UserID,
		&alert.CryptoSymbol,
		&alert.TargetPrice,
		&alert.AlertType,
		&alert.IsActive,
		&triggeredAt,
		&alert.TriggeredPrice,
		&alert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if triggeredAt.Valid {
		alert.TriggeredAt = &triggeredAt.Time
	}
	return alert, nil
}

const alertColumns = `id, user_id, crypto_symbol, target_price, alert_type, is_active, triggered_at, triggered_price, created_at`

// GetAlert busca una alerta por ID
func (r *AlertRepository) GetAlert(alertID string) (*models.Alert, error) {
	alert, err := scanAlert(r.db.QueryRow(`SELECT `+alertColumns+` FROM alerts WHERE id = ?`, alertID))
	if err == sql.ErrNoRows {
		return nil, ErrAlertNotFound
	}
	return alert, err
}

// GetUserAlerts lista las alertas de un usuario con filtros opcionales
func (r *AlertRepository) GetUserAlerts(userID string, isActive *bool, symbol string) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = ?`
	args := []any{userID}

	if isActive != nil {
		query += ` AND is_active = ?`
		args = append(args, *isActive)
	}
	if symbol != "" {
		query += ` AND crypto_symbol = ?`
		args = append(args, models.CanonicalSymbol(symbol))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

// GetActiveAlerts devuelve todas las alertas activas del sistema,
// usadas por el verificador periódico
func (r *AlertRepository) GetActiveAlerts() ([]models.Alert, error) {
	rows, err := r.db.Query(`SELECT ` + alertColumns + ` FROM alerts WHERE is_active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

// UpdateAlert modifica una alerta existente
func (r *AlertRepository) UpdateAlert(alert *models.Alert, req *models.AlertUpdateRequest) (*models.Alert, error) {
	if req.CryptoSymbol != nil {
		alert.CryptoSymbol = models.CanonicalSymbol(*req.CryptoSymbol)
	}
	if req.TargetPrice != nil {
		alert.TargetPrice = *req.TargetPrice
	}
	if req.AlertType != nil {
		alert.AlertType = *req.AlertType
	}
	if req.IsActive != nil {
		alert.IsActive = *req.IsActive
	}

	query := `
		UPDATE alerts
		SET crypto_symbol = ?, target_price = ?, alert_type = ?, is_active = ?
		WHERE id = ?`

	_, err := r.db.Exec(query,
		alert.CryptoSymbol,
		alert.TargetPrice,
		alert.AlertType,
		alert.IsActive,
		alert.ID,
	)
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// TriggerAlert marca una alerta como disparada: pasa a inactiva y guarda
// el momento y el precio que la dispararon. Una alerta se dispara una
// sola vez.
func (r *AlertRepository) TriggerAlert(alertID string, currentPrice float64) error {
	query := `
		UPDATE alerts
		SET is_active = 0, triggered_at = ?, triggered_price = ?
		WHERE id = ? AND is_active = 1`

	_, err := r.db.Exec(query, time.Now().UTC(), currentPrice, alertID)
	return err
}

// DeleteAlert elimina una alerta
func (r *AlertRepository) DeleteAlert(alertID string) error {
	_, err := r.db.Exec(`DELETE FROM alerts WHERE id = ?`, alertID)
	return err
}

// GetAlertStats devuelve contadores globales de alertas
func (r *AlertRepository) GetAlertStats() (*models.AlertStats, error) {
	stats := &models.AlertStats{}

	if err := r.db.QueryRow(`SELECT COUNT(*) FROM alerts`).Scan(&stats.TotalAlerts); err != nil {
		return nil, err
	}
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM alerts WHERE is_active = 1`).Scan(&stats.ActiveAlerts); err != nil {
		return nil, err
	}
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM alerts WHERE triggered_at IS NOT NULL`).Scan(&stats.TriggeredAlerts); err != nil {
		return nil, err
	}
	stats.InactiveAlerts = stats.TotalAlerts - stats.ActiveAlerts

	var lastID sql.NullString
	err := r.db.QueryRow(`
		SELECT id FROM alerts
		WHERE triggered_at IS NOT NULL
		ORDER BY triggered_at DESC
		LIMIT 1`).Scan(&lastID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	stats.LastTriggeredID = lastID.String

	return stats, nil
}
