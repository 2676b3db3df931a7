package repository

import (
	"database/sql"
	"time"

	"github.com/cryptopulse/api/internal/models"
	"github.com/google/uuid"
)

type PortfolioRepository struct {
	db *sql.DB
}

func NewPortfolioRepository(db *sql.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// CreatePortfolio crea un portfolio con el balance inicial como balance
// actual. El primer portfolio de un usuario queda marcado como
// predeterminado aunque no se pida.
func (r *PortfolioRepository) CreatePortfolio(userID string, req *models.PortfolioCreateRequest) (*models.Portfolio, error) {
	var existing int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM portfolios WHERE user_id = ?`, userID).Scan(&existing); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &models.Portfolio{
		ID:             models.GenerateUUID(),
		UserID:         userID,
		Name:           req.Name,
		InitialBalance: req.InitialBalance,
		CurrentBalance: req.InitialBalance,
		IsDefault:      req.IsDefault || existing == 0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	query := `
		INSERT INTO portfolios (id, user_id, name, initial_balance, current_balance, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		p.ID,
		p.UserID,
		p.Name,
		p.InitialBalance,
		p.CurrentBalance,
		p.IsDefault,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.IsDefault {
		if err := r.setDefaultPortfolio(userID, p.ID); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// GetPortfolio busca un portfolio por su ID
func (r *PortfolioRepository) GetPortfolio(portfolioID string) (*models.Portfolio, error) {
	if _, err := uuid.Parse(portfolioID); err != nil {
		return nil, ErrInvalidPortfolioID
	}

	query := `
		SELECT id, user_id, name, initial_balance, current_balance, is_default, created_at, updated_at
		FROM portfolios
		WHERE id = ?`

	p := &models.Portfolio{}
	err := r.db.QueryRow(query, portfolioID).Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.InitialBalance,
		&p.CurrentBalance,
		&p.IsDefault,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrPortfolioNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetOwnedPortfolio busca un portfolio y verifica que pertenezca al usuario.
// El motor nunca autentica: solo autoriza propiedad.
func (r *PortfolioRepository) GetOwnedPortfolio(portfolioID, userID string) (*models.Portfolio, error) {
	p, err := r.GetPortfolio(portfolioID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrForbidden
	}
	return p, nil
}

// GetUserPortfolios devuelve los portfolios de un usuario, el más reciente primero
func (r *PortfolioRepository) GetUserPortfolios(userID string) ([]models.Portfolio, error) {
	query := `
		SELECT id, user_id, name, initial_balance, current_balance, is_default, created_at, updated_at
		FROM portfolios
		WHERE user_id = ?
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	portfolios := []models.Portfolio{}
	for rows.Next() {
		var p models.Portfolio
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Name,
			&p.InitialBalance,
			&p.CurrentBalance,
			&p.IsDefault,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

// UpdatePortfolio actualiza nombre y/o marca de predeterminado.
// Marcar un portfolio como predeterminado desmarca al resto de los
// portfolios del usuario en la misma operación.
func (r *PortfolioRepository) UpdatePortfolio(p *models.Portfolio, req *models.PortfolioUpdateRequest) (*models.Portfolio, error) {
	now := time.Now().UTC()

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.IsDefault != nil {
		p.IsDefault = *req.IsDefault
	}

	query := `
		UPDATE portfolios
		SET name = ?, is_default = ?, updated_at = ?
		WHERE id = ?`

	if _, err := r.db.Exec(query, p.Name, p.IsDefault, now, p.ID); err != nil {
		return nil, err
	}
	p.UpdatedAt = now

	if req.IsDefault != nil && *req.IsDefault {
		if err := r.setDefaultPortfolio(p.UserID, p.ID); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// UpdateBalance persiste el balance actual tras una operación
func (r *PortfolioRepository) UpdateBalance(portfolioID string, newBalance float64) error {
	query := `UPDATE portfolios SET current_balance = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.Exec(query, newBalance, time.Now().UTC(), portfolioID)
	return err
}

// DeletePortfolio borra el portfolio con sus posiciones y transacciones.
// Si era el predeterminado y quedan otros, promueve el más reciente.
func (r *PortfolioRepository) DeletePortfolio(p *models.Portfolio) error {
	if _, err := r.db.Exec(`DELETE FROM positions WHERE portfolio_id = ?`, p.ID); err != nil {
		return err
	}
	if _, err := r.db.Exec(`DELETE FROM transactions WHERE portfolio_id = ?`, p.ID); err != nil {
		return err
	}
	if _, err := r.db.Exec(`DELETE FROM portfolios WHERE id = ?`, p.ID); err != nil {
		return err
	}

	var remaining int
	query := `SELECT COUNT(*) FROM portfolios WHERE user_id = ? AND is_default = 1`
	if err := r.db.QueryRow(query, p.UserID).Scan(&remaining); err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	var newestID string
	err := r.db.QueryRow(`
		SELECT id FROM portfolios
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT 1`, p.UserID).Scan(&newestID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	return r.setDefaultPortfolio(p.UserID, newestID)
}

// CountTransactions cuenta las transacciones registradas de un portfolio
func (r *PortfolioRepository) CountTransactions(portfolioID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE portfolio_id = ?`, portfolioID).Scan(&count)
	return count, err
}

// setDefaultPortfolio deja un único portfolio predeterminado por usuario
func (r *PortfolioRepository) setDefaultPortfolio(userID, portfolioID string) error {
	now := time.Now().UTC()

	unmark := `UPDATE portfolios SET is_default = 0, updated_at = ? WHERE user_id = ? AND id != ?`
	if _, err := r.db.Exec(unmark, now, userID, portfolioID); err != nil {
		return err
	}

	mark := `UPDATE portfolios SET is_default = 1, updated_at = ? WHERE id = ?`
	_, err := r.db.Exec(mark, now, portfolioID)
	return err
}
