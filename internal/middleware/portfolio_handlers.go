package middleware

import (
	"errors"
	"net/http"

	"github.com/cryptopulse/api/internal/models"
	"github.com/cryptopulse/api/internal/repository"
	"github.com/gin-gonic/gin"
)

// PortfolioHandler expone el motor de portfolios por HTTP. La lógica vive
// en los repositorios; acá solo se valida la entrada, se verifica la
// propiedad y se mapean los errores tipados a códigos HTTP.
type PortfolioHandler struct {
	portfolios *repository.PortfolioRepository
	executor   *repository.TradeExecutor
	stats      *repository.StatsRepository
	locks      *repository.PortfolioLocks
}

func NewPortfolioHandler(portfolios *repository.PortfolioRepository, executor *repository.TradeExecutor, stats *repository.StatsRepository, locks *repository.PortfolioLocks) *PortfolioHandler {
	return &PortfolioHandler{
		portfolios: portfolios,
		executor:   executor,
		stats:      stats,
		locks:      locks,
	}
}

// abortPortfolioError mapea el conjunto cerrado de errores del motor a
// códigos HTTP. Cualquier error fuera del conjunto es un fallo interno
// y no filtra detalles al cliente.
func abortPortfolioError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrInvalidPortfolioID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de portfolio inválido"})
	case errors.Is(err, repository.ErrPortfolioNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Portfolio no encontrado"})
	case errors.Is(err, repository.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Acceso denegado"})
	case errors.Is(err, repository.ErrPositionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Posición no encontrada"})
	case errors.Is(err, repository.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cantidad inválida"})
	case errors.Is(err, repository.ErrInvalidFee):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comisión inválida"})
	case errors.Is(err, repository.ErrPriceUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Precio no disponible"})
	case errors.Is(err, repository.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Saldo insuficiente"})
	case errors.Is(err, repository.ErrInsufficientQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cantidad insuficiente"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
	}
}

func (h *PortfolioHandler) CreatePortfolio(c *gin.Context) {
	userID := c.GetString("userId")

	var req models.PortfolioCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	portfolio, err := h.portfolios.CreatePortfolio(userID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al crear el portfolio"})
		return
	}

	c.JSON(http.StatusCreated, portfolio)
}

func (h *PortfolioHandler) ListPortfolios(c *gin.Context) {
	userID := c.GetString("userId")

	portfolios, err := h.portfolios.GetUserPortfolios(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al obtener los portfolios"})
		return
	}

	c.JSON(http.StatusOK, portfolios)
}

func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	userID := c.GetString("userId")

	portfolio, err := h.portfolios.GetOwnedPortfolio(c.Param("id"), userID)
	if err != nil {
		abortPortfolioError(c, err)
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

func (h *PortfolioHandler) UpdatePortfolio(c *gin.Context) {
	userID := c.GetString("userId")

	portfolio, err := h.portfolios.GetOwnedPortfolio(c.Param("id"), userID)
	if err != nil {
		abortPortfolioError(c, err)
		return
	}

	var req models.PortfolioUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == nil && req.IsDefault == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ningún dato para actualizar"})
		return
	}

	updated, err := h.portfolios.UpdatePortfolio(portfolio, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al actualizar el portfolio"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *PortfolioHandler) DeletePortfolio(c *gin.Context) {
	userID := c.GetString("userId")
	portfolioID := c.Param("id")

	portfolio, err := h.portfolios.GetOwnedPortfolio(portfolioID, userID)
	if err != nil {
		abortPortfolioError(c, err)
		return
	}

	// El borrado también se serializa contra las operaciones en curso
	h.locks.Lock(portfolioID)
	err = h.portfolios.DeletePortfolio(portfolio)
	h.locks.Unlock(portfolioID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al eliminar el portfolio"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Portfolio eliminado exitosamente",
		"portfolio_id": portfolioID,
		"deleted":      true,
	})
}

func (h *PortfolioHandler) Buy(c *gin.Context) {
	userID := c.GetString("userId")

	var req models.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.executor.Buy(c.Param("id"), userID, &req)
	if err != nil {
		abortPortfolioError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Compra ejecutada", "result": result})
}

func (h *PortfolioHandler) Sell(c *gin.Context) {
	userID := c.GetString("userId")

	var req models.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.executor.Sell(c.Param("id"), userID, &req)
	if err != nil {
		abortPortfolioError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Venta ejecutada", "result": result})
}

func (h *PortfolioHandler) GetPositions(c *gin.Context) {
	userID := c.GetString("userId")

	positions, err := h.stats.GetRefreshedPositions(c.Param("id"), userID)
	if err != nil {
		abortPortfolioError(c, err)
		return
	}

	c.JSON(http.StatusOK, positions)
}

func (h *PortfolioHandler) GetPosition(c *gin.Context) {
	userID := c.GetString("userId")

	position, err := h.stats.GetRefreshedPosition(c.Param("id"), userID, c.Param("symbol"))
	if err != nil {
		abortPortfolioError(c, err)
		return
	}

	c.JSON(http.StatusOK, position)
}

func (h *PortfolioHandler) GetTransactions(c *gin.Context) {
	userID := c.GetString("userId")

	if _, err := h.portfolios.GetOwnedPortfolio(c.Param("id"), userID); err != nil {
		abortPortfolioError(c, err)
		return
	}

	transactions, err := h.executor.GetTransactions(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al obtener las transacciones"})
		return
	}

	c.JSON(http.StatusOK, transactions)
}

func (h *PortfolioHandler) GetStats(c *gin.Context) {
	userID := c.GetString("userId")

	stats, err := h.stats.GetStats(c.Param("id"), userID)
	if err != nil {
		abortPortfolioError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *PortfolioHandler) GetAllocation(c *gin.Context) {
	userID := c.GetString("userId")

	allocation, err := h.stats.GetAllocation(c.Param("id"), userID)
	if err != nil {
		abortPortfolioError(c, err)
		return
	}

	c.JSON(http.StatusOK, allocation)
}

func (h *PortfolioHandler) GetPerformance(c *gin.Context) {
	userID := c.GetString("userId")

	performance, err := h.stats.GetPerformance(c.Param("id"), userID)
	if err != nil {
		abortPortfolioError(c, err)
		return
	}

	c.JSON(http.StatusOK, performance)
}
