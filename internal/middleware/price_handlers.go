package middleware

import (
	"net/http"
	"time"

	"github.com/cryptopulse/api/internal/models"
	"github.com/cryptopulse/api/internal/repository"
	"github.com/cryptopulse/api/internal/services"
	"github.com/gin-gonic/gin"
)

// PriceHandler expone el feed de precios: el listado del último precio
// de cada moneda, el precio de un símbolo puntual y el stream websocket
type PriceHandler struct {
	prices    *repository.PriceRepository
	hub       *services.PriceHub
	collector *services.PriceCollector
	startedAt time.Time
}

func NewPriceHandler(prices *repository.PriceRepository, hub *services.PriceHub, collector *services.PriceCollector) *PriceHandler {
	return &PriceHandler{
		prices:    prices,
		hub:       hub,
		collector: collector,
		startedAt: time.Now().UTC(),
	}
}

func (h *PriceHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(h.startedAt).String(),
		"ws_clients": h.hub.ClientCount(),
	})
}

// ListCryptos devuelve el último precio de cada moneda seguida
func (h *PriceHandler) ListCryptos(c *gin.Context) {
	records, err := h.prices.GetLatestPrices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al obtener los precios"})
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetCrypto devuelve el último precio de un símbolo
func (h *PriceHandler) GetCrypto(c *gin.Context) {
	symbol := models.CanonicalSymbol(c.Param("symbol"))

	price, ok, err := h.prices.GetLatestPrice(symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al obtener el precio"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Precio no disponible"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"price_usd": price,
	})
}

// RefreshPrices fuerza una recolección inmediata del feed
func (h *PriceHandler) RefreshPrices(c *gin.Context) {
	if err := h.collector.CollectOnce(); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Error al actualizar los precios"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Precios actualizados"})
}

// StreamPrices pasa la conexión al hub de websockets
func (h *PriceHandler) StreamPrices(c *gin.Context) {
	h.hub.HandleWS(c.Writer, c.Request)
}
