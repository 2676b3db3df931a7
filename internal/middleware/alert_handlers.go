package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cryptopulse/api/internal/models"
	"github.com/cryptopulse/api/internal/repository"
	"github.com/cryptopulse/api/internal/services"
	"github.com/gin-gonic/gin"
)

// AlertHandler maneja el CRUD de alertas de precio y la verificación manual
type AlertHandler struct {
	alerts  *repository.AlertRepository
	checker *services.AlertChecker
}

func NewAlertHandler(alerts *repository.AlertRepository, checker *services.AlertChecker) *AlertHandler {
	return &AlertHandler{alerts: alerts, checker: checker}
}

// ownedAlert busca la alerta y verifica que pertenezca al usuario
func (h *AlertHandler) ownedAlert(c *gin.Context) (*models.Alert, bool) {
	alert, err := h.alerts.GetAlert(c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alerta no encontrada"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al obtener la alerta"})
		}
		return nil, false
	}
	if alert.UserID != c.GetString("userId") {
		c.JSON(http.StatusForbidden, gin.H{"error": "Acceso denegado"})
		return nil, false
	}
	return alert, true
}

func (h *AlertHandler) CreateAlert(c *gin.Context) {
	userID := c.GetString("userId")

	var req models.AlertCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := h.alerts.CreateAlert(userID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al crear la alerta"})
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// ListAlerts lista las alertas del usuario; admite los filtros
// ?active=true|false y ?symbol=BTC
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	userID := c.GetString("userId")

	var isActive *bool
	if raw := c.Query("active"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "El filtro active debe ser true o false"})
			return
		}
		isActive = &value
	}

	alerts, err := h.alerts.GetUserAlerts(userID, isActive, c.Query("symbol"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al obtener las alertas"})
		return
	}

	c.JSON(http.StatusOK, alerts)
}

func (h *AlertHandler) GetAlert(c *gin.Context) {
	alert, ok := h.ownedAlert(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	alert, ok := h.ownedAlert(c)
	if !ok {
		return
	}

	var req models.AlertUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.AlertType != nil && *req.AlertType != models.AlertTypeAbove && *req.AlertType != models.AlertTypeBelow {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tipo de alerta inválido"})
		return
	}
	if req.TargetPrice != nil && *req.TargetPrice <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El precio objetivo debe ser mayor a cero"})
		return
	}

	updated, err := h.alerts.UpdateAlert(alert, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al actualizar la alerta"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	alert, ok := h.ownedAlert(c)
	if !ok {
		return
	}

	if err := h.alerts.DeleteAlert(alert.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al eliminar la alerta"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Alerta eliminada exitosamente",
		"alert_id": alert.ID,
	})
}

// CheckNow fuerza una pasada del verificador sin esperar al intervalo
func (h *AlertHandler) CheckNow(c *gin.Context) {
	result, err := h.checker.CheckAlerts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al verificar las alertas"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AlertHandler) GetAlertStats(c *gin.Context) {
	stats, err := h.alerts.GetAlertStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al obtener las estadísticas de alertas"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
