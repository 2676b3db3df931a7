package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cryptopulse/api/internal/models"
	"github.com/cryptopulse/api/internal/repository"
)

// AlertChecker compara periódicamente el último precio de cada símbolo
// contra las alertas activas. Una alerta disparada queda inactiva y la
// notificación (email y Discord) se envía sin bloquear la pasada: el
// motor no espera a la entrega.
type AlertChecker struct {
	interval  time.Duration
	alerts    *repository.AlertRepository
	prices    *repository.PriceRepository
	users     *repository.UserRepository
	isRunning bool
	stopChan  chan struct{}
	mutex     sync.Mutex
}

func NewAlertChecker(interval time.Duration, alerts *repository.AlertRepository, prices *repository.PriceRepository, users *repository.UserRepository) *AlertChecker {
	return &AlertChecker{
		interval: interval,
		alerts:   alerts,
		prices:   prices,
		users:    users,
		stopChan: make(chan struct{}),
	}
}

// Start lanza el bucle de verificación en segundo plano
func (c *AlertChecker) Start() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isRunning {
		return
	}
	c.isRunning = true

	go func() {
		log.Printf("Verificador de alertas iniciado (intervalo: %v)", c.interval)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := c.CheckAlerts(); err != nil {
					log.Printf("Error al verificar alertas: %v", err)
				}
			case <-c.stopChan:
				log.Println("Verificador de alertas detenido")
				return
			}
		}
	}()
}

// Stop detiene el bucle de verificación
func (c *AlertChecker) Stop() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isRunning {
		return
	}
	c.isRunning = false
	close(c.stopChan)
}

// ShouldTrigger decide si un precio dispara una alerta.
// "above" se dispara cuando el precio alcanza o supera el objetivo;
// "below" cuando cae al objetivo o por debajo.
func ShouldTrigger(alert *models.Alert, currentPrice float64) bool {
	switch alert.AlertType {
	case models.AlertTypeAbove:
		return currentPrice >= alert.TargetPrice
	case models.AlertTypeBelow:
		return currentPrice <= alert.TargetPrice
	}
	return false
}

// CheckAlerts hace una pasada completa sobre las alertas activas
func (c *AlertChecker) CheckAlerts() (*models.AlertCheckResult, error) {
	result := &models.AlertCheckResult{CheckedAt: time.Now().UTC()}

	active, err := c.alerts.GetActiveAlerts()
	if err != nil {
		return nil, err
	}
	result.TotalActive = len(active)

	for i := range active {
		alert := &active[i]
		result.AlertsChecked++

		currentPrice, ok, err := c.prices.GetLatestPrice(alert.CryptoSymbol)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("alerta %s: %v", alert.ID, err))
			continue
		}
		if !ok {
			// Sin precio no se puede evaluar: la alerta queda para la próxima pasada
			result.AlertsSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("precio no disponible para %s", alert.CryptoSymbol))
			continue
		}

		if !ShouldTrigger(alert, currentPrice) {
			continue
		}

		if err := c.alerts.TriggerAlert(alert.ID, currentPrice); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("alerta %s: %v", alert.ID, err))
			continue
		}

		result.AlertsTriggered++
		detail := fmt.Sprintf("%s %s $%.2f (actual: $%.2f)", alert.CryptoSymbol, alert.AlertType, alert.TargetPrice, currentPrice)
		result.TriggeredDetails = append(result.TriggeredDetails, detail)
		log.Printf("Alerta disparada: %s", detail)

		go c.notify(alert, currentPrice)
	}

	return result, nil
}

// notify envía las notificaciones de una alerta disparada.
// Los fallos de entrega solo se registran: la alerta ya quedó disparada.
func (c *AlertChecker) notify(alert *models.Alert, currentPrice float64) {
	user, err := c.users.GetUserById(alert.UserID)
	if err != nil {
		log.Printf("No se pudo obtener el usuario %s para notificar: %v", alert.UserID, err)
		return
	}

	if user.Email != "" {
		if err := SendAlertEmail(user.Email, alert, currentPrice); err != nil {
			log.Printf("Error al enviar email de alerta a %s: %v", user.Email, err)
		}
	}

	if user.DiscordWebhook != "" {
		if err := SendDiscordAlert(user.DiscordWebhook, alert, currentPrice); err != nil {
			log.Printf("Error al enviar alerta a Discord: %v", err)
		}
	}
}
