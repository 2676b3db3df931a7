package services

import (
	"fmt"
	"log"
	"net/smtp"
	"os"

	"github.com/cryptopulse/api/internal/models"
)

// sendMail arma y envía un correo HTML con la configuración SMTP del
// entorno. Sin configuración solo registra y simula éxito, igual que
// en desarrollo local.
func sendMail(email, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	fromEmail := os.Getenv("FROM_EMAIL")

	if smtpHost == "" || smtpPort == "" || smtpUser == "" || smtpPass == "" {
		log.Printf("Configuración de email no encontrada. Correo para %s: %s", email, subject)
		return nil
	}

	auth := smtp.PlainAuth("", smtpUser, smtpPass, smtpHost)

	message := fmt.Sprintf("To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s\r\n", email, subject, body)

	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, fromEmail, []string{email}, []byte(message))
	if err != nil {
		log.Printf("Error al enviar email: %v", err)
		return err
	}

	return nil
}

func SendPasswordResetEmail(email, token string) error {
	subject := "Restablecimiento de contraseña"
	body := fmt.Sprintf(`
	<html>
	<body>
		<h2>Restablecimiento de contraseña</h2>
		<p>Has solicitado restablecer tu contraseña. Utiliza el siguiente token:</p>
		<p><strong>%s</strong></p>
		<p>Si no has solicitado este cambio, puedes ignorar este correo.</p>
	</body>
	</html>
	`, token)

	return sendMail(email, subject, body)
}

// SendAlertEmail notifica por correo una alerta de precio disparada
func SendAlertEmail(email string, alert *models.Alert, currentPrice float64) error {
	direction := "superó"
	if alert.AlertType == models.AlertTypeBelow {
		direction = "cayó por debajo de"
	}

	subject := fmt.Sprintf("Alerta de precio: %s", alert.CryptoSymbol)
	body := fmt.Sprintf(`
	<html>
	<body>
		<h2>🔔 Alerta de precio disparada</h2>
		<p><strong>%s</strong> %s tu precio objetivo de <strong>$%.2f</strong>.</p>
		<p>Precio actual: <strong>$%.2f</strong></p>
		<p>La alerta quedó desactivada; podés crear una nueva desde tu panel.</p>
	</body>
	</html>
	`, alert.CryptoSymbol, direction, alert.TargetPrice, currentPrice)

	return sendMail(email, subject, body)
}
