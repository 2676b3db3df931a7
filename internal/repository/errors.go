package repository

import "errors"

// Conjunto cerrado de errores del motor de trading. Los handlers los
// mapean uno a uno a códigos HTTP con errors.Is; cualquier otro error
// se trata como fallo interno.
var (
	ErrInvalidQuantity      = errors.New("cantidad inválida")
	ErrInvalidFee           = errors.New("comisión inválida")
	ErrPriceUnavailable     = errors.New("precio no disponible")
	ErrInsufficientBalance  = errors.New("saldo insuficiente")
	ErrInsufficientQuantity = errors.New("cantidad insuficiente")
	ErrPositionNotFound     = errors.New("posición no encontrada")
	ErrPortfolioNotFound    = errors.New("portfolio no encontrado")
	ErrInvalidPortfolioID   = errors.New("id de portfolio inválido")
	ErrForbidden            = errors.New("acceso denegado")
	ErrAlertNotFound        = errors.New("alerta no encontrada")
	ErrUserNotFound         = errors.New("usuario no encontrado")
)
