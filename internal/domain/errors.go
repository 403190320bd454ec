package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound       = errors.New("recurso no encontrado")
	ErrInvalidInput   = errors.New("entrada inválida")
	ErrDuplicate      = errors.New("recurso duplicado")
	ErrConflict       = errors.New("conflicto con el estado actual")
	ErrCycleDetected  = errors.New("ciclo en la receta de semielaborados")
	ErrMissingYield   = errors.New("semielaborado sin rendimiento de lote")
	ErrOffline        = errors.New("terminal sin conexión")
	ErrSyncInProgress = errors.New("sincronización en curso")
)
