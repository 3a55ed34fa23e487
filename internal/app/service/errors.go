package service

import (
	"errors"
	"fmt"
	"time"
)

// Errores de entrada del usuario: el adapter los traduce a mensajes, nunca
// son fatales.
var (
	ErrAlreadyRegistered = errors.New("user already registered in this circle")
	ErrSessionActive     = errors.New("session already active")
	ErrNoActiveSession   = errors.New("no active session")
	ErrEmptyQueue        = errors.New("no users in queue")
	ErrEmptyWaitlist     = errors.New("waiting list is empty")
	ErrNoPending         = errors.New("no pending registration")
	ErrMissingFields     = errors.New("missing required registration fields")
)

// BannedError: el motor nunca muta el estado de bans, solo lo consulta.
type BannedError struct {
	Reason string
}

func (e *BannedError) Error() string {
	if e.Reason == "" {
		return "user is banned from Union Circle"
	}
	return "user is banned from Union Circle: " + e.Reason
}

// CooldownError se devuelve al alternar online/offline demasiado rápido.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, wait %ds", int(e.Remaining.Seconds()+0.999))
}
