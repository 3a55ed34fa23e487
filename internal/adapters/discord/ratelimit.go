package discord

import (
	"sync"
	"time"
)

// userLimiter frena el spam de clicks en los selects del wizard: un click por
// usuario por ventana. Las entradas viejas se podan en el camino para que el
// mapa no crezca con cada usuario que pasó alguna vez.
type userLimiter struct {
	mu   sync.Mutex
	next map[string]time.Time
	win  time.Duration
}

func newUserLimiter(window time.Duration) *userLimiter {
	return &userLimiter{next: map[string]time.Time{}, win: window}
}

func (l *userLimiter) Allow(userID string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.next[userID]; ok && now.Before(until) {
		return false
	}
	if len(l.next) > 1024 {
		for id, until := range l.next {
			if now.After(until) {
				delete(l.next, id)
			}
		}
	}
	l.next[userID] = now.Add(l.win)
	return true
}
