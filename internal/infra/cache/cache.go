// Package cache pone un TTL delante del store de canales. La TTL es un
// límite de frescura, no un mecanismo de corrección: toda mutación escribe
// al store antes de volver.
package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jose-valero/union-circle-bot/internal/domain"
)

// Lo implementa internal/infra/storage.ChannelRepo.
type Store interface {
	Load(ctx context.Context, channelKey string) (domain.ChannelState, error)
	Save(ctx context.Context, channelKey string, st domain.ChannelState) error
}

type entry struct {
	state     domain.ChannelState
	expiresAt time.Time
}

type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

func New(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{store: store, ttl: ttl, now: time.Now, entries: map[string]entry{}}
}

// Get devuelve siempre una copia profunda; mutar el resultado no afecta lo
// cacheado. Si el store falla en lectura se degrada a un estado default sin
// cachearlo, privilegiando disponibilidad (el próximo Get reintenta).
func (c *Cache) Get(ctx context.Context, channelKey string) (domain.ChannelState, error) {
	c.mu.Lock()
	if e, ok := c.entries[channelKey]; ok && c.now().Before(e.expiresAt) {
		st := e.state.Clone()
		c.mu.Unlock()
		return st, nil
	}
	c.mu.Unlock()

	st, err := c.store.Load(ctx, channelKey)
	if err != nil {
		log.Printf("cache: load de %s falló, usando estado default: %v", channelKey, err)
		return domain.NewChannelState(), nil
	}
	st.Normalize()

	c.mu.Lock()
	c.entries[channelKey] = entry{state: st.Clone(), expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return st, nil
}

// Put escribe primero al store y refresca la entrada solo si la escritura
// confirmó: un save fallido no deja cache divergente del disco.
func (c *Cache) Put(ctx context.Context, channelKey string, st domain.ChannelState) error {
	if err := c.store.Save(ctx, channelKey, st); err != nil {
		c.Invalidate(channelKey)
		return err
	}
	c.mu.Lock()
	c.entries[channelKey] = entry{state: st.Clone(), expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Invalidate(channelKey string) {
	c.mu.Lock()
	delete(c.entries, channelKey)
	c.mu.Unlock()
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = map[string]entry{}
	c.mu.Unlock()
}
