package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jose-valero/union-circle-bot/internal/domain"
)

type fakeStore struct {
	m       map[string]domain.ChannelState
	loads   int
	saves   int
	loadErr error
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{m: map[string]domain.ChannelState{}}
}

func (f *fakeStore) Load(_ context.Context, key string) (domain.ChannelState, error) {
	f.loads++
	if f.loadErr != nil {
		return domain.ChannelState{}, f.loadErr
	}
	st, ok := f.m[key]
	if !ok {
		return domain.NewChannelState(), nil
	}
	return st.Clone(), nil
}

func (f *fakeStore) Save(_ context.Context, key string, st domain.ChannelState) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.m[key] = st.Clone()
	return nil
}

func seeded(userID string) domain.ChannelState {
	st := domain.NewChannelState()
	st.WaitingList = append(st.WaitingList, domain.Registration{UserID: userID, IGN: "Ash"})
	st.RegisteredUsers[userID] = true
	return st
}

func TestGetCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.m["ch"] = seeded("u1")
	c := New(store, 5*time.Minute)

	for i := 0; i < 3; i++ {
		st, err := c.Get(ctx, "ch")
		if err != nil {
			t.Fatal(err)
		}
		if len(st.WaitingList) != 1 {
			t.Fatalf("waitlist = %+v", st.WaitingList)
		}
	}
	if store.loads != 1 {
		t.Errorf("loads = %d, quiero 1 (el resto desde cache)", store.loads)
	}
}

func TestGetReturnsIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.m["ch"] = seeded("u1")
	c := New(store, 5*time.Minute)

	st1, _ := c.Get(ctx, "ch")
	st1.WaitingList[0].IGN = "hacked"
	st1.RegisteredUsers["intruso"] = true

	st2, _ := c.Get(ctx, "ch")
	if st2.WaitingList[0].IGN != "Ash" {
		t.Error("mutar el resultado de Get contaminó la cache")
	}
	if st2.RegisteredUsers["intruso"] {
		t.Error("mutar el mapa del resultado contaminó la cache")
	}
}

func TestGetExpiresAndReloads(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.m["ch"] = seeded("u1")
	c := New(store, 5*time.Minute)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	if _, err := c.Get(ctx, "ch"); err != nil {
		t.Fatal(err)
	}

	// Otro proceso escribió al store; dentro del TTL seguimos viendo lo viejo.
	store.m["ch"] = seeded("u2")
	st, _ := c.Get(ctx, "ch")
	if st.WaitingList[0].UserID != "u1" {
		t.Error("dentro del TTL debería servir lo cacheado")
	}

	now = base.Add(6 * time.Minute)
	st, _ = c.Get(ctx, "ch")
	if st.WaitingList[0].UserID != "u2" {
		t.Error("pasado el TTL debería recargar del store")
	}
	if store.loads != 2 {
		t.Errorf("loads = %d, quiero 2", store.loads)
	}
}

func TestGetDegradesOnLoadFailure(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.m["ch"] = seeded("u1")
	store.loadErr = errors.New("db down")
	c := New(store, 5*time.Minute)

	st, err := c.Get(ctx, "ch")
	if err != nil {
		t.Fatalf("un load fallido no debería propagar error: %v", err)
	}
	if len(st.WaitingList) != 0 {
		t.Error("con el store caído se sirve un estado default")
	}

	// El default degradado no se cachea: al volver el store se ve lo real.
	store.loadErr = nil
	st, _ = c.Get(ctx, "ch")
	if len(st.WaitingList) != 1 || st.WaitingList[0].UserID != "u1" {
		t.Error("el estado degradado quedó cacheado")
	}
}

func TestPutWritesThroughBeforeCaching(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := New(store, 5*time.Minute)

	if err := c.Put(ctx, "ch", seeded("u1")); err != nil {
		t.Fatal(err)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d", store.saves)
	}
	// Sirve desde cache sin releer.
	st, _ := c.Get(ctx, "ch")
	if st.WaitingList[0].UserID != "u1" || store.loads != 0 {
		t.Errorf("tras Put: waitlist=%+v loads=%d", st.WaitingList, store.loads)
	}
}

func TestPutFailureInvalidates(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.m["ch"] = seeded("u1")
	c := New(store, 5*time.Minute)

	if _, err := c.Get(ctx, "ch"); err != nil {
		t.Fatal(err)
	}

	store.saveErr = errors.New("disk full")
	if err := c.Put(ctx, "ch", seeded("u2")); err == nil {
		t.Fatal("Put con save fallido debería devolver error")
	}

	// La entrada quedó invalidada: el próximo Get relee el store, que sigue
	// teniendo lo viejo. La cache nunca miente sobre lo persistido.
	store.saveErr = nil
	st, _ := c.Get(ctx, "ch")
	if st.WaitingList[0].UserID != "u1" {
		t.Errorf("tras save fallido la cache sirvió %q", st.WaitingList[0].UserID)
	}
	if store.loads != 2 {
		t.Errorf("loads = %d, quiero 2 (invalidación forzó relectura)", store.loads)
	}
}

func TestInvalidateAll(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.m["a"] = seeded("u1")
	store.m["b"] = seeded("u2")
	c := New(store, 5*time.Minute)

	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "b")
	c.InvalidateAll()
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "b")

	if store.loads != 4 {
		t.Errorf("loads = %d, quiero 4", store.loads)
	}
}
