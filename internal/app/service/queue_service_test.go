package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jose-valero/union-circle-bot/internal/domain"
)

// fakeStates: StateSource en memoria con copias profundas, como la cache real.
type fakeStates struct {
	m      map[string]domain.ChannelState
	putErr error
	puts   int
}

func newFakeStates() *fakeStates {
	return &fakeStates{m: map[string]domain.ChannelState{}}
}

func (f *fakeStates) Get(_ context.Context, key string) (domain.ChannelState, error) {
	st, ok := f.m[key]
	if !ok {
		return domain.NewChannelState(), nil
	}
	return st.Clone(), nil
}

func (f *fakeStates) Put(_ context.Context, key string, st domain.ChannelState) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.m[key] = st.Clone()
	return nil
}

func (f *fakeStates) Invalidate(string) {}

type fakeBans struct {
	active map[string]string
	err    error
}

func (f *fakeBans) ActiveAmong(_ context.Context, ids []string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]string{}
	for _, id := range ids {
		if reason, ok := f.active[id]; ok {
			out[id] = reason
		}
	}
	return out, nil
}

type fakeHistory struct {
	records []SessionRecord
	count   int
	err     error
}

func (f *fakeHistory) Record(_ context.Context, rec SessionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeHistory) CountSince(_ context.Context, _ string, _ time.Time) (int, error) {
	return f.count, f.err
}

func newTestService(states StateSource) *QueueService {
	svc := NewQueueService(states, nil, nil, DefaultSettings())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func reg(userID string, priority int) domain.Registration {
	return domain.Registration{UserID: userID, IGN: "ign-" + userID, Pokemon: "Pikachu", Priority: priority}
}

func TestInsertToWaitlistPriorityOrder(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeStates())

	// A (0), B (2), C (0): B adelanta a A; C queda detrás de A (estable).
	if pos, err := svc.InsertToWaitlist(ctx, "ch", reg("A", 0)); err != nil || pos != 1 {
		t.Fatalf("insert A = (%d, %v)", pos, err)
	}
	if pos, err := svc.InsertToWaitlist(ctx, "ch", reg("B", 2)); err != nil || pos != 1 {
		t.Fatalf("insert B = (%d, %v), quiero posición 1", pos, err)
	}
	if pos, err := svc.InsertToWaitlist(ctx, "ch", reg("C", 0)); err != nil || pos != 3 {
		t.Fatalf("insert C = (%d, %v), quiero posición 3", pos, err)
	}

	st, _ := svc.Snapshot(ctx, "ch")
	want := []string{"B", "A", "C"}
	for i, w := range want {
		if st.WaitingList[i].UserID != w {
			t.Errorf("waitlist[%d] = %s, quiero %s", i, st.WaitingList[i].UserID, w)
		}
	}
}

func TestInsertToWaitlistStableAmongEqualPriority(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeStates())

	for _, id := range []string{"A", "B", "C", "D"} {
		if _, err := svc.InsertToWaitlist(ctx, "ch", reg(id, 1)); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	st, _ := svc.Snapshot(ctx, "ch")
	for i, w := range []string{"A", "B", "C", "D"} {
		if st.WaitingList[i].UserID != w {
			t.Errorf("orden inestable: waitlist[%d] = %s", i, st.WaitingList[i].UserID)
		}
	}
}

func TestInsertToWaitlistRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeStates())

	if _, err := svc.InsertToWaitlist(ctx, "ch", reg("A", 0)); err != nil {
		t.Fatalf("primer insert: %v", err)
	}
	if _, err := svc.InsertToWaitlist(ctx, "ch", reg("A", 5)); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("duplicado = %v, quiero ErrAlreadyRegistered", err)
	}
}

func TestInsertDefaultsIDAndTimestamp(t *testing.T) {
	ctx := context.Background()
	states := newFakeStates()
	svc := newTestService(states)

	if _, err := svc.InsertToWaitlist(ctx, "ch", reg("A", 0)); err != nil {
		t.Fatal(err)
	}
	st, _ := svc.Snapshot(ctx, "ch")
	if st.WaitingList[0].ID == "" {
		t.Error("el insert debería asignar un id")
	}
	if st.WaitingList[0].RegisteredAt == 0 {
		t.Error("el insert debería estampar registeredAt")
	}
}

func TestMoveToQueueConservesEntries(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeStates())

	for _, id := range []string{"A", "B", "C", "D", "E"} {
		_, _ = svc.InsertToWaitlist(ctx, "ch", reg(id, 0))
	}

	moved, err := svc.MoveToQueue(ctx, "ch", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(moved) != 3 || moved[0].UserID != "A" || moved[2].UserID != "C" {
		t.Fatalf("moved = %+v", moved)
	}

	st, _ := svc.Snapshot(ctx, "ch")
	if len(st.Queue.Registrations)+len(st.WaitingList) != 5 {
		t.Error("mover perdió o duplicó entradas")
	}
	if st.WaitingList[0].UserID != "D" {
		t.Errorf("frente de la waitlist = %s, quiero D", st.WaitingList[0].UserID)
	}

	// count > tamaño: mueve lo que hay, sin error.
	moved, err = svc.MoveToQueue(ctx, "ch", 99)
	if err != nil || len(moved) != 2 {
		t.Errorf("move overflow = (%d, %v)", len(moved), err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{}
	svc := NewQueueService(newFakeStates(), nil, history, DefaultSettings())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	for _, id := range []string{"A", "B", "C", "D"} {
		_, _ = svc.InsertToWaitlist(ctx, "ch", reg(id, 0))
	}
	_, _ = svc.MoveToQueue(ctx, "ch", 4)

	// default: tamaño de sesión (3)
	session, err := svc.StartSession(ctx, "ch", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(session) != 3 {
		t.Fatalf("sesión de %d, quiero 3", len(session))
	}

	if _, err := svc.StartSession(ctx, "ch", 0); !errors.Is(err, ErrSessionActive) {
		t.Errorf("segunda sesión = %v, quiero ErrSessionActive", err)
	}

	st, _ := svc.Snapshot(ctx, "ch")
	if st.SessionStart == nil {
		t.Error("sessionStart debería estar estampado")
	}
	if len(st.Queue.Registrations) != 1 || st.Queue.Registrations[0].UserID != "D" {
		t.Errorf("cola restante = %+v", st.Queue.Registrations)
	}

	added, err := svc.ExtendSession(ctx, "ch", 0)
	if err != nil || len(added) != 1 || added[0].UserID != "D" {
		t.Fatalf("extend = (%+v, %v)", added, err)
	}

	ended, err := svc.EndSession(ctx, "ch", "guild1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ended) != 4 {
		t.Errorf("terminaron %d, quiero 4", len(ended))
	}

	st, _ = svc.Snapshot(ctx, "ch")
	if len(st.ActiveSession) != 0 || st.SessionStart != nil {
		t.Error("la sesión no quedó limpia")
	}
	// end no rellena desde la cola
	if len(st.Queue.Registrations) != 0 {
		t.Error("end no debería tocar la cola")
	}

	if len(history.records) != 1 || history.records[0].PlayerCount != 4 {
		t.Errorf("historial = %+v", history.records)
	}

	if _, err := svc.EndSession(ctx, "ch", "guild1"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("end sin sesión = %v", err)
	}
}

func TestStartSessionEmptyQueue(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeStates())
	if _, err := svc.StartSession(ctx, "ch", 0); !errors.Is(err, ErrEmptyQueue) {
		t.Errorf("start con cola vacía = %v", err)
	}
}

// Escenario completo: prioridad + next + start + status, de punta a punta.
func TestPriorityFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeStates())

	_, _ = svc.InsertToWaitlist(ctx, "ch", reg("A", 0))
	_, _ = svc.InsertToWaitlist(ctx, "ch", reg("B", 2))
	_, _ = svc.InsertToWaitlist(ctx, "ch", reg("C", 0))

	moved, err := svc.MoveToQueue(ctx, "ch", 2)
	if err != nil || len(moved) != 2 {
		t.Fatalf("move = (%d, %v)", len(moved), err)
	}
	if moved[0].UserID != "B" || moved[1].UserID != "A" {
		t.Fatalf("moved = [%s %s], quiero [B A]", moved[0].UserID, moved[1].UserID)
	}

	session, err := svc.StartSession(ctx, "ch", 0)
	if err != nil || len(session) != 2 {
		t.Fatalf("start = (%d, %v)", len(session), err)
	}

	status, err := svc.UserStatus(ctx, "ch", "B")
	if err != nil {
		t.Fatal(err)
	}
	if status.List != InSession || status.Position != 1 {
		t.Errorf("status B = %s/%d, quiero session/1", status.List, status.Position)
	}
	status, _ = svc.UserStatus(ctx, "ch", "C")
	if status.List != InWaitlist || status.Position != 1 {
		t.Errorf("status C = %s/%d, quiero waitlist/1", status.List, status.Position)
	}
}

func TestResetUserIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeStates())

	_, _ = svc.InsertToWaitlist(ctx, "ch", reg("A", 0))

	removed, err := svc.ResetUser(ctx, "ch", "A")
	if err != nil || !removed {
		t.Fatalf("reset = (%v, %v)", removed, err)
	}
	removed, err = svc.ResetUser(ctx, "ch", "A")
	if err != nil || removed {
		t.Errorf("segundo reset = (%v, %v), quiero (false, nil)", removed, err)
	}

	// Puede volver a registrarse.
	if _, err := svc.InsertToWaitlist(ctx, "ch", reg("A", 0)); err != nil {
		t.Errorf("re-registro tras reset: %v", err)
	}
}

func TestResetRegistrationsKeepsLists(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeStates())

	_, _ = svc.InsertToWaitlist(ctx, "ch", reg("A", 0))
	_, _ = svc.InsertToWaitlist(ctx, "ch", reg("B", 0))

	if err := svc.ResetRegistrations(ctx, "ch"); err != nil {
		t.Fatal(err)
	}
	st, _ := svc.Snapshot(ctx, "ch")
	if len(st.RegisteredUsers) != 0 {
		t.Error("el índice debería quedar vacío")
	}
	if len(st.WaitingList) != 2 {
		t.Error("las listas deberían quedar intactas")
	}
}

func TestToggleChannelCooldown(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	svc := NewQueueService(newFakeStates(), nil, nil, DefaultSettings())
	svc.now = func() time.Time { return now }

	if err := svc.OpenChannel(ctx, "ch", "guild1"); err != nil {
		t.Fatal(err)
	}

	// Cerrar enseguida: cooldown de 30s activo.
	now = base.Add(10 * time.Second)
	err := svc.CloseChannel(ctx, "ch", "guild1")
	var cooldown *CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("close inmediato = %v, quiero CooldownError", err)
	}
	if cooldown.Remaining <= 0 || cooldown.Remaining > 20*time.Second {
		t.Errorf("remaining = %v", cooldown.Remaining)
	}

	// Pasado el cooldown funciona y resetea todo.
	_, _ = svc.InsertToWaitlist(ctx, "ch", reg("A", 0))
	now = base.Add(31 * time.Second)
	if err := svc.CloseChannel(ctx, "ch", "guild1"); err != nil {
		t.Fatalf("close tras cooldown: %v", err)
	}
	st, _ := svc.Snapshot(ctx, "ch")
	if len(st.WaitingList) != 0 || len(st.RegisteredUsers) != 0 {
		t.Error("close debería resetear el estado")
	}
	if st.LastCommands["guild1"].Command != "offline" {
		t.Errorf("lastCommand = %q", st.LastCommands["guild1"].Command)
	}
}

func TestEstimateWaitFromWaitlist(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeStates()) // pps=3, avg=5

	// 4 en cola, sin sesión: sessionsAhead = ceil(4/3) = 2.
	for _, id := range []string{"A", "B", "C", "D"} {
		_, _ = svc.InsertToWaitlist(ctx, "ch", reg(id, 0))
	}
	_, _ = svc.MoveToQueue(ctx, "ch", 4)

	// posición 1 en waitlist: (2 + 1 - 1) * 5 = 10
	est, err := svc.EstimateWait(ctx, "ch", 1, InWaitlist)
	if err != nil {
		t.Fatal(err)
	}
	if est.Minutes != 10 {
		t.Errorf("minutos = %v, quiero 10", est.Minutes)
	}
	if est.Label != "5-15 minutes" {
		t.Errorf("label = %q", est.Label)
	}

	// posición 7: (2 + 3 - 1) * 5 = 20
	est, _ = svc.EstimateWait(ctx, "ch", 7, InWaitlist)
	if est.Minutes != 20 || est.Label != "15-30 minutes" {
		t.Errorf("pos 7 = %v / %q", est.Minutes, est.Label)
	}
}

func TestEstimateWaitFromQueueDiscountsElapsed(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	svc := NewQueueService(newFakeStates(), nil, nil, DefaultSettings())
	svc.now = func() time.Time { return now }

	for _, id := range []string{"A", "B", "C", "D"} {
		_, _ = svc.InsertToWaitlist(ctx, "ch", reg(id, 0))
	}
	_, _ = svc.MoveToQueue(ctx, "ch", 4)
	_, _ = svc.StartSession(ctx, "ch", 3)

	// Sesión arrancó en base; 2 minutos después, posición 1 en cola:
	// (ceil(1/3)-1)*5 + (5-2) = 3
	now = base.Add(2 * time.Minute)
	est, err := svc.EstimateWait(ctx, "ch", 1, InQueue)
	if err != nil {
		t.Fatal(err)
	}
	if est.Minutes != 3 {
		t.Errorf("minutos = %v, quiero 3", est.Minutes)
	}
	if est.Label != "Less than 5 minutes" {
		t.Errorf("label = %q", est.Label)
	}

	// Sesión pasada de tiempo: el remanente no va negativo.
	now = base.Add(20 * time.Minute)
	est, _ = svc.EstimateWait(ctx, "ch", 1, InQueue)
	if est.Minutes != 0 {
		t.Errorf("minutos con sesión vencida = %v, quiero 0", est.Minutes)
	}
}

func TestEstimateLabelsMonotonic(t *testing.T) {
	labels := map[float64]string{
		0:   "Less than 5 minutes",
		5:   "Less than 5 minutes",
		10:  "5-15 minutes",
		25:  "15-30 minutes",
		45:  "30-60 minutes",
		100: "Over 1 hour",
	}
	for minutes, want := range labels {
		if got := bucketLabel(minutes); got != want {
			t.Errorf("bucketLabel(%v) = %q, quiero %q", minutes, got, want)
		}
	}
}

func TestPurgeBanned(t *testing.T) {
	ctx := context.Background()
	bans := &fakeBans{active: map[string]string{"B": "spam"}}
	svc := NewQueueService(newFakeStates(), bans, nil, DefaultSettings())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	_, _ = svc.InsertToWaitlist(ctx, "ch", reg("A", 0))
	_, _ = svc.InsertToWaitlist(ctx, "ch", reg("B", 0))

	removed, err := svc.PurgeBanned(ctx, "ch")
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || removed[0] != "B" {
		t.Errorf("removed = %v", removed)
	}
	st, _ := svc.Snapshot(ctx, "ch")
	if len(st.WaitingList) != 1 || st.WaitingList[0].UserID != "A" {
		t.Errorf("waitlist tras purge = %+v", st.WaitingList)
	}
}

func TestPutFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	states := newFakeStates()
	states.putErr = errors.New("db down")
	svc := newTestService(states)

	if _, err := svc.InsertToWaitlist(ctx, "ch", reg("A", 0)); err == nil {
		t.Fatal("insert con store caído debería fallar")
	}
	// Nada quedó guardado: el próximo intento arranca limpio.
	states.putErr = nil
	if pos, err := svc.InsertToWaitlist(ctx, "ch", reg("A", 0)); err != nil || pos != 1 {
		t.Errorf("reintento = (%d, %v)", pos, err)
	}
}
