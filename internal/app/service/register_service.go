package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jose-valero/union-circle-bot/internal/domain"
)

// Stage del wizard de registro por (canal, usuario).
type Stage int

const (
	StageAwaitingMegaChoice Stage = iota + 1
	StageAwaitingMegaDetail
	StageAwaitingShinyChoice
)

// Scope identifica un intake en curso. ChannelKey es el nombre normalizado
// (documento); ChannelID el id de Discord (clave del pending).
type Scope struct {
	ChannelKey string
	ChannelID  string
	GuildID    string
	UserID     string
}

func (sc Scope) pendingKey() string { return sc.ChannelID + "-" + sc.UserID }

// CoreFields: campos del primer paso del formulario.
type CoreFields struct {
	IGN          string
	Pokemon      string
	PokemonLevel string
	HoldingItem  string
}

type pendingEntry struct {
	fields    CoreFields
	mega      bool
	megaText  string
	stage     Stage
	updatedAt time.Time
}

// RegisterResult se devuelve al transporte para mostrar posición y estimado.
type RegisterResult struct {
	Position     int
	Wait         WaitEstimate
	Registration domain.Registration
}

// RegisterService es el wizard de registro. Los pendings viven solo en
// memoria del proceso (se pierden al reiniciar, limitación documentada) y
// expiran por TTL: un intake abandonado nunca toca estado durable.
//
// No hay locks a lo largo del wizard: la re-validación de ban y duplicado al
// finalizar es la única guardia contra interleavings, a propósito, porque
// los pasos están separados por tiempo real de espera del usuario.
type RegisterService struct {
	queue    *QueueService
	bans     BanChecker
	standing StandingProvider

	mu      sync.Mutex
	pending map[string]*pendingEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewRegisterService(queue *QueueService, bans BanChecker, standing StandingProvider, pendingTTL time.Duration) *RegisterService {
	if pendingTTL <= 0 {
		pendingTTL = 15 * time.Minute
	}
	return &RegisterService{
		queue:    queue,
		bans:     bans,
		standing: standing,
		pending:  map[string]*pendingEntry{},
		ttl:      pendingTTL,
		now:      time.Now,
	}
}

// Begin valida ban y duplicado antes de mostrar el formulario. El chequeo de
// ban falla cerrado: si no se puede consultar, no se registra a nadie.
func (s *RegisterService) Begin(ctx context.Context, sc Scope) (UserStatus, error) {
	if err := s.checkBan(ctx, sc.UserID); err != nil {
		return UserStatus{}, err
	}
	status, err := s.queue.UserStatus(ctx, sc.ChannelKey, sc.UserID)
	if err != nil {
		return UserStatus{}, err
	}
	if status.Registered {
		return status, ErrAlreadyRegistered
	}
	return status, nil
}

// SubmitFields crea el pending con los campos base. Un re-registro del mismo
// usuario pisa el pending anterior.
func (s *RegisterService) SubmitFields(ctx context.Context, sc Scope, fields CoreFields) error {
	if err := s.checkBan(ctx, sc.UserID); err != nil {
		return err
	}
	status, err := s.queue.UserStatus(ctx, sc.ChannelKey, sc.UserID)
	if err != nil {
		return err
	}
	if status.Registered {
		return ErrAlreadyRegistered
	}

	fields.IGN = clip(strings.TrimSpace(fields.IGN), 20)
	fields.Pokemon = clip(strings.TrimSpace(fields.Pokemon), 30)
	fields.PokemonLevel = clip(strings.TrimSpace(fields.PokemonLevel), 3)
	fields.HoldingItem = clip(strings.TrimSpace(fields.HoldingItem), 30)
	if fields.IGN == "" || fields.Pokemon == "" {
		return ErrMissingFields
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[sc.pendingKey()] = &pendingEntry{
		fields:    fields,
		stage:     StageAwaitingMegaChoice,
		updatedAt: s.now(),
	}
	return nil
}

// ChooseMega avanza al detalle de mega (sí) o directo a shiny (no).
// Devuelve true si falta el texto del detalle.
func (s *RegisterService) ChooseMega(sc Scope, mega bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.alive(sc)
	if !ok {
		return false, ErrNoPending
	}
	p.mega = mega
	p.updatedAt = s.now()
	if mega {
		p.stage = StageAwaitingMegaDetail
		return true, nil
	}
	p.stage = StageAwaitingShinyChoice
	return false, nil
}

func (s *RegisterService) SubmitMegaDetail(sc Scope, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.alive(sc)
	if !ok {
		return ErrNoPending
	}
	p.megaText = clip(strings.TrimSpace(detail), 30)
	p.stage = StageAwaitingShinyChoice
	p.updatedAt = s.now()
	return nil
}

// ChooseShiny finaliza: re-valida ban y duplicado (pasó tiempo desde el
// inicio y otro camino pudo registrar al mismo usuario), arma la
// Registration con la prioridad del standing actual y la inserta.
func (s *RegisterService) ChooseShiny(ctx context.Context, sc Scope, shiny bool) (RegisterResult, error) {
	s.mu.Lock()
	p, ok := s.alive(sc)
	if !ok {
		s.mu.Unlock()
		return RegisterResult{}, ErrNoPending
	}
	entry := *p
	s.mu.Unlock()

	if entry.fields.IGN == "" || entry.fields.Pokemon == "" {
		s.drop(sc)
		return RegisterResult{}, ErrMissingFields
	}
	if err := s.checkBan(ctx, sc.UserID); err != nil {
		s.drop(sc)
		return RegisterResult{}, err
	}
	status, err := s.queue.UserStatus(ctx, sc.ChannelKey, sc.UserID)
	if err != nil {
		return RegisterResult{}, err
	}
	if status.Registered {
		s.drop(sc)
		return RegisterResult{}, ErrAlreadyRegistered
	}

	priority := 0
	if s.standing != nil {
		priority = s.standing.Priority(ctx, sc.GuildID, sc.UserID)
	}

	reg := domain.Registration{
		ID:           uuid.NewString(),
		UserID:       sc.UserID,
		IGN:          entry.fields.IGN,
		Pokemon:      entry.fields.Pokemon,
		PokemonLevel: entry.fields.PokemonLevel,
		Mega:         domain.YesNo(entry.mega),
		MegaDetails:  entry.megaText,
		Shiny:        domain.YesNo(shiny),
		HoldingItem:  entry.fields.HoldingItem,
		Priority:     priority,
		RegisteredAt: domain.MillisFromTime(s.now()),
	}

	position, err := s.queue.InsertToWaitlist(ctx, sc.ChannelKey, reg)
	if err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			s.drop(sc)
		}
		return RegisterResult{}, err
	}
	s.drop(sc)

	wait, err := s.queue.EstimateWait(ctx, sc.ChannelKey, position, InWaitlist)
	if err != nil {
		wait = WaitEstimate{}
	}
	return RegisterResult{Position: position, Wait: wait, Registration: reg}, nil
}

// Abandon descarta el pending sin efectos sobre el orquestador.
func (s *RegisterService) Abandon(sc Scope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[sc.pendingKey()]; !ok {
		return false
	}
	delete(s.pending, sc.pendingKey())
	return true
}

// Sweep elimina pendings vencidos; lo dispara un ticker en cmd/bot.
func (s *RegisterService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for key, p := range s.pending {
		if p.updatedAt.Before(cutoff) {
			delete(s.pending, key)
			n++
		}
	}
	return n
}

func (s *RegisterService) alive(sc Scope) (*pendingEntry, bool) {
	p, ok := s.pending[sc.pendingKey()]
	if !ok {
		return nil, false
	}
	if s.now().Sub(p.updatedAt) > s.ttl {
		delete(s.pending, sc.pendingKey())
		return nil, false
	}
	return p, true
}

func (s *RegisterService) drop(sc Scope) {
	s.mu.Lock()
	delete(s.pending, sc.pendingKey())
	s.mu.Unlock()
}

func (s *RegisterService) checkBan(ctx context.Context, userID string) error {
	st, err := s.bans.CheckBan(ctx, userID)
	if err != nil {
		// fail closed: sin respuesta del ban service no se avanza
		return err
	}
	if st.Banned {
		return &BannedError{Reason: st.Reason}
	}
	return nil
}

// clip corta por runas, no por bytes: los límites de los modals cuentan
// caracteres y un corte a mitad de runa dejaría UTF-8 inválido en el
// documento persistido.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max])
	}
	return s
}
