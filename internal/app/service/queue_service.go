package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jose-valero/union-circle-bot/internal/domain"
)

// Settings del motor; se leen al arrancar y no cambian en vida del proceso.
type Settings struct {
	PlayersPerSession int
	AvgSessionMinutes int
	CooldownSeconds   int
}

func DefaultSettings() Settings {
	return Settings{PlayersPerSession: 3, AvgSessionMinutes: 5, CooldownSeconds: 30}
}

// QueueService contiene todas las reglas de waitlist/cola/sesión. Opera
// siempre sobre un estado obtenido del StateSource y persiste (Put) después
// de cada mutación; no hay ventana "sucia" visible entre operaciones.
type QueueService struct {
	states  StateSource
	bans    BanAuditor
	history SessionHistory
	cfg     Settings
	now     func() time.Time
}

func NewQueueService(states StateSource, bans BanAuditor, history SessionHistory, cfg Settings) *QueueService {
	if cfg.PlayersPerSession <= 0 {
		cfg.PlayersPerSession = 3
	}
	if cfg.AvgSessionMinutes <= 0 {
		cfg.AvgSessionMinutes = 5
	}
	return &QueueService{states: states, bans: bans, history: history, cfg: cfg, now: time.Now}
}

// PlayersPerSession expone el tamaño nominal de sesión configurado.
func (s *QueueService) PlayersPerSession() int { return s.cfg.PlayersPerSession }

// ListKind identifica en cuál de las tres listas está una entrada.
type ListKind string

const (
	InWaitlist ListKind = "waitlist"
	InQueue    ListKind = "queue"
	InSession  ListKind = "session"
)

// InsertToWaitlist inserta antes de la primera entrada con prioridad
// estrictamente menor (estable entre prioridades iguales) y devuelve la
// posición 1-based. El intake ya verificó duplicados; uno acá es error del
// caller, no se ignora en silencio.
func (s *QueueService) InsertToWaitlist(ctx context.Context, channelKey string, reg domain.Registration) (int, error) {
	st, err := s.states.Get(ctx, channelKey)
	if err != nil {
		return 0, err
	}

	if occupiedList(&st, reg.UserID) != "" {
		return 0, ErrAlreadyRegistered
	}

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.RegisteredAt == 0 {
		reg.RegisteredAt = domain.MillisFromTime(s.now())
	}

	insertAt := len(st.WaitingList)
	for i, cur := range st.WaitingList {
		if reg.Priority > cur.Priority {
			insertAt = i
			break
		}
	}
	st.WaitingList = append(st.WaitingList, domain.Registration{})
	copy(st.WaitingList[insertAt+1:], st.WaitingList[insertAt:])
	st.WaitingList[insertAt] = reg
	st.RegisteredUsers[reg.UserID] = true

	if err := s.states.Put(ctx, channelKey, st); err != nil {
		return insertAt + 1, fmt.Errorf("persist waitlist insert: %w", err)
	}
	return insertAt + 1, nil
}

// MoveToQueue pasa hasta count entradas del frente de la waitlist al final
// de la cola, mismo orden relativo. No toca la sesión activa.
func (s *QueueService) MoveToQueue(ctx context.Context, channelKey string, count int) ([]domain.Registration, error) {
	st, err := s.states.Get(ctx, channelKey)
	if err != nil {
		return nil, err
	}
	if count > len(st.WaitingList) {
		count = len(st.WaitingList)
	}
	if count <= 0 {
		return []domain.Registration{}, nil
	}

	moved := append([]domain.Registration(nil), st.WaitingList[:count]...)
	st.Queue.Registrations = append(st.Queue.Registrations, moved...)
	st.WaitingList = append([]domain.Registration{}, st.WaitingList[count:]...)

	if err := s.states.Put(ctx, channelKey, st); err != nil {
		return moved, fmt.Errorf("persist move to queue: %w", err)
	}
	return moved, nil
}

// StartSession toma hasta count entradas del frente de la cola y las fija
// como sesión activa. Nunca rellena implícitamente.
func (s *QueueService) StartSession(ctx context.Context, channelKey string, count int) ([]domain.Registration, error) {
	st, err := s.states.Get(ctx, channelKey)
	if err != nil {
		return nil, err
	}
	if len(st.ActiveSession) > 0 {
		return nil, ErrSessionActive
	}
	if len(st.Queue.Registrations) == 0 {
		return nil, ErrEmptyQueue
	}
	if count <= 0 || count > len(st.Queue.Registrations) {
		count = min(s.cfg.PlayersPerSession, len(st.Queue.Registrations))
	}

	session := append([]domain.Registration(nil), st.Queue.Registrations[:count]...)
	st.ActiveSession = session
	st.Queue.Registrations = append([]domain.Registration{}, st.Queue.Registrations[count:]...)
	start := domain.MillisFromTime(s.now())
	st.SessionStart = &start

	if err := s.states.Put(ctx, channelKey, st); err != nil {
		return session, fmt.Errorf("persist session start: %w", err)
	}
	return session, nil
}

// EndSession limpia la sesión activa y devuelve sus entradas. A propósito no
// trae reemplazos de la cola: avanzar es una operación explícita del host.
func (s *QueueService) EndSession(ctx context.Context, channelKey, guildID string) ([]domain.Registration, error) {
	st, err := s.states.Get(ctx, channelKey)
	if err != nil {
		return nil, err
	}
	if len(st.ActiveSession) == 0 {
		return nil, ErrNoActiveSession
	}

	session := append([]domain.Registration(nil), st.ActiveSession...)
	startedAt := s.now()
	if st.SessionStart != nil {
		startedAt = st.SessionStart.Time()
	}
	st.ActiveSession = []domain.Registration{}
	st.SessionStart = nil

	if err := s.states.Put(ctx, channelKey, st); err != nil {
		return session, fmt.Errorf("persist session end: %w", err)
	}

	if s.history != nil {
		rec := SessionRecord{
			ID:          uuid.NewString(),
			ChannelKey:  channelKey,
			GuildID:     guildID,
			StartedAt:   startedAt,
			EndedAt:     s.now(),
			Players:     session,
			PlayerCount: len(session),
		}
		if err := s.history.Record(ctx, rec); err != nil {
			log.Printf("history: no se pudo guardar la sesión de %s: %v", channelKey, err)
		}
	}
	return session, nil
}

// ExtendSession agrega hasta count entradas de la cola a la sesión activa.
// Es un override del host: no se aplica el tope nominal de la sesión.
func (s *QueueService) ExtendSession(ctx context.Context, channelKey string, count int) ([]domain.Registration, error) {
	st, err := s.states.Get(ctx, channelKey)
	if err != nil {
		return nil, err
	}
	if len(st.ActiveSession) == 0 {
		return nil, ErrNoActiveSession
	}
	if len(st.Queue.Registrations) == 0 {
		return nil, ErrEmptyQueue
	}
	if count <= 0 {
		count = 1
	}
	if count > len(st.Queue.Registrations) {
		count = len(st.Queue.Registrations)
	}

	added := append([]domain.Registration(nil), st.Queue.Registrations[:count]...)
	st.ActiveSession = append(st.ActiveSession, added...)
	st.Queue.Registrations = append([]domain.Registration{}, st.Queue.Registrations[count:]...)

	if err := s.states.Put(ctx, channelKey, st); err != nil {
		return added, fmt.Errorf("persist session extend: %w", err)
	}
	return added, nil
}

// ResetUser saca al usuario de la lista que ocupe y del índice. Idempotente.
func (s *QueueService) ResetUser(ctx context.Context, channelKey, userID string) (bool, error) {
	st, err := s.states.Get(ctx, channelKey)
	if err != nil {
		return false, err
	}

	removed := false
	st.WaitingList, removed = removeUser(st.WaitingList, userID, removed)
	st.Queue.Registrations, removed = removeUser(st.Queue.Registrations, userID, removed)
	st.ActiveSession, removed = removeUser(st.ActiveSession, userID, removed)
	if st.RegisteredUsers[userID] {
		delete(st.RegisteredUsers, userID)
		removed = true
	}
	if !removed {
		return false, nil
	}

	if err := s.states.Put(ctx, channelKey, st); err != nil {
		return true, fmt.Errorf("persist user reset: %w", err)
	}
	return true, nil
}

// ResetRegistrations limpia solo el índice de registrados; la membresía en
// listas queda intacta (sacar a alguien es ResetUser, una operación aparte).
func (s *QueueService) ResetRegistrations(ctx context.Context, channelKey string) error {
	st, err := s.states.Get(ctx, channelKey)
	if err != nil {
		return err
	}
	st.RegisteredUsers = map[string]bool{}
	if err := s.states.Put(ctx, channelKey, st); err != nil {
		return fmt.Errorf("persist registration reset: %w", err)
	}
	return nil
}

// OpenChannel / CloseChannel resetean todo el estado del canal y estampan el
// comando para el cooldown entre acciones opuestas.
func (s *QueueService) OpenChannel(ctx context.Context, channelKey, guildID string) error {
	return s.toggleChannel(ctx, channelKey, guildID, "online", "offline")
}

func (s *QueueService) CloseChannel(ctx context.Context, channelKey, guildID string) error {
	return s.toggleChannel(ctx, channelKey, guildID, "offline", "online")
}

func (s *QueueService) toggleChannel(ctx context.Context, channelKey, guildID, command, opposite string) error {
	st, err := s.states.Get(ctx, channelKey)
	if err != nil {
		return err
	}

	if last, ok := st.LastCommands[guildID]; ok && last.Command == opposite && s.cfg.CooldownSeconds > 0 {
		window := time.Duration(s.cfg.CooldownSeconds) * time.Second
		if remain := last.Timestamp.Time().Add(window).Sub(s.now()); remain > 0 {
			return &CooldownError{Remaining: remain}
		}
	}

	st.Reset()
	st.LastCommands[guildID] = domain.CommandStamp{Command: command, Timestamp: domain.MillisFromTime(s.now())}
	if command == "online" {
		st.OfflineNoticeID = ""
	}

	if err := s.states.Put(ctx, channelKey, st); err != nil {
		return fmt.Errorf("persist channel %s: %w", command, err)
	}
	return nil
}

// SetOfflineNotice guarda el id del último aviso de cierre publicado, para
// poder borrarlo al reabrir. Dato de presentación, no de negocio.
func (s *QueueService) SetOfflineNotice(ctx context.Context, channelKey, messageID string) error {
	st, err := s.states.Get(ctx, channelKey)
	if err != nil {
		return err
	}
	st.OfflineNoticeID = messageID
	return s.states.Put(ctx, channelKey, st)
}

// UserStatus describe dónde está un usuario dentro del canal.
type UserStatus struct {
	Registered   bool
	List         ListKind
	Position     int
	Registration *domain.Registration
}

// UserStatus recorre las tres listas una vez. Un usuario marcado en
// registeredUsers pero ausente de todas las listas está inconsistente y se
// trata como no registrado (se repara el dato, no se confía en él).
func (s *QueueService) UserStatus(ctx context.Context, channelKey, userID string) (UserStatus, error) {
	st, err := s.states.Get(ctx, channelKey)
	if err != nil {
		return UserStatus{}, err
	}

	for i, reg := range st.ActiveSession {
		if reg.UserID == userID {
			r := reg
			return UserStatus{Registered: true, List: InSession, Position: i + 1, Registration: &r}, nil
		}
	}
	for i, reg := range st.Queue.Registrations {
		if reg.UserID == userID {
			r := reg
			return UserStatus{Registered: true, List: InQueue, Position: i + 1, Registration: &r}, nil
		}
	}
	for i, reg := range st.WaitingList {
		if reg.UserID == userID {
			r := reg
			return UserStatus{Registered: true, List: InWaitlist, Position: i + 1, Registration: &r}, nil
		}
	}

	if st.RegisteredUsers[userID] {
		log.Printf("estado inconsistente en %s: %s marcado como registrado sin estar en ninguna lista", channelKey, userID)
	}
	return UserStatus{}, nil
}

// PurgeBanned saca de las tres listas a todo usuario con ban activo.
// Devuelve los userIDs removidos.
func (s *QueueService) PurgeBanned(ctx context.Context, channelKey string) ([]string, error) {
	if s.bans == nil {
		return nil, nil
	}
	st, err := s.states.Get(ctx, channelKey)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(st.WaitingList)+len(st.Queue.Registrations)+len(st.ActiveSession))
	for _, list := range [][]domain.Registration{st.WaitingList, st.Queue.Registrations, st.ActiveSession} {
		for _, reg := range list {
			ids = append(ids, reg.UserID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	banned, err := s.bans.ActiveAmong(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("ban audit: %w", err)
	}
	if len(banned) == 0 {
		return nil, nil
	}

	removed := make([]string, 0, len(banned))
	for uid := range banned {
		ok, err := s.ResetUser(ctx, channelKey, uid)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, uid)
		}
	}
	return removed, nil
}

// Snapshot devuelve una copia del estado del canal para presentación. El
// StateSource ya entrega copias profundas, así que mutar el resultado no
// afecta nada.
func (s *QueueService) Snapshot(ctx context.Context, channelKey string) (domain.ChannelState, error) {
	return s.states.Get(ctx, channelKey)
}

// ChannelStats es una lectura pura, sin mutación.
type ChannelStats struct {
	QueueSize         int
	WaitlistSize      int
	ActiveSessionSize int
	TotalRegistered   int
	HasActiveSession  bool
	SessionStart      *domain.Millis
}

func (s *QueueService) Stats(ctx context.Context, channelKey string) (ChannelStats, error) {
	st, err := s.states.Get(ctx, channelKey)
	if err != nil {
		return ChannelStats{}, err
	}
	return ChannelStats{
		QueueSize:         len(st.Queue.Registrations),
		WaitlistSize:      len(st.WaitingList),
		ActiveSessionSize: len(st.ActiveSession),
		TotalRegistered:   len(st.RegisteredUsers),
		HasActiveSession:  len(st.ActiveSession) > 0,
		SessionStart:      st.SessionStart,
	}, nil
}

// SessionsHosted cuenta las sesiones registradas en el historial del canal.
func (s *QueueService) SessionsHosted(ctx context.Context, channelKey string, since time.Time) (int, error) {
	if s.history == nil {
		return 0, nil
	}
	return s.history.CountSince(ctx, channelKey, since)
}

// occupiedList devuelve la lista que ocupa el usuario, o "" si ninguna.
func occupiedList(st *domain.ChannelState, userID string) ListKind {
	for _, reg := range st.ActiveSession {
		if reg.UserID == userID {
			return InSession
		}
	}
	for _, reg := range st.Queue.Registrations {
		if reg.UserID == userID {
			return InQueue
		}
	}
	for _, reg := range st.WaitingList {
		if reg.UserID == userID {
			return InWaitlist
		}
	}
	return ""
}

func removeUser(list []domain.Registration, userID string, already bool) ([]domain.Registration, bool) {
	for i, reg := range list {
		if reg.UserID == userID {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, already
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
