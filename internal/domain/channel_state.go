package domain

import (
	"regexp"
	"strings"
)

// CommandStamp guarda el último comando ejecutado por guild, para el
// cooldown entre acciones opuestas (online/offline).
type CommandStamp struct {
	Command   string `json:"command"`
	Timestamp Millis `json:"timestamp"`
}

// Queue conserva la forma anidada del documento original
// (queue.registrations) para que los archivos viejos carguen tal cual.
type Queue struct {
	Registrations []Registration `json:"registrations"`
}

// ChannelState es el documento persistido, uno por canal normalizado.
// Un userId vive en a lo sumo una de las tres listas; registeredUsers es el
// índice rápido de esa membresía.
type ChannelState struct {
	LastCommands    map[string]CommandStamp `json:"lastCommands"`
	LastCodeEmbeds  map[string]string       `json:"lastCodeEmbeds"`
	RegisteredUsers map[string]bool         `json:"registeredUsers"`
	Queue           Queue                   `json:"queue"`
	WaitingList     []Registration          `json:"waitingList"`
	ActiveSession   []Registration          `json:"activeSession"`
	SessionStart    *Millis                 `json:"sessionStartTime"`
	OfflineNoticeID string                  `json:"offlineEmbedMessageId,omitempty"`
}

func NewChannelState() ChannelState {
	return ChannelState{
		LastCommands:    map[string]CommandStamp{},
		LastCodeEmbeds:  map[string]string{},
		RegisteredUsers: map[string]bool{},
		Queue:           Queue{Registrations: []Registration{}},
		WaitingList:     []Registration{},
		ActiveSession:   []Registration{},
	}
}

// Normalize rellena campos ausentes en documentos viejos en vez de fallar
// (el bot original hacía `if (!config.waitingList) ...` al cargar).
func (s *ChannelState) Normalize() {
	if s.LastCommands == nil {
		s.LastCommands = map[string]CommandStamp{}
	}
	if s.LastCodeEmbeds == nil {
		s.LastCodeEmbeds = map[string]string{}
	}
	if s.RegisteredUsers == nil {
		s.RegisteredUsers = map[string]bool{}
	}
	if s.Queue.Registrations == nil {
		s.Queue.Registrations = []Registration{}
	}
	if s.WaitingList == nil {
		s.WaitingList = []Registration{}
	}
	if s.ActiveSession == nil {
		s.ActiveSession = []Registration{}
	}
}

// Clone devuelve una copia profunda; la cache la usa para que nadie mute el
// estado cacheado por fuera.
func (s ChannelState) Clone() ChannelState {
	out := s
	out.LastCommands = make(map[string]CommandStamp, len(s.LastCommands))
	for k, v := range s.LastCommands {
		out.LastCommands[k] = v
	}
	out.LastCodeEmbeds = make(map[string]string, len(s.LastCodeEmbeds))
	for k, v := range s.LastCodeEmbeds {
		out.LastCodeEmbeds[k] = v
	}
	out.RegisteredUsers = make(map[string]bool, len(s.RegisteredUsers))
	for k, v := range s.RegisteredUsers {
		out.RegisteredUsers[k] = v
	}
	out.Queue.Registrations = append([]Registration(nil), s.Queue.Registrations...)
	out.WaitingList = append([]Registration(nil), s.WaitingList...)
	out.ActiveSession = append([]Registration(nil), s.ActiveSession...)
	if s.SessionStart != nil {
		start := *s.SessionStart
		out.SessionStart = &start
	}
	return out
}

// Reset limpia listas, sesión y registros; el canal nunca se borra, solo se
// resetea (online/offline).
func (s *ChannelState) Reset() {
	s.RegisteredUsers = map[string]bool{}
	s.Queue.Registrations = []Registration{}
	s.WaitingList = []Registration{}
	s.ActiveSession = []Registration{}
	s.SessionStart = nil
}

var reChannelKey = regexp.MustCompile(`[^a-zA-Z0-9]`)

// NormalizeChannelKey aplica la misma sanitización que usaba el bot para
// nombrar los archivos por canal: solo alfanuméricos, en minúscula.
func NormalizeChannelKey(name string) string {
	return strings.ToLower(reChannelKey.ReplaceAllString(name, ""))
}
