package service

import (
	"context"
)

// Rangos legibles para el estimado; deben ser monótonos en los minutos.
var waitBuckets = []struct {
	maxMinutes float64
	label      string
}{
	{5, "Less than 5 minutes"},
	{15, "5-15 minutes"},
	{30, "15-30 minutes"},
	{60, "30-60 minutes"},
}

const waitOverflowLabel = "Over 1 hour"

// WaitEstimate: heurística determinista, no una garantía.
type WaitEstimate struct {
	Minutes float64
	Label   string
}

// EstimateWait estima la espera para una posición 1-based en la waitlist o
// en la cola. Para la cola suma el tiempo restante de la sesión activa; para
// la waitlist cuenta la sesión activa como un equivalente de sesión delante.
func (s *QueueService) EstimateWait(ctx context.Context, channelKey string, position int, kind ListKind) (WaitEstimate, error) {
	st, err := s.states.Get(ctx, channelKey)
	if err != nil {
		return WaitEstimate{}, err
	}

	pps := s.cfg.PlayersPerSession
	avg := float64(s.cfg.AvgSessionMinutes)
	if position < 1 {
		position = 1
	}

	var minutes float64
	if kind == InWaitlist {
		totalAhead := len(st.Queue.Registrations)
		if len(st.ActiveSession) > 0 {
			totalAhead++
		}
		sessionsAhead := ceilDiv(totalAhead, pps)
		positionSessions := ceilDiv(position, pps)
		minutes = float64(sessionsAhead+positionSessions-1) * avg
	} else {
		sessionsAhead := ceilDiv(position, pps) - 1
		minutes = float64(sessionsAhead) * avg
		if st.SessionStart != nil {
			elapsed := s.now().Sub(st.SessionStart.Time()).Minutes()
			if remaining := avg - elapsed; remaining > 0 {
				minutes += remaining
			}
		}
	}

	return WaitEstimate{Minutes: minutes, Label: bucketLabel(minutes)}, nil
}

func bucketLabel(minutes float64) string {
	for _, b := range waitBuckets {
		if minutes <= b.maxMinutes {
			return b.label
		}
	}
	return waitOverflowLabel
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
