// Package httpstats expone lecturas del motor por HTTP: health y las
// estadísticas por canal, solo GET, sin mutaciones.
package httpstats

import (
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jose-valero/union-circle-bot/internal/app/service"
	"github.com/jose-valero/union-circle-bot/internal/domain"
)

type Server struct {
	e     *echo.Echo
	queue *service.QueueService
}

func New(queue *service.QueueService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{e: e, queue: queue}
	e.GET("/healthz", s.health)
	e.GET("/channels/:key/stats", s.channelStats)
	return s
}

func (s *Server) Start(addr string) {
	if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Printf("httpstats: %v", err)
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type statsResponse struct {
	ChannelKey        string `json:"channelKey"`
	WaitlistSize      int    `json:"waitlistSize"`
	QueueSize         int    `json:"queueSize"`
	ActiveSessionSize int    `json:"activeSessionSize"`
	TotalRegistered   int    `json:"totalRegistered"`
	HasActiveSession  bool   `json:"hasActiveSession"`
	SessionStart      string `json:"sessionStart,omitempty"`
	SessionsLast24h   int    `json:"sessionsLast24h"`
}

func (s *Server) channelStats(c echo.Context) error {
	key := domain.NormalizeChannelKey(c.Param("key"))
	if key == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid channel key"})
	}

	ctx := c.Request().Context()
	stats, err := s.queue.Stats(ctx, key)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	hosted, err := s.queue.SessionsHosted(ctx, key, time.Now().Add(-24*time.Hour))
	if err != nil {
		log.Printf("httpstats: historial de %s: %v", key, err)
	}

	resp := statsResponse{
		ChannelKey:        key,
		WaitlistSize:      stats.WaitlistSize,
		QueueSize:         stats.QueueSize,
		ActiveSessionSize: stats.ActiveSessionSize,
		TotalRegistered:   stats.TotalRegistered,
		HasActiveSession:  stats.HasActiveSession,
		SessionsLast24h:   hosted,
	}
	if stats.SessionStart != nil {
		resp.SessionStart = stats.SessionStart.Time().UTC().Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}
