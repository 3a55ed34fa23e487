package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	discordrouter "github.com/jose-valero/union-circle-bot/internal/adapters/discord"
	"github.com/jose-valero/union-circle-bot/internal/adapters/httpstats"
	"github.com/jose-valero/union-circle-bot/internal/app/service"
	"github.com/jose-valero/union-circle-bot/internal/infra/cache"
	"github.com/jose-valero/union-circle-bot/internal/infra/config"
	"github.com/jose-valero/union-circle-bot/internal/infra/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	// DB
	db, err := storage.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		log.Fatal("migrate:", err)
	}
	log.Println("✅ DB lista y migrada")

	// Repos
	channelRepo := storage.NewChannelRepo(db)
	banRepo := storage.NewBanRepo(db)
	historyRepo := storage.NewHistoryRepo(db)

	// Cache TTL delante del store de canales
	states := cache.New(channelRepo, time.Duration(cfg.CacheTTLMinutes)*time.Minute)

	// Motor de colas
	queueSvc := service.NewQueueService(states, banRepo, historyRepo, service.Settings{
		PlayersPerSession: cfg.PlayersPerSession,
		AvgSessionMinutes: cfg.AvgSessionMinutes,
		CooldownSeconds:   cfg.CooldownSeconds,
	})

	// Discord session (antes del register service, que consulta roles)
	auth := cfg.DiscordToken
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(auth)), "bot ") {
		auth = "Bot " + strings.TrimSpace(auth)
	}
	s, err := discordgo.New(auth)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("✅ Conectado como %s (%s)", s.State.User.Username, s.State.User.ID)

	// Wizard de registro
	standing := discordrouter.NewRolePriority(s, cfg.PriorityRoles)
	registerSvc := service.NewRegisterService(queueSvc, banRepo, standing, time.Duration(cfg.PendingTTLMinutes)*time.Minute)

	// Stats por HTTP
	stats := httpstats.New(queueSvc)
	go stats.Start(cfg.HTTPAddr)

	// Router
	r := discordrouter.NewRouter(
		s,
		cfg.DiscordGuild,
		discordrouter.ChannelCfg{ManagedRoleID: cfg.ManagedRoleID},
		queueSvc,
		registerSvc,
		banRepo,
		cfg.HostRoleIDs,
	)
	if err := r.Register(); err != nil {
		log.Fatalf("registrando comandos: %v", err)
	}
	r.Handlers()
	log.Printf("✅ comandos registrados en guild %s", cfg.DiscordGuild)

	// Sweeper de registros a medio llenar
	go func() {
		t := time.NewTicker(1 * time.Minute)
		defer t.Stop()
		for range t.C {
			if n := registerSvc.Sweep(); n > 0 {
				log.Printf("sweep: %d registro(s) pendiente(s) vencido(s)", n)
			}
		}
	}()

	// Esperar señal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop
}
