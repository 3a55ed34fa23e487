package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL  string
	DiscordToken string
	DiscordGuild string
	HTTPAddr     string // opcional, default :8080

	HostRoleIDs   []string       // roles que pueden usar comandos de host
	PriorityRoles map[string]int // roleID -> nivel de prioridad en la waitlist
	ManagedRoleID string         // rol al que se le bloquea escribir al cerrar

	PlayersPerSession int // default 3
	AvgSessionMinutes int // default 5
	CacheTTLMinutes   int // default 5
	CooldownSeconds   int // default 30
	PendingTTLMinutes int // default 15
}

func Load() Config {
	get := func(k string, req bool) string {
		v := os.Getenv(k)
		if v == "" && req {
			log.Fatalf("faltante env %s", k)
		}
		return v
	}
	getInt := func(k string, def int) int {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("env %s inválida: %q", k, v)
		}
		return n
	}

	cfg := Config{
		DatabaseURL:  get("DATABASE_URL", true),
		DiscordToken: get("DISCORD_BOT_TOKEN", true),
		DiscordGuild: get("DISCORD_GUILD_ID", true),
		HTTPAddr:     get("HTTP_ADDR", false),

		HostRoleIDs:   splitList(get("HOST_ROLE_IDS", false)),
		PriorityRoles: parsePriorityRoles(get("PRIORITY_ROLES", false)),
		ManagedRoleID: get("MANAGED_ROLE_ID", false),

		PlayersPerSession: getInt("PLAYERS_PER_SESSION", 3),
		AvgSessionMinutes: getInt("AVG_SESSION_MINUTES", 5),
		CacheTTLMinutes:   getInt("CACHE_TTL_MINUTES", 5),
		CooldownSeconds:   getInt("COOLDOWN_SECONDS", 30),
		PendingTTLMinutes: getInt("PENDING_TTL_MINUTES", 15),
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	return cfg
}

func splitList(raw string) []string {
	out := []string{}
	for _, tok := range strings.Split(raw, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// PRIORITY_ROLES="roleID:nivel,roleID:nivel"
func parsePriorityRoles(raw string) map[string]int {
	out := map[string]int{}
	for _, tok := range splitList(raw) {
		id, lvl, ok := strings.Cut(tok, ":")
		if !ok {
			log.Fatalf("PRIORITY_ROLES inválida cerca de %q", tok)
		}
		n, err := strconv.Atoi(lvl)
		if err != nil || n < 0 {
			log.Fatalf("PRIORITY_ROLES nivel inválido en %q", tok)
		}
		out[strings.TrimSpace(id)] = n
	}
	return out
}
