package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/union-circle-bot/internal/app/service"
)

func (r *Router) handleSlashCommand(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic en slash handler: %v", rec)
			ReplyEphemeral(s, ic, "😵 Algo salió mal procesando el comando.")
		}
	}()

	cmd := ic.ApplicationCommandData()
	done := step("slash:" + cmd.Name)
	defer done()

	// /register responde con un modal: no admite defer previo.
	if cmd.Name == "register" {
		r.handleRegisterCommand(s, ic)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	if err := DeferEphemeral(s, ic); err != nil {
		return
	}

	switch cmd.Name {
	case "status":
		r.cmdStatus(ctx, s, ic)
	case "queue":
		r.cmdQueue(ctx, s, ic)
	case "circle":
		r.cmdCircle(ctx, s, ic)
	case "ucban":
		r.cmdBan(ctx, s, ic)
	case "ucunban":
		r.cmdUnban(ctx, s, ic)
	default:
		ReplyEphemeral(s, ic, "🤔 Comando desconocido.")
	}
}

func (r *Router) cmdStatus(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	key, err := r.channelKey(ic)
	if err != nil {
		ReplyEphemeral(s, ic, "⚠️ No pude resolver el canal: "+err.Error())
		return
	}

	userID := ic.Member.User.ID
	mine := true
	if target, ok := optUserID(ic, "user"); ok && target != "" {
		userID = target
		mine = target == ic.Member.User.ID
	}

	status, err := r.queue.UserStatus(ctx, key, userID)
	if err != nil {
		ReplyEphemeral(s, ic, "⚠️ No pude consultar el estado: "+err.Error())
		return
	}
	if !status.Registered {
		if mine {
			ReplyEphemeral(s, ic, "No estás registrado en este Union Circle. Usá `/register` para unirte.")
		} else {
			ReplyEphemeral(s, ic, fmt.Sprintf("<@%s> no está registrado en este Union Circle.", userID))
		}
		return
	}

	var b strings.Builder
	switch status.List {
	case service.InSession:
		fmt.Fprintf(&b, "🎮 **En la sesión activa** (jugador %d)", status.Position)
	case service.InQueue:
		fmt.Fprintf(&b, "📋 **En la cola principal**, posición **%d**", status.Position)
	case service.InWaitlist:
		fmt.Fprintf(&b, "⏳ **En la waitlist**, posición **%d**", status.Position)
	}
	if status.List == service.InQueue || status.List == service.InWaitlist {
		if wait, err := r.queue.EstimateWait(ctx, key, status.Position, status.List); err == nil {
			fmt.Fprintf(&b, "\nEspera estimada: **%s**", wait.Label)
		}
	}
	ReplyEphemeral(s, ic, b.String())
}

func (r *Router) cmdQueue(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	key, err := r.channelKey(ic)
	if err != nil {
		ReplyEphemeral(s, ic, "⚠️ No pude resolver el canal: "+err.Error())
		return
	}

	sub, _ := subcmdName(ic)
	switch sub {
	case "stats":
		stats, err := r.queue.Stats(ctx, key)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ No pude leer las estadísticas: "+err.Error())
			return
		}
		hosted, _ := r.queue.SessionsHosted(ctx, key, time.Now().Add(-24*time.Hour))
		msg := fmt.Sprintf(
			"📊 **Estadísticas del canal**\nWaitlist: **%d**\nCola: **%d**\nSesión activa: **%d**\nRegistrados: **%d**\nSesiones (24h): **%d**",
			stats.WaitlistSize, stats.QueueSize, stats.ActiveSessionSize, stats.TotalRegistered, hosted)
		if stats.HasActiveSession && stats.SessionStart != nil {
			msg += fmt.Sprintf("\nSesión iniciada: <t:%d:R>", stats.SessionStart.Time().Unix())
		}
		ReplyEphemeral(s, ic, msg)

	case "waiting":
		st, err := r.queue.Snapshot(ctx, key)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ No pude leer la waitlist: "+err.Error())
			return
		}
		if len(st.WaitingList) == 0 {
			ReplyEphemeral(s, ic, "⏳ La waitlist está vacía.")
			return
		}
		entries := st.WaitingList
		if len(entries) > 20 {
			entries = entries[:20]
		}
		msg := fmt.Sprintf("⏳ **Waitlist** (%d):\n%s", len(st.WaitingList), fmtPositions(entries, 1))
		ReplyEphemeral(s, ic, msg)

	default: // list
		st, err := r.queue.Snapshot(ctx, key)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ No pude leer la cola: "+err.Error())
			return
		}
		if len(st.Queue.Registrations) == 0 && len(st.ActiveSession) == 0 {
			ReplyEphemeral(s, ic, "📋 La cola está vacía y no hay sesión activa.")
			return
		}
		var b strings.Builder
		if len(st.ActiveSession) > 0 {
			fmt.Fprintf(&b, "🎮 **Sesión activa** (%d):\n%s\n\n", len(st.ActiveSession), fmtPositions(st.ActiveSession, 1))
		}
		if len(st.Queue.Registrations) > 0 {
			entries := st.Queue.Registrations
			if len(entries) > 20 {
				entries = entries[:20]
			}
			fmt.Fprintf(&b, "📋 **Cola principal** (%d):\n%s", len(st.Queue.Registrations), fmtPositions(entries, 1))
		}
		ReplyEphemeral(s, ic, b.String())
	}
}

func (r *Router) cmdCircle(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if !r.requireHost(s, ic) {
		return
	}
	key, err := r.channelKey(ic)
	if err != nil {
		ReplyEphemeral(s, ic, "⚠️ No pude resolver el canal: "+err.Error())
		return
	}

	sub, _ := subcmdName(ic)
	switch sub {
	case "open":
		r.circleOpen(ctx, s, ic, key)
	case "close":
		r.circleClose(ctx, s, ic, key)
	case "next":
		count, _ := optInt(ic, "count")
		moved, err := r.queue.MoveToQueue(ctx, key, countOrDefault(count, r.queue.PlayersPerSession()))
		if err != nil {
			ReplyEphemeral(s, ic, circleErrMsg(err))
			return
		}
		if len(moved) == 0 {
			ReplyEphemeral(s, ic, "⏳ La waitlist está vacía, no hay a quién mover.")
			return
		}
		ReplyEphemeral(s, ic, fmt.Sprintf("➡️ Moví **%d** jugador(es) a la cola principal:\n%s", len(moved), fmtPositions(moved, 1)))
	case "start":
		count, _ := optInt(ic, "count")
		session, err := r.queue.StartSession(ctx, key, count)
		if err != nil {
			ReplyEphemeral(s, ic, circleErrMsg(err))
			return
		}
		ReplyPublic(s, ic, fmt.Sprintf("🎮 **¡Sesión iniciada!** (%d jugadores)\n\n%s", len(session), fmtPlayers(session)))
	case "end":
		session, err := r.queue.EndSession(ctx, key, ic.GuildID)
		if err != nil {
			ReplyEphemeral(s, ic, circleErrMsg(err))
			return
		}
		ReplyEphemeral(s, ic, fmt.Sprintf("🏁 Sesión terminada. Participaron **%d** jugador(es).", len(session)))
	case "extend":
		count, _ := optInt(ic, "count")
		added, err := r.queue.ExtendSession(ctx, key, count)
		if err != nil {
			ReplyEphemeral(s, ic, circleErrMsg(err))
			return
		}
		ReplyEphemeral(s, ic, fmt.Sprintf("➕ Agregué **%d** jugador(es) a la sesión activa:\n%s", len(added), fmtPositions(added, 1)))
	case "resetuser":
		userID, ok := optUserID(ic, "user")
		if !ok {
			ReplyEphemeral(s, ic, "⚠️ Falta el usuario.")
			return
		}
		removed, err := r.queue.ResetUser(ctx, key, userID)
		if err != nil {
			ReplyEphemeral(s, ic, circleErrMsg(err))
			return
		}
		if removed {
			ReplyEphemeral(s, ic, fmt.Sprintf("🧹 <@%s> fue sacado de todas las listas.", userID))
		} else {
			ReplyEphemeral(s, ic, fmt.Sprintf("<@%s> no estaba en ninguna lista.", userID))
		}
	case "resetregister":
		if err := r.queue.ResetRegistrations(ctx, key); err != nil {
			ReplyEphemeral(s, ic, circleErrMsg(err))
			return
		}
		ReplyEphemeral(s, ic, "🧹 Índice de registrados reseteado. Las listas quedan como estaban.")
	case "removewait":
		raw, _ := optStr(ic, "users")
		ids := parseIDs(raw)
		if len(ids) == 0 {
			ReplyEphemeral(s, ic, "⚠️ No reconocí ninguna mención ni ID.")
			return
		}
		removed := []string{}
		for _, uid := range ids {
			ok, err := r.queue.ResetUser(ctx, key, uid)
			if err != nil {
				ReplyEphemeral(s, ic, circleErrMsg(err))
				return
			}
			if ok {
				removed = append(removed, "<@"+uid+">")
			}
		}
		if len(removed) == 0 {
			ReplyEphemeral(s, ic, "Ninguno de esos usuarios estaba en las listas.")
			return
		}
		ReplyEphemeral(s, ic, "🧹 Removidos: "+strings.Join(removed, ", "))
	case "purgebanned":
		removed, err := r.queue.PurgeBanned(ctx, key)
		if err != nil {
			ReplyEphemeral(s, ic, circleErrMsg(err))
			return
		}
		if len(removed) == 0 {
			ReplyEphemeral(s, ic, "✅ No había usuarios baneados en las listas.")
			return
		}
		mentions := make([]string, 0, len(removed))
		for _, uid := range removed {
			mentions = append(mentions, "<@"+uid+">")
		}
		ReplyEphemeral(s, ic, fmt.Sprintf("⛔ Saqué **%d** usuario(s) baneado(s): %s", len(removed), strings.Join(mentions, ", ")))
	default:
		ReplyEphemeral(s, ic, "🤔 Subcomando desconocido.")
	}
}

func (r *Router) circleOpen(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, key string) {
	// Leemos el aviso de cierre antes del reset, que lo borra del estado.
	noticeID := ""
	if st, err := r.queue.Snapshot(ctx, key); err == nil {
		noticeID = st.OfflineNoticeID
	}

	if err := r.queue.OpenChannel(ctx, key, ic.GuildID); err != nil {
		ReplyEphemeral(s, ic, circleErrMsg(err))
		return
	}

	if noticeID != "" {
		if err := s.ChannelMessageDelete(ic.ChannelID, noticeID); err != nil {
			log.Printf("open: no pude borrar el aviso de cierre %s: %v", noticeID, err)
		}
	}
	r.decorateChannel(s, ic.ChannelID, true)

	ReplyPublic(s, ic, "✅ **¡Union Circle abierto!** Usá `/register` para unirte a la waitlist.")
}

func (r *Router) circleClose(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, key string) {
	if err := r.queue.CloseChannel(ctx, key, ic.GuildID); err != nil {
		ReplyEphemeral(s, ic, circleErrMsg(err))
		return
	}
	r.decorateChannel(s, ic.ChannelID, false)

	msg, err := s.ChannelMessageSend(ic.ChannelID, "❌ **Union Circle cerrado.** El host avisará cuando vuelva a abrir.")
	if err != nil {
		log.Printf("close: no pude publicar el aviso de cierre: %v", err)
	} else if err := r.queue.SetOfflineNotice(ctx, key, msg.ID); err != nil {
		log.Printf("close: no pude guardar el id del aviso: %v", err)
	}
	ReplyEphemeral(s, ic, "🔒 Canal cerrado y estado reseteado.")
}

// decorateChannel: rename con el emoji de estado + permiso de escribir para
// el rol gestionado. Todo best-effort, la verdad vive en el estado del canal.
func (r *Router) decorateChannel(s *discordgo.Session, channelID string, open bool) {
	ch, err := r.safeGetChannel(channelID)
	if err != nil {
		log.Printf("decorate: no pude leer el canal %s: %v", channelID, err)
		return
	}

	base := strings.TrimPrefix(ch.Name, r.channel.LockEmoji)
	base = strings.TrimPrefix(base, r.channel.UnlockEmoji)
	emoji := r.channel.LockEmoji
	if open {
		emoji = r.channel.UnlockEmoji
	}
	if want := emoji + base; want != ch.Name {
		if _, err := s.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: want}); err != nil {
			log.Printf("decorate: no pude renombrar %s: %v", channelID, err)
		}
	}

	if r.channel.ManagedRoleID == "" {
		return
	}
	var allow, deny int64
	if open {
		allow = discordgo.PermissionSendMessages
	} else {
		deny = discordgo.PermissionSendMessages
	}
	err = s.ChannelPermissionSet(channelID, r.channel.ManagedRoleID, discordgo.PermissionOverwriteTypeRole, allow, deny)
	if err != nil {
		log.Printf("decorate: no pude ajustar permisos en %s: %v", channelID, err)
	}
}

func (r *Router) cmdBan(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if !r.requireHost(s, ic) {
		return
	}
	userID, ok := optUserID(ic, "user")
	if !ok {
		ReplyEphemeral(s, ic, "⚠️ Falta el usuario.")
		return
	}
	reason, _ := optStr(ic, "reason")

	var expires *time.Time
	if raw, ok := optStr(ic, "duration"); ok && raw != "" {
		d, err := parseBanDuration(raw)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Duración inválida. Usá formatos como `7d`, `12h` o `30m`.")
			return
		}
		t := time.Now().Add(d)
		expires = &t
	}

	if err := r.bans.Set(ctx, userID, reason, expires); err != nil {
		ReplyEphemeral(s, ic, "⚠️ No pude guardar el ban: "+err.Error())
		return
	}

	// El baneado sale de las listas del canal actual en el momento.
	if key, err := r.channelKey(ic); err == nil {
		if _, err := r.queue.ResetUser(ctx, key, userID); err != nil {
			log.Printf("ban: no pude sacar a %s de las listas: %v", userID, err)
		}
	}

	msg := fmt.Sprintf("⛔ <@%s> baneado del Union Circle", userID)
	if expires != nil {
		msg += fmt.Sprintf(" hasta <t:%d:f>", expires.Unix())
	} else {
		msg += " de forma permanente"
	}
	if reason != "" {
		msg += ". Razón: " + reason
	}
	ReplyEphemeral(s, ic, msg+".")
}

func (r *Router) cmdUnban(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if !r.requireHost(s, ic) {
		return
	}
	userID, ok := optUserID(ic, "user")
	if !ok {
		ReplyEphemeral(s, ic, "⚠️ Falta el usuario.")
		return
	}
	removed, err := r.bans.Remove(ctx, userID)
	if err != nil {
		ReplyEphemeral(s, ic, "⚠️ No pude quitar el ban: "+err.Error())
		return
	}
	if !removed {
		ReplyEphemeral(s, ic, fmt.Sprintf("<@%s> no tenía un ban activo.", userID))
		return
	}
	ReplyEphemeral(s, ic, fmt.Sprintf("✅ Ban de <@%s> removido.", userID))
}

func circleErrMsg(err error) string {
	var cooldown *service.CooldownError
	switch {
	case errors.As(err, &cooldown):
		return fmt.Sprintf("⏱️ Esperá **%d** segundos antes de alternar el canal de nuevo.", int(cooldown.Remaining.Seconds()+0.999))
	case errors.Is(err, service.ErrSessionActive):
		return "⚠️ Ya hay una sesión activa. Terminala con `/circle end` antes de iniciar otra."
	case errors.Is(err, service.ErrNoActiveSession):
		return "⚠️ No hay sesión activa en este canal."
	case errors.Is(err, service.ErrEmptyQueue):
		return "📋 La cola principal está vacía. Usá `/circle next` para traer jugadores de la waitlist."
	case errors.Is(err, service.ErrEmptyWaitlist):
		return "⏳ La waitlist está vacía."
	default:
		return "⚠️ No se pudo completar la operación: " + err.Error()
	}
}

func countOrDefault(count, def int) int {
	if count <= 0 {
		return def
	}
	return count
}

// parseBanDuration: "7d", "12h", "30m". Sin sufijo se asume minutos.
func parseBanDuration(raw string) (time.Duration, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return 0, fmt.Errorf("empty duration")
	}
	unit := time.Minute
	switch raw[len(raw)-1] {
	case 'd':
		unit = 24 * time.Hour
		raw = raw[:len(raw)-1]
	case 'h':
		unit = time.Hour
		raw = raw[:len(raw)-1]
	case 'm':
		unit = time.Minute
		raw = raw[:len(raw)-1]
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return time.Duration(n) * unit, nil
}
