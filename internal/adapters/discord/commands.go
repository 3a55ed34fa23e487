package discord

import "github.com/bwmarrin/discordgo"

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "register",
		Description: "Únete a la waitlist del Union Circle de este canal",
	},
	{
		Name:        "status",
		Description: "Ver tu posición en el Union Circle (o la de otro usuario)",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Usuario a consultar (default: vos)",
			Required:    false,
		}},
	},
	{
		Name:        "queue",
		Description: "Ver las listas del canal",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "Ver la cola principal"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "waiting", Description: "Ver la waitlist"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "stats", Description: "Estadísticas del canal"},
		},
	},
	{
		Name:        "circle",
		Description: "Gestión del Union Circle (solo hosts)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "open", Description: "Abrir el canal y resetear todo"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "close", Description: "Cerrar el canal y resetear todo"},
			{
				Type: discordgo.ApplicationCommandOptionSubCommand, Name: "next",
				Description: "Mover jugadores de la waitlist a la cola",
				Options: []*discordgo.ApplicationCommandOption{{
					Type: discordgo.ApplicationCommandOptionInteger, Name: "count",
					Description: "Cuántos mover (default: tamaño de sesión)",
				}},
			},
			{
				Type: discordgo.ApplicationCommandOptionSubCommand, Name: "start",
				Description: "Iniciar sesión con el frente de la cola",
				Options: []*discordgo.ApplicationCommandOption{{
					Type: discordgo.ApplicationCommandOptionInteger, Name: "count",
					Description: "Jugadores en la sesión (default: tamaño de sesión)",
				}},
			},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "end", Description: "Terminar la sesión activa"},
			{
				Type: discordgo.ApplicationCommandOptionSubCommand, Name: "extend",
				Description: "Agregar jugadores de la cola a la sesión activa",
				Options: []*discordgo.ApplicationCommandOption{{
					Type: discordgo.ApplicationCommandOptionInteger, Name: "count",
					Description: "Cuántos agregar (default: 1)",
				}},
			},
			{
				Type: discordgo.ApplicationCommandOptionSubCommand, Name: "resetuser",
				Description: "Sacar a un usuario de todas las listas",
				Options: []*discordgo.ApplicationCommandOption{{
					Type: discordgo.ApplicationCommandOptionUser, Name: "user",
					Description: "Usuario a resetear", Required: true,
				}},
			},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "resetregister", Description: "Resetear solo el índice de registrados"},
			{
				Type: discordgo.ApplicationCommandOptionSubCommand, Name: "removewait",
				Description: "Sacar usuarios de la waitlist (menciones o IDs)",
				Options: []*discordgo.ApplicationCommandOption{{
					Type: discordgo.ApplicationCommandOptionString, Name: "users",
					Description: "Menciones o IDs separados por espacio", Required: true,
				}},
			},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "purgebanned", Description: "Sacar de las listas a los usuarios baneados"},
		},
	},
	{
		Name:        "ucban",
		Description: "Banear a un usuario del Union Circle (solo hosts)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Usuario a banear", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Razón del ban"},
			{Type: discordgo.ApplicationCommandOptionString, Name: "duration", Description: "Duración (ej: 7d, 12h, 30m; vacío = permanente)"},
		},
	},
	{
		Name:        "ucunban",
		Description: "Quitar un ban del Union Circle (solo hosts)",
		Options: []*discordgo.ApplicationCommandOption{{
			Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Usuario a desbanear", Required: true,
		}},
	},
}
