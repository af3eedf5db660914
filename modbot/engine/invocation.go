package engine

import (
	"github.com/bwmarrin/discordgo"
)

// A single slash-command request. Lives only for the duration of one handler call.
type Invocation struct {
	Command string
	GuildID string
	// Member who ran the command. User is expected to be set.
	Actor *discordgo.Member
	// permission bits of the actor in the invoking channel
	ActorPermissions int64
	// permission bits of the bot in the invoking channel
	BotPermissions int64
	// option name to raw value. user options hold the user ID.
	Options map[string]string
}

func (inv *Invocation) Option(name string) string {
	if inv.Options == nil {
		return ""
	}
	return inv.Options[name]
}

func (inv *Invocation) ActorID() string {
	if inv.Actor == nil || inv.Actor.User == nil {
		return ""
	}
	return inv.Actor.User.ID
}

// Private reply to the invoking moderator. Every reply is ephemeral.
type Response struct {
	Content string
}
