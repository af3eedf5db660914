package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gardien-bot/gardien/modbot/platform"

	"github.com/bwmarrin/discordgo"
)

// Resolves the "member" option of an invocation against the live guild.
func (eng *Engine) targetMember(ctx context.Context, inv *Invocation) (*discordgo.Member, error) {
	userID := inv.Option("member")
	if userID == "" {
		return nil, &ValidationError{Message: "Il faut préciser un membre."}
	}
	m, err := eng.Client.GuildMember(ctx, inv.GuildID, userID)
	if errors.Is(err, platform.ErrNotFound) {
		return nil, &ValidationError{Message: "Ce membre est introuvable sur le serveur."}
	} else if err != nil {
		return nil, &PlatformError{Action: "lors de la récupération du membre", Err: err}
	}
	if m.User == nil {
		return nil, fmt.Errorf("member %s returned without user", userID)
	}
	return m, nil
}

func displayName(m *discordgo.Member) string {
	if m == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

func username(m *discordgo.Member) string {
	if m == nil || m.User == nil {
		return ""
	}
	return m.User.Username
}

func mention(m *discordgo.Member) string {
	if m == nil || m.User == nil {
		return ""
	}
	return m.User.Mention()
}

// avatar thumbnail for embeds; nil when the member has no custom avatar
func avatarThumbnail(m *discordgo.Member) *discordgo.MessageEmbedThumbnail {
	if m == nil || m.User == nil {
		return nil
	}
	if m.Avatar == "" && m.User.Avatar == "" {
		return nil
	}
	return &discordgo.MessageEmbedThumbnail{URL: m.AvatarURL("")}
}
