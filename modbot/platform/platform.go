// Narrow view of the chat platform API used by the moderation engine.
//
// The engine only needs a handful of lookups and mutations; keeping them behind an interface lets
// tests run against MockClient instead of a live Discord session.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
)

var (
	// The bot is not allowed to perform the action (missing capability, or target ranks above the bot).
	ErrForbidden = errors.New("forbidden by platform")
	// Direct messages to the target user are closed or blocked.
	ErrCannotMessageUser = errors.New("cannot send direct message to user")
	// Referenced guild, member, role or channel does not exist (or is not visible to the bot).
	ErrNotFound = errors.New("not found on platform")
)

type Client interface {
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	GuildRole(ctx context.Context, guildID, roleID string) (*discordgo.Role, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)

	AddMemberRole(ctx context.Context, guildID, userID, roleID, reason string) error
	// Sets the member's communication timeout. A nil "until" clears any active timeout.
	TimeoutMember(ctx context.Context, guildID, userID string, until *time.Time, reason string) error

	SendDirectEmbed(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
	SendText(ctx context.Context, channelID, text string) error

	// Replaces the full set of application commands. An empty guildID targets the global set.
	OverwriteCommands(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error)
}

// Whether the member has a communication timeout which has not yet expired.
func IsTimedOut(m *discordgo.Member, now time.Time) bool {
	if m == nil || m.CommunicationDisabledUntil == nil {
		return false
	}
	return m.CommunicationDisabledUntil.After(now)
}

func HasRole(m *discordgo.Member, roleID string) bool {
	if m == nil {
		return false
	}
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

func IsBot(m *discordgo.Member) bool {
	return m != nil && m.User != nil && m.User.Bot
}
