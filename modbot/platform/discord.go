package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gardien-bot/gardien/modbot/cachestore"

	"github.com/bwmarrin/discordgo"
)

// Client implementation on top of a discordgo session.
//
// Reads prefer the session state cache when it is populated; member lookups always go to the REST
// API, because timeout and role state must be current when deciding what to do.
type DiscordClient struct {
	Session *discordgo.Session
	// user ID to the ID of the direct-message channel opened with them. Optional.
	DMChannels cachestore.Cache[string]
	Logger     *slog.Logger
}

func NewDiscordClient(session *discordgo.Session, dmChannels cachestore.Cache[string], logger *slog.Logger) *DiscordClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscordClient{
		Session:    session,
		DMChannels: dmChannels,
		Logger:     logger,
	}
}

func (c *DiscordClient) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if g, err := c.Session.State.Guild(guildID); err == nil {
		return g, nil
	}
	g, err := c.Session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError(err)
	}
	return g, nil
}

func (c *DiscordClient) GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	m, err := c.Session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError(err)
	}
	if m.GuildID == "" {
		m.GuildID = guildID
	}
	return m, nil
}

func (c *DiscordClient) GuildRole(ctx context.Context, guildID, roleID string) (*discordgo.Role, error) {
	if r, err := c.Session.State.Role(guildID, roleID); err == nil {
		return r, nil
	}
	roles, err := c.Session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError(err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: role %s in guild %s", ErrNotFound, roleID, guildID)
}

func (c *DiscordClient) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if ch, err := c.Session.State.Channel(channelID); err == nil {
		return ch, nil
	}
	ch, err := c.Session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError(err)
	}
	return ch, nil
}

func (c *DiscordClient) AddMemberRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	err := c.Session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return translateError(err)
}

func (c *DiscordClient) TimeoutMember(ctx context.Context, guildID, userID string, until *time.Time, reason string) error {
	err := c.Session.GuildMemberTimeout(guildID, userID, until, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return translateError(err)
}

// Opening a DM channel is a REST call which returns the same channel every time for a given user,
// and the session state does not track it, so the channel ID is cached.
func (c *DiscordClient) dmChannel(ctx context.Context, userID string) (string, error) {
	if c.DMChannels != nil {
		if id, ok := c.DMChannels.Get(userID); ok {
			return id, nil
		}
	}
	ch, err := c.Session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", translateError(err)
	}
	if c.DMChannels != nil {
		c.DMChannels.Set(userID, ch.ID)
	}
	return ch.ID, nil
}

func (c *DiscordClient) SendDirectEmbed(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	channelID, err := c.dmChannel(ctx, userID)
	if err != nil {
		return err
	}
	_, err = c.Session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	err = translateError(err)
	if errors.Is(err, ErrNotFound) && c.DMChannels != nil {
		c.Logger.Info("cached DM channel is gone, dropping it", "user", userID, "channel", channelID)
		c.DMChannels.Purge(userID)
	}
	return err
}

func (c *DiscordClient) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := c.Session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	return translateError(err)
}

func (c *DiscordClient) SendText(ctx context.Context, channelID, text string) error {
	_, err := c.Session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return translateError(err)
}

func (c *DiscordClient) OverwriteCommands(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	if c.Session.State == nil || c.Session.State.User == nil {
		return nil, fmt.Errorf("session not ready: application ID unknown")
	}
	if cmds == nil {
		cmds = []*discordgo.ApplicationCommand{}
	}
	out, err := c.Session.ApplicationCommandBulkOverwrite(c.Session.State.User.ID, guildID, cmds, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError(err)
	}
	return out, nil
}
