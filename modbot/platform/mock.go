package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

type RoleGrant struct {
	GuildID string
	UserID  string
	RoleID  string
	Reason  string
}

type TimeoutCall struct {
	GuildID string
	UserID  string
	Until   *time.Time
	Reason  string
}

type SentMessage struct {
	// channel ID, or user ID for direct messages
	To    string
	Text  string
	Embed *discordgo.MessageEmbed
}

// In-memory Client for tests. Seed it with Insert* and inspect the recorded calls afterwards.
//
// Mutations update the seeded members, so a second command sees the result of the first.
// The *Err fields force the matching call to fail.
type MockClient struct {
	lk sync.Mutex

	Guilds   map[string]*discordgo.Guild
	Members  map[string]*discordgo.Member
	Roles    map[string]*discordgo.Role
	Channels map[string]*discordgo.Channel

	// DM is closed for these user IDs
	ClosedDMs map[string]bool

	RoleGrants []RoleGrant
	Timeouts   []TimeoutCall
	Sent       []SentMessage
	Directs    []SentMessage
	// guild ID ("" for global) to the current command set
	Commands map[string][]*discordgo.ApplicationCommand

	AddRoleErr   error
	TimeoutErr   error
	SendErr      error
	OverwriteErr error
}

func NewMockClient() *MockClient {
	return &MockClient{
		Guilds:    make(map[string]*discordgo.Guild),
		Members:   make(map[string]*discordgo.Member),
		Roles:     make(map[string]*discordgo.Role),
		Channels:  make(map[string]*discordgo.Channel),
		ClosedDMs: make(map[string]bool),
		Commands:  make(map[string][]*discordgo.ApplicationCommand),
	}
}

func memberKey(guildID, userID string) string {
	return guildID + "/" + userID
}

func (c *MockClient) InsertGuild(g *discordgo.Guild) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.Guilds[g.ID] = g
}

func (c *MockClient) InsertMember(guildID string, m *discordgo.Member) {
	c.lk.Lock()
	defer c.lk.Unlock()
	m.GuildID = guildID
	c.Members[memberKey(guildID, m.User.ID)] = m
}

func (c *MockClient) InsertRole(guildID string, r *discordgo.Role) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.Roles[memberKey(guildID, r.ID)] = r
}

func (c *MockClient) InsertChannel(ch *discordgo.Channel) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.Channels[ch.ID] = ch
}

func (c *MockClient) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	c.lk.Lock()
	defer c.lk.Unlock()
	g, ok := c.Guilds[guildID]
	if !ok {
		return nil, fmt.Errorf("%w: guild %s", ErrNotFound, guildID)
	}
	return g, nil
}

func (c *MockClient) GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	c.lk.Lock()
	defer c.lk.Unlock()
	m, ok := c.Members[memberKey(guildID, userID)]
	if !ok {
		return nil, fmt.Errorf("%w: member %s", ErrNotFound, userID)
	}
	// hand out a copy, like a fresh REST fetch would
	cp := *m
	cp.Roles = append([]string{}, m.Roles...)
	return &cp, nil
}

func (c *MockClient) GuildRole(ctx context.Context, guildID, roleID string) (*discordgo.Role, error) {
	c.lk.Lock()
	defer c.lk.Unlock()
	r, ok := c.Roles[memberKey(guildID, roleID)]
	if !ok {
		return nil, fmt.Errorf("%w: role %s", ErrNotFound, roleID)
	}
	return r, nil
}

func (c *MockClient) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	c.lk.Lock()
	defer c.lk.Unlock()
	ch, ok := c.Channels[channelID]
	if !ok {
		return nil, fmt.Errorf("%w: channel %s", ErrNotFound, channelID)
	}
	return ch, nil
}

func (c *MockClient) AddMemberRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	c.lk.Lock()
	defer c.lk.Unlock()
	if c.AddRoleErr != nil {
		return c.AddRoleErr
	}
	m, ok := c.Members[memberKey(guildID, userID)]
	if !ok {
		return fmt.Errorf("%w: member %s", ErrNotFound, userID)
	}
	if !HasRole(m, roleID) {
		m.Roles = append(m.Roles, roleID)
	}
	c.RoleGrants = append(c.RoleGrants, RoleGrant{GuildID: guildID, UserID: userID, RoleID: roleID, Reason: reason})
	return nil
}

func (c *MockClient) TimeoutMember(ctx context.Context, guildID, userID string, until *time.Time, reason string) error {
	c.lk.Lock()
	defer c.lk.Unlock()
	if c.TimeoutErr != nil {
		return c.TimeoutErr
	}
	m, ok := c.Members[memberKey(guildID, userID)]
	if !ok {
		return fmt.Errorf("%w: member %s", ErrNotFound, userID)
	}
	m.CommunicationDisabledUntil = until
	c.Timeouts = append(c.Timeouts, TimeoutCall{GuildID: guildID, UserID: userID, Until: until, Reason: reason})
	return nil
}

func (c *MockClient) SendDirectEmbed(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	c.lk.Lock()
	defer c.lk.Unlock()
	if c.ClosedDMs[userID] {
		return fmt.Errorf("%w: %s", ErrCannotMessageUser, userID)
	}
	if c.SendErr != nil {
		return c.SendErr
	}
	c.Directs = append(c.Directs, SentMessage{To: userID, Embed: embed})
	return nil
}

func (c *MockClient) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	c.lk.Lock()
	defer c.lk.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	if _, ok := c.Channels[channelID]; !ok {
		return fmt.Errorf("%w: channel %s", ErrNotFound, channelID)
	}
	c.Sent = append(c.Sent, SentMessage{To: channelID, Embed: embed})
	return nil
}

func (c *MockClient) SendText(ctx context.Context, channelID, text string) error {
	c.lk.Lock()
	defer c.lk.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	if _, ok := c.Channels[channelID]; !ok {
		return fmt.Errorf("%w: channel %s", ErrNotFound, channelID)
	}
	c.Sent = append(c.Sent, SentMessage{To: channelID, Text: text})
	return nil
}

func (c *MockClient) OverwriteCommands(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	c.lk.Lock()
	defer c.lk.Unlock()
	if c.OverwriteErr != nil {
		return nil, c.OverwriteErr
	}
	out := append([]*discordgo.ApplicationCommand{}, cmds...)
	c.Commands[guildID] = out
	return out, nil
}
