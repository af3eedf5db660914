// Binds a discordgo session to the moderation engine: one handler per gateway event type,
// registered once at startup.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/gardien-bot/gardien/modbot/engine"

	"github.com/bwmarrin/discordgo"
)

// Privileged intents (members, presences) must also be enabled for the application in the developer portal.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildPresences |
	discordgo.IntentsGuildMessageReactions

// upper bound on the platform calls made for a single event
var eventTimeout = 10 * time.Second

type Gateway struct {
	Session *discordgo.Session
	Engine  *engine.Engine
	Logger  *slog.Logger

	removers []func()
}

func New(session *discordgo.Session, eng *engine.Engine, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	session.Identify.Intents = Intents
	g := &Gateway{
		Session: session,
		Engine:  eng,
		Logger:  logger.With("component", "gateway"),
	}
	g.removers = []func(){
		session.AddHandler(g.onReady),
		session.AddHandler(g.onInteractionCreate),
		session.AddHandler(g.onReactionAdd),
	}
	return g
}

func (g *Gateway) Open() error {
	return g.Session.Open()
}

func (g *Gateway) Close() error {
	for _, rm := range g.removers {
		rm()
	}
	return g.Session.Close()
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	g.Logger.Info("connected to discord", "user", r.User.Username, "guilds", len(r.Guilds))

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	n, err := g.Engine.SyncGlobalCommands(ctx)
	if err != nil {
		g.Logger.Error("failed to sync global commands at startup", "err", err)
		return
	}
	g.Logger.Info("synced global commands", "count", n)
}

func (g *Gateway) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	inv, ok := invocationFromInteraction(i.Interaction)
	if !ok {
		return
	}
	logger := g.Logger.With("command", inv.Command, "guild", inv.GuildID, "interaction", i.ID)

	// acknowledge right away: the platform drops interactions which are not answered within a few seconds
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logger.Error("failed to defer interaction response", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	resp := g.Engine.HandleCommand(ctx, inv)

	_, err = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: resp.Content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		logger.Error("failed to send interaction follow-up", "err", err)
	}
}

func (g *Gateway) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	// failures are logged by the engine
	_ = g.Engine.HandleReactionAdd(ctx, reactionFromEvent(r))
}
