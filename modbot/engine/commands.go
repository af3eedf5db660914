package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type commandHandler func(ctx context.Context, inv *Invocation) (*Response, error)

type command struct {
	definition *discordgo.ApplicationCommand
	// capabilities the invoking member must hold
	actorPerms int64
	// capabilities the bot must hold
	botPerms int64
	handler  commandHandler
}

var permissionNames = map[int64]string{
	discordgo.PermissionKickMembers:     "kick_members",
	discordgo.PermissionManageGuild:     "manage_guild",
	discordgo.PermissionModerateMembers: "moderate_members",
	discordgo.PermissionManageRoles:     "manage_roles",
	discordgo.PermissionSendMessages:    "send_messages",
}

func (eng *Engine) commandTable() map[string]*command {
	dm := false
	perm := func(p int64) *int64 { return &p }
	memberOpt := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "member",
			Description: desc,
			Required:    true,
		}
	}
	stringOpt := func(name, desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        name,
			Description: desc,
			Required:    true,
		}
	}

	return map[string]*command{
		"mute": {
			definition: &discordgo.ApplicationCommand{
				Name:                     "mute",
				Description:              "Mute un membre pour une durée et une raison.",
				DefaultMemberPermissions: perm(discordgo.PermissionModerateMembers),
				DMPermission:             &dm,
				Options: []*discordgo.ApplicationCommandOption{
					memberOpt("Le membre à mute."),
					stringOpt("time", "La durée du mute (ex: 10m, 1h, 1d)."),
					stringOpt("reason", "La raison du mute."),
				},
			},
			actorPerms: discordgo.PermissionModerateMembers,
			botPerms:   discordgo.PermissionModerateMembers,
			handler:    eng.handleMute,
		},
		"unmute": {
			definition: &discordgo.ApplicationCommand{
				Name:                     "unmute",
				Description:              "Unmute un membre.",
				DefaultMemberPermissions: perm(discordgo.PermissionModerateMembers),
				DMPermission:             &dm,
				Options: []*discordgo.ApplicationCommandOption{
					memberOpt("Le membre à unmute."),
				},
			},
			actorPerms: discordgo.PermissionModerateMembers,
			botPerms:   discordgo.PermissionModerateMembers,
			handler:    eng.handleUnmute,
		},
		"advert": {
			definition: &discordgo.ApplicationCommand{
				Name:                     "advert",
				Description:              "Envoie un avertissement en MP à un membre.",
				DefaultMemberPermissions: perm(discordgo.PermissionKickMembers),
				DMPermission:             &dm,
				Options: []*discordgo.ApplicationCommandOption{
					memberOpt("Le membre à avertir."),
					stringOpt("reason", "La raison de l'avertissement."),
				},
			},
			actorPerms: discordgo.PermissionKickMembers,
			handler:    eng.handleWarn,
		},
		"sync": {
			definition: &discordgo.ApplicationCommand{
				Name:                     "sync",
				Description:              "Synchronise les commandes slash du bot sur ce serveur.",
				DefaultMemberPermissions: perm(discordgo.PermissionManageGuild),
				DMPermission:             &dm,
			},
			actorPerms: discordgo.PermissionManageGuild,
			handler:    eng.handleSync,
		},
	}
}

// Application command definitions, sorted by name.
func (eng *Engine) CommandDefinitions() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(eng.commands))
	for _, cmd := range eng.commands {
		out = append(out, cmd.definition)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func hasPermissions(have, want int64) bool {
	if have&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return have&want == want
}

func permissionList(bits int64) []string {
	out := []string{}
	for p, name := range permissionNames {
		if bits&p != 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (cmd *command) checkPermissions(inv *Invocation) error {
	if !hasPermissions(inv.ActorPermissions, cmd.actorPerms) {
		return &PermissionError{Side: SideActor}
	}
	if !hasPermissions(inv.BotPermissions, cmd.botPerms) {
		return &PermissionError{Side: SideBot, Missing: permissionList(cmd.botPerms &^ inv.BotPermissions)}
	}
	return nil
}

// Routes a command invocation to its handler, and translates any failure into a private reply.
// Always returns exactly one response.
func (eng *Engine) HandleCommand(ctx context.Context, inv *Invocation) *Response {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "HandleCommand", trace.WithAttributes(
		attribute.String("command", inv.Command),
		attribute.String("guild", inv.GuildID),
	))
	defer span.End()

	logger := eng.Logger.With("command", inv.Command, "guild", inv.GuildID, "actor", inv.ActorID())
	resp, err := eng.dispatchCommand(ctx, inv)
	outcome := "ok"
	if err != nil {
		outcome = errorKind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		logger.Warn("command failed", "kind", outcome, "err", err)
		resp = &Response{Content: errorMessage(err)}
	} else {
		logger.Info("command processed")
	}
	commandCount.WithLabelValues(inv.Command, outcome).Inc()
	commandDuration.WithLabelValues(inv.Command).Observe(time.Since(start).Seconds())
	return resp
}

func (eng *Engine) dispatchCommand(ctx context.Context, inv *Invocation) (resp *Response, err error) {
	// similar to an HTTP server, we want to recover any panics from handler execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("command execution exception", "err", r, "command", inv.Command)
			resp = nil
			err = fmt.Errorf("%v", r)
		}
	}()

	cmd, ok := eng.commands[inv.Command]
	if !ok {
		return nil, fmt.Errorf("commande inconnue : %s", inv.Command)
	}
	if err := cmd.checkPermissions(inv); err != nil {
		return nil, err
	}
	return cmd.handler(ctx, inv)
}
