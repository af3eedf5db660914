package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gardien-bot/gardien/modbot/auditstore"
	"github.com/gardien-bot/gardien/modbot/countstore"
	"github.com/gardien-bot/gardien/modbot/platform"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("modbot/engine")

// Platform identifiers fixed at startup.
type Config struct {
	LogChannelID   string
	RulesChannelID string
	AcceptRoleID   string
}

// runtime for moderation commands and the rules-acceptance reaction: validates requests, calls
// the platform, keeps the acceptance counter, and records an audit trail.
type Engine struct {
	Logger   *slog.Logger
	Client   platform.Client
	Counters countstore.CountStore
	Config   Config
	// optional internal sink mirroring the log channel
	Audit auditstore.AuditStore
	// optional external notification (eg, Slack) mirroring the log channel
	Notifier Notifier
	// wall clock; tests pin it
	Clock func() time.Time

	// command name to handler, built once by NewEngine and read-only afterwards
	commands map[string]*command
	// held across check-grant-increment in the acceptance path
	acceptLk sync.Mutex
}

func NewEngine(logger *slog.Logger, client platform.Client, counters countstore.CountStore, config Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	eng := &Engine{
		Logger:   logger,
		Client:   client,
		Counters: counters,
		Config:   config,
		Clock:    time.Now,
	}
	eng.commands = eng.commandTable()
	return eng
}

func (eng *Engine) now() time.Time {
	if eng.Clock == nil {
		return time.Now()
	}
	return eng.Clock()
}
