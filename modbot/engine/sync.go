package engine

import (
	"context"
	"fmt"
)

// Re-installs the full command set on the invoking guild. A bulk overwrite drops any command the
// guild had which is not in the set.
func (eng *Engine) handleSync(ctx context.Context, inv *Invocation) (*Response, error) {
	synced, err := eng.Client.OverwriteCommands(ctx, inv.GuildID, eng.CommandDefinitions())
	if err != nil {
		return nil, &PlatformError{Action: "lors de la synchronisation", Err: err}
	}
	return &Response{
		Content: fmt.Sprintf("✅ Commandes slash synchronisées pour ce serveur (%d commandes).", len(synced)),
	}, nil
}

// Installs the global command set. Called once the gateway session is ready.
func (eng *Engine) SyncGlobalCommands(ctx context.Context) (int, error) {
	synced, err := eng.Client.OverwriteCommands(ctx, "", eng.CommandDefinitions())
	if err != nil {
		return 0, fmt.Errorf("installing global commands: %w", err)
	}
	return len(synced), nil
}
