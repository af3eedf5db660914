package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Bad input from the moderator. Always detected before any platform mutation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type PermissionSide int

const (
	// the member who ran the command lacks a capability
	SideActor PermissionSide = iota
	// the bot lacks a capability, or ranks below the target
	SideBot
)

type PermissionError struct {
	Side PermissionSide
	// capability names, when known
	Missing []string
	// user-facing explanation, overrides the default text
	Message string
	Err     error
}

func (e *PermissionError) Error() string {
	side := "actor"
	if e.Side == SideBot {
		side = "bot"
	}
	msg := fmt.Sprintf("%s missing permission", side)
	if len(e.Missing) > 0 {
		msg += ": " + strings.Join(e.Missing, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// A direct message could not reach the target (DMs closed, or the bot is blocked).
type DeliveryError struct {
	// display name of the member
	Target string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("cannot deliver direct message to %s: %v", e.Target, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Any other failure reported by the platform API.
type PlatformError struct {
	// French phrase naming the operation, as it appears in the reply (eg, "lors du mute")
	Action string
	Err    error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform error %s: %v", e.Action, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// Metric/log label for an error returned by a command handler.
func errorKind(err error) string {
	var (
		verr *ValidationError
		perr *PermissionError
		derr *DeliveryError
		xerr *PlatformError
	)
	switch {
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &perr):
		return "permission"
	case errors.As(err, &derr):
		return "delivery"
	case errors.As(err, &xerr):
		return "platform"
	default:
		return "unexpected"
	}
}

// Turns any command failure into the single private reply the moderator receives.
func errorMessage(err error) string {
	var (
		verr *ValidationError
		perr *PermissionError
		derr *DeliveryError
		xerr *PlatformError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.As(err, &perr):
		if perr.Message != "" {
			return perr.Message
		}
		if perr.Side == SideActor {
			return "Tu n'as pas les permissions nécessaires pour utiliser cette commande."
		}
		return fmt.Sprintf("Il me manque : %s", strings.Join(perr.Missing, ", "))
	case errors.As(err, &derr):
		return fmt.Sprintf("Je n'ai pas pu envoyer de MP à **%s**. Ils ont peut-être leurs MPs désactivés ou bloquent le bot.", derr.Target)
	case errors.As(err, &xerr):
		return fmt.Sprintf("Une erreur s'est produite %s : %v", xerr.Action, xerr.Err)
	default:
		return fmt.Sprintf("Une erreur inattendue s'est produite : %v", err)
	}
}
