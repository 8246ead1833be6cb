package helpers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/linemap/internal/config"
)

// Runtime carries the resolved configuration and logger to subcommands.
type Runtime struct {
	Config *config.Config
	Logger zerolog.Logger
}

type runtimeKey struct{}

// WithRuntime stores rt in ctx.
func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// RuntimeFrom returns the runtime stored by the root command, or defaults
// with a disabled logger when a subcommand runs on its own.
func RuntimeFrom(ctx context.Context) *Runtime {
	if ctx != nil {
		if rt, ok := ctx.Value(runtimeKey{}).(*Runtime); ok {
			return rt
		}
	}
	return &Runtime{
		Config: config.DefaultConfig(),
		Logger: zerolog.Nop(),
	}
}
