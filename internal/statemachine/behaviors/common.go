// Package behaviors holds the concrete states bots run inside a
// statemachine.Machine.
package behaviors

import (
	"log/slog"

	"github.com/Versifine/locus-statemachine/internal/world"
)

// SelfLocator reports where the bot currently stands.
type SelfLocator interface {
	SelfPosition() world.Vec3
}

type deps struct {
	log *slog.Logger
}

type Option func(*deps)

func WithLogger(l *slog.Logger) Option {
	return func(d *deps) {
		if l != nil {
			d.log = l
		}
	}
}

func newDeps(opts []Option) deps {
	d := deps{log: slog.Default()}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// livePosition reads the position of a target, treating a handle whose
// entity has left the world as no target at all.
func livePosition(entity world.EntityRef) (world.Vec3, bool) {
	if entity == nil {
		return world.Vec3{}, false
	}
	return entity.Position()
}
