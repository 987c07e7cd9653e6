package token

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

// SweepInterval is how often stale expired tokens are cleaned up.
const SweepInterval = time.Hour

// Sweeper periodically marks expired-but-unused tokens as used. It runs once
// at start and then on a fixed wall-clock interval, independent of request
// traffic. Sweep failures are logged and left for the next cycle.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
}

func NewSweeper(manager *Manager) *Sweeper {
	return &Sweeper{
		manager:  manager,
		interval: SweepInterval,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	swept, err := s.manager.SweepExpired(ctx)
	if err != nil {
		log.FromContext(ctx).WithError(err).Error("Token sweep failed")
		return
	}
	if swept > 0 {
		log.FromContext(ctx).WithField("count", swept).Info("Swept expired download tokens")
	}
}
