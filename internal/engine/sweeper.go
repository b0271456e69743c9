package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"dispatch/models"
)

// SweepExpired transitions every open call past its deadline to expired
// and supersedes the pending bids on those calls. It is safe to race with
// claims and accepts: both sides go through conditional transitions, so
// whichever commits first wins and the loser sees a state error. A missed
// tick strands nothing, because every claim path re-checks the deadline.
func (e *Engine) SweepExpired(ctx context.Context) ([]string, error) {
	expired, err := e.store.SweepExpiredCalls(ctx, e.now())
	if err != nil {
		return nil, err
	}
	for _, callID := range expired {
		e.event(ctx, callID, models.EventExpired, "", "")
	}
	if len(expired) > 0 {
		e.log.Info("expired calls swept", zap.Int("count", len(expired)))
	}
	return expired, nil
}

// Sweeper drives SweepExpired on a fixed cadence. Sweep failures are
// logged and retried on the next tick.
type Sweeper struct {
	engine *Engine
	log    *zap.Logger
	cron   *cron.Cron
}

func NewSweeper(engine *Engine, log *zap.Logger) *Sweeper {
	return &Sweeper{
		engine: engine,
		log:    log,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start begins sweeping every interval (seconds granularity). Each tick
// gets its own timeout so a slow database can never pile up ticks.
func (s *Sweeper) Start(interval time.Duration) error {
	if interval < time.Second {
		interval = time.Second
	}
	spec := fmt.Sprintf("@every %s", interval.Truncate(time.Second))
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.engine.SweepExpired(ctx); err != nil {
			s.log.Error("sweep failed, will retry next tick", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("expiration sweeper started", zap.Duration("interval", interval))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
