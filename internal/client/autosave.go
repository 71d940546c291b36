package client

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/okian/gamespin/pkg/logger"
)

// Autosaver periodically hands the session's profile to its save queue.
type Autosaver struct {
	cron     *cron.Cron
	session  *Session
	schedule string
	log      logger.Logger
}

// NewAutosaver schedules s.Save on schedule, a standard cron expression or a
// descriptor such as "@every 30s".
func NewAutosaver(s *Session, schedule string) (*Autosaver, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("autosave schedule %q: %w", schedule, err)
	}
	return &Autosaver{
		cron:     cron.New(),
		session:  s,
		schedule: schedule,
		log:      s.log.Named("autosave"),
	}, nil
}

// Start registers the job and starts the scheduler.
func (a *Autosaver) Start(ctx context.Context) error {
	_, err := a.cron.AddFunc(a.schedule, func() {
		if a.session.Save(ctx) {
			a.log.Debug(ctx, "profile snapshot queued")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule autosave: %w", err)
	}
	a.cron.Start()
	a.log.Info(ctx, "autosave scheduled", logger.String("schedule", a.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (a *Autosaver) Stop() {
	ctx := a.cron.Stop()
	<-ctx.Done()
}
