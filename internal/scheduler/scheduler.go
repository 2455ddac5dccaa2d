// Package scheduler runs the periodic automatic status update: planned
// events with automatic confirmation are confirmed or canceled once their
// registration deadline has passed.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/iliyamo/seminars/internal/model"
	"github.com/iliyamo/seminars/internal/queue"
	"github.com/iliyamo/seminars/internal/repository"
	"github.com/iliyamo/seminars/internal/service"
)

// EventStore is the part of the event repository the updater needs.
type EventStore interface {
	ListStatusCandidates(ctx context.Context, now time.Time) ([]*model.Event, error)
	UpdateStatus(ctx context.Context, id uint64, status int) error
}

// StatusUpdater applies Event.StatusAfterDeadline to all candidates.
type StatusUpdater struct {
	Store    EventStore
	Notifier service.Notifier
	Log      zerolog.Logger
	// OnChange runs once after a pass that changed at least one event.
	OnChange func(ctx context.Context)
	Now      func() time.Time
}

// Run performs one pass and returns the number of events changed.  A
// failure on one event is logged and does not stop the others.
func (u *StatusUpdater) Run(ctx context.Context) (int, error) {
	now := time.Now()
	if u.Now != nil {
		now = u.Now()
	}
	events, err := u.Store.ListStatusCandidates(ctx, now)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, ev := range events {
		status, ok := ev.StatusAfterDeadline(now)
		if !ok {
			continue
		}
		if err := u.Store.UpdateStatus(ctx, ev.Record.ID, status); err != nil {
			if errors.Is(err, repository.ErrEventNotFound) {
				u.Log.Info().Uint64("event_id", ev.Record.ID).Msg("event no longer planned, skipped")
				continue
			}
			u.Log.Error().Err(err).Uint64("event_id", ev.Record.ID).Msg("status update failed")
			continue
		}
		changed++
		u.Log.Info().Uint64("event_id", ev.Record.ID).Int("status", status).Msg("event status updated")
		u.notify(ev, status, now)
	}
	if changed > 0 && u.OnChange != nil {
		u.OnChange(ctx)
	}
	return changed, nil
}

// notify tells every non-queued attendee about the decision.
func (u *StatusUpdater) notify(ev *model.Event, status int, now time.Time) {
	kind := queue.KindEventConfirmed
	if status == model.StatusCanceled {
		kind = queue.KindEventCanceled
	}
	for _, reg := range ev.Registrations() {
		if reg.OnQueue {
			continue
		}
		msg := queue.RegistrationEvent{
			Kind:           kind,
			RegistrationID: reg.ID,
			EventID:        ev.Record.ID,
			EventTitle:     ev.Title(),
			EventBegin:     ev.Record.BeginDate,
			UserID:         reg.UserID,
			Seats:          reg.Seats,
			OccurredAt:     now.UTC(),
		}
		if reg.User != nil {
			msg.Email = reg.User.Email
			msg.Name = reg.User.DisplayName()
		}
		service.PublishAsync(u.Notifier, u.Log, msg)
	}
}

// Start schedules u on spec (standard five-field cron syntax) and starts
// the cron runner.  Each pass gets a one minute timeout.  The caller stops
// the returned runner on shutdown.
func Start(spec string, u *StatusUpdater) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if n, err := u.Run(ctx); err != nil {
			u.Log.Error().Err(err).Msg("status update pass failed")
		} else if n > 0 {
			u.Log.Info().Int("changed", n).Msg("status update pass finished")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
