// Package scheduler runs the nightly timesheet materialization jobs on the
// organization's civil calendar. Both jobs are idempotent upserts and safe
// to re-run after a partial failure.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"attendtrack-backend/models"
	"attendtrack-backend/pkg/holidays"
	"attendtrack-backend/pkg/timebase"
	"attendtrack-backend/repository"
	"attendtrack-backend/services"
)

type Scheduler struct {
	cron       *cron.Cron
	users      repository.UserRepository
	aggregator *services.TimesheetAggregator
	oracle     *holidays.Oracle
}

func New(users repository.UserRepository, aggregator *services.TimesheetAggregator, oracle *holidays.Oracle) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(timebase.Location())),
		users:      users,
		aggregator: aggregator,
		oracle:     oracle,
	}
}

// Start registers the two nightly jobs: non-working-day materialization at
// civil midnight and absence materialization at 23:59.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		s.RunNonWorkingDay(ctx, timebase.StartOfCivilDay(time.Now()))
	})
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc("59 23 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		s.RunAbsences(ctx, timebase.StartOfCivilDay(time.Now()))
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Println("Nightly timesheet jobs scheduled (00:00 and 23:59 IST)")
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunNonWorkingDay materializes weekly-off and holiday timesheets for every
// active worker whose calendar marks day as non-working. The day parameter
// is injected so tests can run any date without touching the wall clock.
func (s *Scheduler) RunNonWorkingDay(ctx context.Context, day time.Time) {
	log.Printf("[cron] materializing non-working day records for %s", timebase.DateKey(day))

	workers, err := s.users.FindAllActiveWorkers(ctx)
	if err != nil {
		log.Printf("[cron] failed to list active workers: %v", err)
		return
	}

	created := 0
	for i := range workers {
		user := &workers[i]

		kind, ok := s.nonWorkingKind(day, user)
		if !ok {
			continue
		}

		inserted, err := s.aggregator.MaterializeNonWorkingDay(ctx, user, day, kind)
		if err != nil {
			log.Printf("[cron] failed to materialize %s for user %s: %v", kind, user.ID.Hex(), err)
			continue
		}
		if inserted {
			created++
		}
	}

	log.Printf("[cron] non-working day pass done, %d records created", created)
}

// nonWorkingKind classifies the day for the user, most specific flag first.
func (s *Scheduler) nonWorkingKind(day time.Time, user *models.User) (services.NonWorkingKind, bool) {
	if holidays.IsCustomHoliday(day, user) {
		return services.KindCustomHoliday, true
	}
	public, err := s.oracle.IsPublicHoliday(day)
	if err != nil {
		log.Printf("[cron] public holiday lookup failed for %s: %v", timebase.DateKey(day), err)
	} else if public {
		return services.KindPublicHoliday, true
	}
	if holidays.IsWeeklyOff(day, user) {
		return services.KindWeeklyOff, true
	}
	return "", false
}

// RunAbsences materializes absent timesheets for active workers who have no
// ledger entry for the day and for whom the day was a working day.
func (s *Scheduler) RunAbsences(ctx context.Context, day time.Time) {
	log.Printf("[cron] materializing absences for %s", timebase.DateKey(day))

	workers, err := s.users.FindAllActiveWorkers(ctx)
	if err != nil {
		log.Printf("[cron] failed to list active workers: %v", err)
		return
	}

	created := 0
	for i := range workers {
		user := &workers[i]
		inserted, err := s.aggregator.MaterializeAbsence(ctx, user, day, s.oracle)
		if err != nil {
			log.Printf("[cron] failed to materialize absence for user %s: %v", user.ID.Hex(), err)
			continue
		}
		if inserted {
			created++
		}
	}

	log.Printf("[cron] absence pass done, %d workers marked absent", created)
}
