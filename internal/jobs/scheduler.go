package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"quickai/api/internal/repository"
	"quickai/api/internal/storage"
)

// Scheduler runs the nightly orphan sweep: image objects get uploaded before
// the creation row is inserted, so a failed insert can leave an object with
// no record pointing at it. Anything older than a day with no reference gets
// removed.
type Scheduler struct {
	cron      *cron.Cron
	creations *repository.CreationRepository
	objects   *storage.ObjectStore
	log       zerolog.Logger
}

const orphanAge = 24 * time.Hour

func NewScheduler(creations *repository.CreationRepository, objects *storage.ObjectStore, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		creations: creations,
		objects:   objects,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.sweepOrphans); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweepOrphans() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	keys, err := s.objects.ListOlderThan(ctx, orphanAge)
	if err != nil {
		s.log.Error().Err(err).Msg("orphan sweep: list failed")
		return
	}

	removed := 0
	for _, key := range keys {
		referenced, err := s.creations.HasContentReference(ctx, key)
		if err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("orphan sweep: lookup failed")
			continue
		}
		if referenced {
			continue
		}
		if err := s.objects.Remove(ctx, key); err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("orphan sweep: remove failed")
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("orphan sweep finished")
	}
}
