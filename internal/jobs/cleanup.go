package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/metrics"
	"github.com/advenue/screen-server/internal/repository"
)

// Players is the part of the playback manager the cleanup job drives.
type Players interface {
	Stop(screenID string)
	StopIdle(idle time.Duration) (int64, error)
}

// Disconnector closes a screen's event streams.
type Disconnector interface {
	Disconnect(screenID string)
}

type CleanupJob struct {
	requestRepo  repository.PairingRequestRepository
	screenRepo   repository.ScreenRepository
	settingsRepo repository.SettingsRepository
	players      Players
	streams      Disconnector
	interval     time.Duration
	playerIdle   time.Duration
	now          func() time.Time
	done         chan struct{}
}

func NewCleanupJob(
	requestRepo repository.PairingRequestRepository,
	screenRepo repository.ScreenRepository,
	settingsRepo repository.SettingsRepository,
	players Players,
	streams Disconnector,
	interval time.Duration,
	playerIdle time.Duration,
) *CleanupJob {
	return &CleanupJob{
		requestRepo:  requestRepo,
		screenRepo:   screenRepo,
		settingsRepo: settingsRepo,
		players:      players,
		streams:      streams,
		interval:     interval,
		playerIdle:   playerIdle,
		now:          time.Now,
		done:         make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := j.now()
	j.runCleanup(ctx, "pairing_requests", func(ctx context.Context) (int64, error) {
		return j.requestRepo.DeleteExpired(ctx, now)
	})
	j.runCleanup(ctx, "expired_screens", func(ctx context.Context) (int64, error) {
		return j.removeExpiredScreens(ctx, now)
	})
	if j.playerIdle > 0 {
		j.runCleanup(ctx, "idle_players", func(context.Context) (int64, error) {
			return j.players.StopIdle(j.playerIdle)
		})
	}
}

// removeExpiredScreens drops screens whose session token ran out, together
// with everything that hangs off them.
func (j *CleanupJob) removeExpiredScreens(ctx context.Context, now time.Time) (int64, error) {
	ids, err := j.screenRepo.DeleteTokenExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		j.players.Stop(id)
		j.streams.Disconnect(id)
		if err := j.settingsRepo.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("screenId", id).Msg("failed to delete settings of expired screen")
		}
	}
	return int64(len(ids)), nil
}

func (j *CleanupJob) runCleanup(ctx context.Context, kind string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", kind)
	} else if count > 0 {
		metrics.CleanupRemovedTotal.WithLabelValues(kind).Add(float64(count))
		log.Info().Int64("count", count).Msgf("cleaned up %s", kind)
	}
}
