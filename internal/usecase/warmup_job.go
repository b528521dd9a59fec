package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/romkarus000/analytics-product/internal/domain/models"
	"github.com/romkarus000/analytics-product/pkg/cache"
	"github.com/romkarus000/analytics-product/pkg/logger"
	"github.com/romkarus000/analytics-product/pkg/queue"
)

const WarmupJobType = "metrics.warmup"

// ErrWarmupBusy is returned while another run holds the project lock. It is
// retryable, so the queue runs the request again once the delay passes.
var ErrWarmupBusy = errors.New("warm-up already running")

// Warmer precomputes the default window of a project.
type Warmer interface {
	Warm(ctx context.Context, projectID int64, days int) error
}

// WarmupJob runs Warmer for queued warm-up requests. A per-project lock keeps
// bursts of import events from recomputing the same window in parallel.
type WarmupJob struct {
	warmer  Warmer
	locks   cache.Service
	lockTTL time.Duration
	logger  *logger.Logger
}

func NewWarmupJob(warmer Warmer, locks cache.Service, lgr *logger.Logger) *WarmupJob {
	if locks == nil {
		locks = cache.NopCache{}
	}
	return &WarmupJob{warmer: warmer, locks: locks, lockTTL: time.Minute, logger: lgr}
}

func (j *WarmupJob) Name() string { return "metrics-warmup" }
func (j *WarmupJob) Type() string { return WarmupJobType }

func (j *WarmupJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.ParsePayload[models.WarmupPayload](payload)
	if err != nil {
		return err
	}
	if p.ProjectID <= 0 || p.Days <= 0 {
		return fmt.Errorf("%w: warm-up needs project_id and days, got %d/%d", queue.ErrPermanent, p.ProjectID, p.Days)
	}

	lockKey := cache.GenerateKeyWithParams("lock:warmup", p.ProjectID)
	ok, err := j.locks.TryLock(ctx, lockKey, j.lockTTL)
	if err != nil {
		return fmt.Errorf("warm-up lock: %w", err)
	}
	if !ok {
		j.logger.Debug("warm-up already running, retrying later", logger.Int64("project_id", p.ProjectID))
		return fmt.Errorf("project %d: %w", p.ProjectID, ErrWarmupBusy)
	}
	defer func() {
		if err := j.locks.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
			j.logger.Warn("warm-up unlock failed", logger.Int64("project_id", p.ProjectID), logger.Error(err))
		}
	}()

	return j.warmer.Warm(ctx, p.ProjectID, p.Days)
}

var _ queue.Job = (*WarmupJob)(nil)
