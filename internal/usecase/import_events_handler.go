package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/romkarus000/analytics-product/internal/domain/models"
	domrepo "github.com/romkarus000/analytics-product/internal/domain/repository"
	svcmetrics "github.com/romkarus000/analytics-product/internal/service/metrics"
	pkgkafka "github.com/romkarus000/analytics-product/pkg/kafka"
	"github.com/romkarus000/analytics-product/pkg/logger"
	"github.com/romkarus000/analytics-product/pkg/util"
)

// ProjectInvalidator drops cached results of a project.
type ProjectInvalidator interface {
	InvalidateProject(ctx context.Context, projectID int64) error
}

// ImportEventsHandler consumes import events: the cached snapshots of the
// project are dropped and a warm-up is scheduled.
type ImportEventsHandler struct {
	topic       string
	warmupDays  int
	invalidator ProjectInvalidator
	jobs        domrepo.JobQueue
	metrics     domrepo.Metrics
	logger      *logger.Logger
}

func NewImportEventsHandler(topic string, warmupDays int, invalidator ProjectInvalidator, jobs domrepo.JobQueue, metrics domrepo.Metrics, lgr *logger.Logger) *ImportEventsHandler {
	return &ImportEventsHandler{
		topic:       topic,
		warmupDays:  warmupDays,
		invalidator: invalidator,
		jobs:        jobs,
		metrics:     metrics,
		logger:      lgr,
	}
}

func (h *ImportEventsHandler) Topic() string { return h.topic }

func (h *ImportEventsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.ImportEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("import_event_unmarshal")
		svcmetrics.ImportEvents.WithLabelValues("unknown", "malformed").Inc()
		return fmt.Errorf("%w: decode import event: %v", pkgkafka.ErrSkipRetry, err)
	}
	if ev.ProjectID <= 0 {
		svcmetrics.ImportEvents.WithLabelValues(string(ev.Kind), "malformed").Inc()
		return fmt.Errorf("%w: import event %q without project_id", pkgkafka.ErrSkipRetry, ev.EventID)
	}

	switch ev.Kind {
	case models.ImportCompleted, models.UploadRemoved:
	default:
		h.logger.Debug("import event ignored",
			logger.String("event_id", ev.EventID),
			logger.String("kind", string(ev.Kind)))
		svcmetrics.ImportEvents.WithLabelValues(string(ev.Kind), "ignored").Inc()
		return nil
	}

	if at, ok := util.ParseTime(ev.OccurredAt); ok {
		h.metrics.RecordLatency("import_event_lag", time.Since(at).Seconds())
	}
	if err := h.invalidator.InvalidateProject(ctx, ev.ProjectID); err != nil {
		svcmetrics.ImportEvents.WithLabelValues(string(ev.Kind), "failed").Inc()
		return err
	}

	if h.jobs != nil && h.warmupDays > 0 {
		payload := models.WarmupPayload{ProjectID: ev.ProjectID, Days: h.warmupDays}
		if err := h.jobs.Enqueue(ctx, WarmupJobType, payload); err != nil {
			// the cache is already consistent; a missed warm-up only costs latency
			h.logger.Warn("enqueue warm-up failed",
				logger.Int64("project_id", ev.ProjectID),
				logger.Error(err))
			h.metrics.RecordError("warmup_enqueue")
		}
	}

	svcmetrics.ImportEvents.WithLabelValues(string(ev.Kind), "processed").Inc()
	h.logger.Info("import event processed",
		logger.String("event_id", ev.EventID),
		logger.Int64("project_id", ev.ProjectID),
		logger.String("kind", string(ev.Kind)))
	return nil
}

var _ pkgkafka.MessageHandler = (*ImportEventsHandler)(nil)
