package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romkarus000/analytics-product/internal/domain/models"
	pkgkafka "github.com/romkarus000/analytics-product/pkg/kafka"
	"github.com/romkarus000/analytics-product/pkg/logger"
)

type fakeInvalidator struct {
	projects []int64
	err      error
}

func (f *fakeInvalidator) InvalidateProject(_ context.Context, projectID int64) error {
	f.projects = append(f.projects, projectID)
	return f.err
}

type enqueued struct {
	jobType string
	payload interface{}
}

type fakeQueue struct {
	jobs []enqueued
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, jobType string, payload interface{}) error {
	f.jobs = append(f.jobs, enqueued{jobType: jobType, payload: payload})
	return f.err
}

func newImportHandler() (*ImportEventsHandler, *fakeInvalidator, *fakeQueue) {
	inv := &fakeInvalidator{}
	q := &fakeQueue{}
	h := NewImportEventsHandler("analytics.imports", 30, inv, q, &fakeMetrics{}, logger.Nop())
	return h, inv, q
}

func TestImportEventsHandler_InvalidatesAndSchedulesWarmup(t *testing.T) {
	h, inv, q := newImportHandler()
	assert.Equal(t, "analytics.imports", h.Topic())

	for _, kind := range []models.ImportEventKind{models.ImportCompleted, models.UploadRemoved} {
		b, _ := json.Marshal(models.ImportEvent{EventID: "e-1", ProjectID: 7, Kind: kind})
		require.NoError(t, h.Handle(context.Background(), b))
	}

	assert.Equal(t, []int64{7, 7}, inv.projects)
	require.Len(t, q.jobs, 2)
	assert.Equal(t, WarmupJobType, q.jobs[0].jobType)
	assert.Equal(t, models.WarmupPayload{ProjectID: 7, Days: 30}, q.jobs[0].payload)
}

func TestImportEventsHandler_IgnoresUnknownKinds(t *testing.T) {
	h, inv, q := newImportHandler()
	err := h.Handle(context.Background(), []byte(`{"event_id":"e-2","project_id":7,"kind":"mapping_changed"}`))
	require.NoError(t, err)
	assert.Empty(t, inv.projects)
	assert.Empty(t, q.jobs)
}

func TestImportEventsHandler_MalformedSkipsRetry(t *testing.T) {
	h, inv, _ := newImportHandler()

	err := h.Handle(context.Background(), []byte(`{"project_id":`))
	assert.ErrorIs(t, err, pkgkafka.ErrSkipRetry)

	err = h.Handle(context.Background(), []byte(`{"kind":"import_completed"}`))
	assert.ErrorIs(t, err, pkgkafka.ErrSkipRetry)
	assert.Empty(t, inv.projects)
}

func TestImportEventsHandler_InvalidationFailureIsRetried(t *testing.T) {
	h, inv, q := newImportHandler()
	inv.err = errors.New("redis unavailable")

	err := h.Handle(context.Background(), []byte(`{"project_id":7,"kind":"import_completed"}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, pkgkafka.ErrSkipRetry)
	assert.Empty(t, q.jobs)
}

func TestImportEventsHandler_EnqueueFailureIsNotFatal(t *testing.T) {
	h, inv, q := newImportHandler()
	q.err = errors.New("queue down")

	err := h.Handle(context.Background(), []byte(`{"project_id":7,"kind":"import_completed"}`))
	assert.NoError(t, err)
	assert.Equal(t, []int64{7}, inv.projects)
}
