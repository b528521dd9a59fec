package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyHandler struct {
	failures int
	calls    int
	err      error
	panics   bool
}

func (h *flakyHandler) Topic() string { return "analytics.imports" }

func (h *flakyHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.panics {
		panic("boom")
	}
	if h.calls <= h.failures {
		return h.err
	}
	return nil
}

func always(int) bool { return true }

func TestHandleWithRetry_SucceedsAfterFailures(t *testing.T) {
	h := &flakyHandler{failures: 2, err: errors.New("redis unavailable")}
	attempts, err := handleWithRetry(context.Background(), h, nil, 3, always)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestHandleWithRetry_GivesUpAfterRetryMax(t *testing.T) {
	h := &flakyHandler{failures: 10, err: errors.New("redis unavailable")}
	attempts, err := handleWithRetry(context.Background(), h, nil, 2, always)
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestHandleWithRetry_SkipRetry(t *testing.T) {
	h := &flakyHandler{failures: 10, err: fmt.Errorf("decode: %w", ErrSkipRetry)}
	attempts, err := handleWithRetry(context.Background(), h, nil, 5, always)
	assert.ErrorIs(t, err, ErrSkipRetry)
	assert.Equal(t, 1, attempts)
}

func TestHandleWithRetry_StopsWhenWaitRefuses(t *testing.T) {
	h := &flakyHandler{failures: 10, err: errors.New("x")}
	attempts, err := handleWithRetry(context.Background(), h, nil, 5, func(int) bool { return false })
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestHandleWithRetry_RecoversPanics(t *testing.T) {
	h := &flakyHandler{panics: true}
	_, err := handleWithRetry(context.Background(), h, nil, 0, always)
	assert.ErrorContains(t, err, "panic")
}

func TestBackoffWithJitter_Bounds(t *testing.T) {
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(50*time.Millisecond, 2*time.Second, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 2*time.Second)
	}
}

func TestEncodeValue(t *testing.T) {
	v, err := encodeValue(map[string]int64{"project_id": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"project_id":3}`, string(v))

	v, err = encodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(v))

	_, err = encodeValue(func() {})
	assert.Error(t, err)
}
