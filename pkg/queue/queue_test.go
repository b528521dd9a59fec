package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type warmup struct {
	ProjectID int64 `json:"project_id"`
	Days      int   `json:"days"`
}

func TestNewMessage_CarriesRawPayload(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	data, err := newMessage("metrics.warmup", warmup{ProjectID: 9, Days: 30}, now)
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "metrics.warmup", msg.Type)
	assert.NotEmpty(t, msg.ID)
	assert.Zero(t, msg.Attempts)

	p, err := ParsePayload[warmup](msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, warmup{ProjectID: 9, Days: 30}, *p)
}

func TestParsePayload_BadInputIsPermanent(t *testing.T) {
	_, err := ParsePayload[warmup](json.RawMessage(`{"project_id":"x"}`))
	assert.ErrorIs(t, err, ErrPermanent)

	_, err = ParsePayload[warmup](nil)
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestDecide(t *testing.T) {
	fail := errors.New("clickhouse down")

	assert.Equal(t, outcomeDone, decide(Message{}, nil, 3))
	assert.Equal(t, outcomeRetry, decide(Message{Attempts: 2}, fail, 3))
	assert.Equal(t, outcomeDead, decide(Message{Attempts: 3}, fail, 3))
	assert.Equal(t, outcomeDead, decide(Message{}, fmt.Errorf("job: %w", ErrPermanent), 3))
	assert.Equal(t, outcomeRequeue, decide(Message{}, fmt.Errorf("fetch: %w", context.Canceled), 3))
}
