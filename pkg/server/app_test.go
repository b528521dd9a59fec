package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romkarus000/analytics-product/pkg/config"
	xhttp "github.com/romkarus000/analytics-product/pkg/http"
	applogger "github.com/romkarus000/analytics-product/pkg/logger"
)

func TestApp_RunContextShutsDownInOrder(t *testing.T) {
	cfg := config.Default()
	lgr := applogger.Nop()
	srv := xhttp.NewServer(lgr, nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetricsPath(""))

	var (
		order   []string
		bgDone  = make(chan struct{})
		started = make(chan struct{})
	)
	app := New(cfg, lgr, srv).
		Go(func(ctx context.Context) {
			close(started)
			<-ctx.Done()
			close(bgDone)
		}).
		OnShutdown("first", func() error { order = append(order, "first"); return nil }).
		OnShutdown("second", func() error { order = append(order, "second"); return errors.New("boom") })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- app.RunContext(ctx) }()

	<-started
	cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "close second: boom")
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	<-bgDone
	assert.Equal(t, []string{"second", "first"}, order)
}
