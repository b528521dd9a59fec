package clickhouse

import (
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN_ParsesBack(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:        "ch.local",
		Port:        9000,
		Database:    "analytics",
		User:        "reader",
		Password:    "p@ss:word/1",
		DialTimeout: 5 * time.Second,
		ReadTimeout: 30 * time.Second,
		MaxExecTime: 20 * time.Second,
	})

	opts, err := ch.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, []string{"ch.local:9000"}, opts.Addr)
	assert.Equal(t, "analytics", opts.Auth.Database)
	assert.Equal(t, "reader", opts.Auth.Username)
	assert.Equal(t, "p@ss:word/1", opts.Auth.Password)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
	assert.Equal(t, 30*time.Second, opts.ReadTimeout)
	assert.EqualValues(t, 20, opts.Settings["max_execution_time"])
}

func TestBuildDSN_HTTP(t *testing.T) {
	dsn := buildDSN(ClientConfig{Host: "ch.local", Port: 8123, Database: "analytics", User: "default", UseHTTP: true})
	opts, err := ch.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, ch.HTTP, opts.Protocol)
}
