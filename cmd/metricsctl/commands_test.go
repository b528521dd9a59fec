package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFilters(t *testing.T) {
	got, err := encodeFilters([]string{"product=Course A", "manager=Anna", "manager=Boris"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"product":["Course A"],"manager":["Anna","Boris"]}`, got)

	got, err = encodeFilters(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = encodeFilters([]string{"product"})
	assert.Error(t, err)
}

func TestGetCommand(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":200,"data":{"metric":"gross_sales"}}`))
	}))
	defer srv.Close()
	serverURL = srv.URL

	cmd := newGetCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"gross-sales", "-p", "7", "--from", "2024-02-01", "--to", "2024-02-05", "-f", "product=A"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "/api/projects/7/metrics/gross-sales", gotPath)
	assert.Contains(t, gotQuery, "from=2024-02-01")
	assert.Contains(t, gotQuery, "filters=")
	assert.Contains(t, out.String(), `"metric": "gross_sales"`)
}

func TestGetCommand_UnknownMetric(t *testing.T) {
	cmd := newGetCmd()
	cmd.SetArgs([]string{"profit", "-p", "7", "--from", "2024-02-01", "--to", "2024-02-05"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
