package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SethEden/Hay-CAF/metrics"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func get(url string) (int, string, error) {
	resp, err := http.Get(url) //nolint:gosec
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), err
}

func TestHealthzServer_Handle(t *testing.T) {
	h := &HealthzServer{}
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestShutdownBeforeStart(t *testing.T) {
	assert.NoError(t, (&HealthzServer{}).Shutdown())
	assert.NoError(t, (&MetricsServer{}).Shutdown())
}

func TestService_StartAndShutdown(t *testing.T) {
	s := New()
	s.HealthzAddr = freeAddr(t)
	s.MetricsAddr = freeAddr(t)
	s.Start(context.Background())

	require.Eventually(t, func() bool {
		code, body, err := get(fmt.Sprintf("http://%s/healthz", s.HealthzAddr))
		return err == nil && code == http.StatusOK && body == "OK"
	}, 5*time.Second, 20*time.Millisecond)

	metrics.RecordConnection()
	require.Eventually(t, func() bool {
		code, body, err := get(fmt.Sprintf("http://%s/metrics", s.MetricsAddr))
		return err == nil && code == http.StatusOK && strings.Contains(body, "haycaf_connections_total")
	}, 5*time.Second, 20*time.Millisecond)

	s.Shutdown()
	_, _, err := get(fmt.Sprintf("http://%s/healthz", s.HealthzAddr))
	assert.Error(t, err)
}

func TestNew_DefaultAddrs(t *testing.T) {
	s := New()
	assert.Equal(t, "0.0.0.0:8080", s.HealthzAddr)
	assert.Equal(t, "0.0.0.0:7300", s.MetricsAddr)
}
