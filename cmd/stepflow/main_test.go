package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/stepflow/internal/config"
)

func newTestApp(cfg *config.Config) *stepflow {
	return &stepflow{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Parallelism = 0

	err := newTestApp(cfg).run()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, config.ErrInvalidParallelism)
}

func TestRunRejectsBadArchive(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Archive.BucketURL = "bogus://nowhere"

	err := newTestApp(cfg).run()
	assert.ErrorIs(t, err, ErrOpenArchive)
}

func TestRunRejectsBadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shopping: [oops"), 0o600))

	cfg := config.NewDefaultConfig()
	cfg.OverridesFile = path

	err := newTestApp(cfg).run()
	assert.ErrorIs(t, err, ErrLoadOverrides)
}

func TestInitialize(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Archive.BucketURL = "mem://"
	cfg.Pricing.Endpoint = "http://localhost:1/prices"

	s := newTestApp(cfg)
	require.NoError(t, s.initializeArchive())
	require.NotNil(t, s.archive)
	require.NoError(t, s.initializeEngine())
	require.NoError(t, s.initializeServer())
	defer s.closeArchive()

	assert.Equal(t, "0.0.0.0:8080", s.httpServer.Addr)

	for _, path := range []string{"/health", "/metrics"} {
		w := httptest.NewRecorder()
		s.httpServer.Handler.ServeHTTP(w,
			httptest.NewRequest(http.MethodGet, path, nil),
		)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestInitializeWithoutArchive(t *testing.T) {
	s := newTestApp(config.NewDefaultConfig())
	require.NoError(t, s.initializeArchive())
	assert.Nil(t, s.archive)
	s.closeArchive()
}
