package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenPort(t *testing.T) {
	port, err := listenPort(":5000")
	require.NoError(t, err)
	assert.Equal(t, 5000, port)

	port, err = listenPort("127.0.0.1:8080")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	_, err = listenPort("5000")
	assert.Error(t, err)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service_url: http://from-file:5000\nplayback:\n  delay: 300ms\n  manual: true\n"), 0644))

	s := newSettings("test")
	cfg, err := s.load([]string{"-config", path, "-delay", "50ms", "-share", "9090"})
	require.NoError(t, err)

	assert.Equal(t, "http://from-file:5000", cfg.ServiceURL)
	assert.Equal(t, 50*time.Millisecond, cfg.Playback.Delay)
	assert.True(t, cfg.Playback.Manual, "unset flags keep the file's value")
	assert.Equal(t, 9090, cfg.SharePort)
}

func TestFlagsValidated(t *testing.T) {
	s := newSettings("test")
	_, err := s.load([]string{"-delay", "1ms"})
	assert.ErrorContains(t, err, "below min_delay")
}
