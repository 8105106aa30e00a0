package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_ExpandsEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STAYHAVEN_TEST_TOKEN", "123:abc")
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
telegram:
  bot_token: ${STAYHAVEN_TEST_TOKEN}
api:
  base_url: http://localhost:8800
  request_timeout_seconds: 3
database:
  path: `+filepath.Join(dir, "db", "stay.db")+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout())
	assert.Equal(t, time.Minute, cfg.CacheTTL())
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 16, cfg.Telegram.Workers)
	assert.Equal(t, "configs/navigation.yaml", cfg.NavigationPath)
	assert.DirExists(t, filepath.Join(dir, "db"))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadNavigationConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "navigation.yaml")

	writeFile(t, path, `
links:
  - label: Home
    path: /
  - label: Hotels
    path: /hotels
    prefix: true
`)
	cfg, err := LoadNavigationConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Links, 2)
	assert.True(t, cfg.Links[1].Prefix)

	writeFile(t, path, `
links:
  - label: Home
    path: home
`)
	_, err = LoadNavigationConfig(path)
	assert.Error(t, err)

	writeFile(t, path, `
links:
  - label: A
    path: /a
  - label: B
    path: /a
`)
	_, err = LoadNavigationConfig(path)
	assert.Error(t, err)
}

func TestDefaultNavigationIsValid(t *testing.T) {
	assert.NoError(t, DefaultNavigation().Validate())
}

func TestWatchNavigation_Reloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "navigation.yaml")
	writeFile(t, path, "links:\n  - label: Home\n    path: /\n")

	var (
		mu     sync.Mutex
		labels []string
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := WatchNavigation(ctx, path, 10*time.Millisecond, func(cfg *NavigationConfig) {
		mu.Lock()
		defer mu.Unlock()
		labels = append(labels, cfg.Links[len(cfg.Links)-1].Label)
	})
	require.NoError(t, err)

	writeFile(t, path, "links:\n  - label: Home\n    path: /\n  - label: About\n    path: /about\n")
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(labels) == 2 && labels[1] == "About"
	}, 2*time.Second, 10*time.Millisecond)
}
