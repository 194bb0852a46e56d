package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("TICKET_LIST_CACHE_TTL_SECONDS", "12")
	t.Setenv("ASSIST_CATEGORIZE_DEBOUNCE", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.SLA.ListCacheTTLSec)
	assert.Equal(t, 12*time.Second, cfg.SLA.ListCacheTTL())
	assert.Equal(t, 250*time.Millisecond, cfg.Assist.CategorizeDebounce)
	assert.Equal(t, time.Second, cfg.Assist.KBSearchDebounce)
	assert.Equal(t, 2*time.Second, cfg.Assist.SuggestionDebounce)
}

func TestDerivedValues(t *testing.T) {
	t.Run("addr joins host and port", func(t *testing.T) {
		assert.Equal(t, "0.0.0.0:8080", AppConfig{Host: "0.0.0.0", Port: "8080"}.Addr())
	})

	t.Run("list cache ttl falls back to 30s", func(t *testing.T) {
		assert.Equal(t, 30*time.Second, SLAConfig{}.ListCacheTTL())
	})

	t.Run("assist timeout falls back to 15s", func(t *testing.T) {
		assert.Equal(t, 15*time.Second, AssistConfig{}.RequestTimeout())
		assert.Equal(t, 5*time.Second, AssistConfig{RequestTimeoutSec: 5}.RequestTimeout())
	})
}
