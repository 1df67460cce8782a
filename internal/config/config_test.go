package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ALPHA_CUTOFF_HOUR", "ALPHA_SCHEDULE_AT", "APP_TIMEZONE", "STORE_BACKEND", "QUEUE_BACKEND", "LOCK_BACKEND", "CRON_SECRET"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, 15, cfg.CutoffHour)
	assert.Equal(t, "15:05", cfg.ScheduleAt)
	assert.Equal(t, "Asia/Jakarta", cfg.Timezone)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Empty(t, cfg.CronSecret)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALPHA_CUTOFF_HOUR", "16")
	t.Setenv("ALPHA_LOCK_TTL", "30s")
	t.Setenv("GEOCODER_SKIP", "true")
	t.Setenv("ACCESS_TTL", "not-a-duration")
	t.Setenv("RATE_LIMIT_PER_MIN", "many")

	cfg := Load()
	assert.Equal(t, 16, cfg.CutoffHour)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.True(t, cfg.GeocoderSkip)
	assert.Equal(t, 12*time.Hour, cfg.AccessTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
}

func TestValidate(t *testing.T) {
	valid := App{CutoffHour: 15, ScheduleAt: "15:05", Timezone: "Asia/Jakarta", StoreBackend: "memory", QueueBackend: "memory", LockBackend: "none"}

	tests := []struct {
		name    string
		mutate  func(*App)
		wantErr string
	}{
		{name: "valid"},
		{name: "cutoff too large", mutate: func(a *App) { a.CutoffHour = 24 }, wantErr: "ALPHA_CUTOFF_HOUR"},
		{name: "negative cutoff", mutate: func(a *App) { a.CutoffHour = -1 }, wantErr: "ALPHA_CUTOFF_HOUR"},
		{name: "bad schedule", mutate: func(a *App) { a.ScheduleAt = "3pm" }, wantErr: "ALPHA_SCHEDULE_AT"},
		{name: "bad zone", mutate: func(a *App) { a.Timezone = "Nowhere/City" }, wantErr: "APP_TIMEZONE"},
		{name: "bad backend", mutate: func(a *App) { a.StoreBackend = "supabase" }, wantErr: "STORE_BACKEND"},
		{name: "bad queue", mutate: func(a *App) { a.QueueBackend = "kafka" }, wantErr: "QUEUE_BACKEND"},
		{name: "bad lock", mutate: func(a *App) { a.LockBackend = "etcd" }, wantErr: "LOCK_BACKEND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("07:30")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 30, m)

	_, _, err = ParseClock("25:00")
	assert.Error(t, err)
}
