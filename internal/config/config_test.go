package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stables/internal/game"
	"stables/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRulesOverlaysDefaults(t *testing.T) {
	rules, err := ParseRules([]byte(`
entry_cap_per_owner: 2
feature:
  min_field: 12
  purse: 300000
  payouts: [0.6, 0.25, 0.15]
  house_stat_min: 90
  house_stat_max: 150
`))
	require.NoError(t, err)
	def := game.DefaultRules()
	assert.Equal(t, 2, rules.EntryCapPerOwner)
	assert.Equal(t, 12, rules.Feature.MinField)
	assert.Equal(t, []float64{0.6, 0.25, 0.15}, rules.Feature.Payouts)
	assert.Equal(t, def.Filler, rules.Filler)
	assert.Equal(t, def.CycleDays, rules.CycleDays)
	assert.Equal(t, def.Schedule, rules.Schedule)
}

func TestParseRulesRejectsUnknownKeys(t *testing.T) {
	_, err := ParseRules([]byte("entry_cap: 2\n"))
	require.Error(t, err)
}

func TestParseRulesValidates(t *testing.T) {
	_, err := ParseRules([]byte("fatigue_ceiling: 11\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fatigue_ceiling")
}

func TestParseRulesEmptyFile(t *testing.T) {
	rules, err := ParseRules(nil)
	require.NoError(t, err)
	assert.Equal(t, game.DefaultRules(), rules)
}

func TestLoadRulesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
schedule:
  - month: 5
    day: 28
    name: Tokyo Yushun
    distance: 2400
    surface: turf
    purse: 400000
`), 0o600))
	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules.Schedule, 1)
	assert.Equal(t, game.SurfaceTurf, rules.Schedule[0].Surface)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseTriggerUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	sched, err := ParseTrigger("0 21 * * *", tokyo)
	require.NoError(t, err)

	from := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC) // 20:00 in Tokyo
	next := sched.Next(from)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), next.UTC())

	_, err = ParseTrigger("not a cron", tokyo)
	require.Error(t, err)
}

func TestParseTriggerKeepsExplicitZone(t *testing.T) {
	sched, err := ParseTrigger("CRON_TZ=UTC 30 6 * * *", time.FixedZone("X", 9*3600))
	require.NoError(t, err)
	next := sched.Next(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC), next.UTC())
}

func TestLoadWorkerFromEnv(t *testing.T) {
	t.Setenv("STABLES_STORE", "sqlite")
	t.Setenv("STABLES_SQLITE_PATH", "/tmp/x.db")
	t.Setenv("STABLES_RACE_TRIGGER", "15 20 * * *")
	t.Setenv("STABLES_TIMEZONE", "UTC")
	t.Setenv("STABLES_CHECK_EVERY", "30s")
	t.Setenv("STABLES_WORKER_RUN_ONCE", "true")
	t.Setenv("STABLES_ADMIN_IDS", " 1, 2 ,,3")
	t.Setenv("STABLES_SEED", "42")
	t.Setenv("STABLES_LOG_LEVEL", "debug")
	t.Setenv("DISCORD_BOT_TOKEN", "")

	cfg, err := LoadWorkerFromEnv()
	require.NoError(t, err)
	assert.Equal(t, store.KindSQLite, cfg.Store.Kind)
	assert.Equal(t, "/tmp/x.db", cfg.Store.SQLitePath)
	assert.Equal(t, 30*time.Second, cfg.CheckEvery)
	assert.True(t, cfg.RunOnce)
	assert.Equal(t, []string{"1", "2", "3"}, cfg.Admins)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	next := cfg.Trigger.Next(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 1, 1, 20, 15, 0, 0, time.UTC), next.UTC())
}

func TestLoadWorkerRequiresDiscordChannel(t *testing.T) {
	t.Setenv("STABLES_STORE", "memory")
	t.Setenv("DISCORD_BOT_TOKEN", "tok")
	t.Setenv("DISCORD_CHANNEL_ID", "")
	_, err := LoadWorkerFromEnv()
	require.Error(t, err)
}

func TestLoadGameRejectsUnknownStore(t *testing.T) {
	t.Setenv("STABLES_STORE", "redis")
	_, err := LoadGameFromEnv()
	require.Error(t, err)
}

func TestLoadAPIFromEnv(t *testing.T) {
	t.Setenv("STABLES_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/stables")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("PORT", "9090")

	cfg, err := LoadAPIFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "https://example.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, "racing_data", cfg.Store.Table)

	t.Setenv("SUPABASE_ANON_KEY", "")
	_, err = LoadAPIFromEnv()
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("STABLES_DOTENV_MARKER=loaded\n"), 0o600))
	t.Setenv("STABLES_ENV_FILE", path)
	t.Setenv("STABLES_DOTENV_MARKER", "")
	require.NoError(t, os.Unsetenv("STABLES_DOTENV_MARKER"))

	require.NoError(t, LoadDotEnv())
	assert.Equal(t, "loaded", os.Getenv("STABLES_DOTENV_MARKER"))

	t.Setenv("STABLES_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, LoadDotEnv())
}
