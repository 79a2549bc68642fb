package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"stables/internal/game"
	"stables/internal/store"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// GameConfig is shared by every process that opens the season document.
type GameConfig struct {
	LogLevel slog.Level
	Store    store.Config
	Rules    game.Rules
	Seed     int64
	Admins   []string
	ResetTTL time.Duration
}

type APIConfig struct {
	GameConfig
	Addr            string
	SupabaseURL     string
	SupabaseAnonKey string
}

type WorkerConfig struct {
	GameConfig
	TriggerSpec      string
	Timezone         *time.Location
	Trigger          cron.Schedule
	CheckEvery       time.Duration
	RunOnce          bool
	DiscordToken     string
	DiscordChannelID string
}

type CLIConfig struct {
	APIBaseURL string
}

// LoadDotEnv reads .env (or STABLES_ENV_FILE) into the environment when it
// exists. Variables already set win.
func LoadDotEnv() error {
	path := envDefault("STABLES_ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadGameFromEnv() (GameConfig, error) {
	kind, err := store.ParseKind(os.Getenv("STABLES_STORE"))
	if err != nil {
		return GameConfig{}, err
	}
	rules, err := LoadRules(strings.TrimSpace(os.Getenv("STABLES_RULES_FILE")))
	if err != nil {
		return GameConfig{}, err
	}
	level, err := parseLevel(envDefault("STABLES_LOG_LEVEL", "info"))
	if err != nil {
		return GameConfig{}, err
	}
	cfg := GameConfig{
		LogLevel: level,
		Store: store.Config{
			Kind:               kind,
			FilePath:           envDefault("STABLES_DATA_FILE", "data/season.json"),
			DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
			SQLitePath:         envDefault("STABLES_SQLITE_PATH", "data/season.db"),
			Table:              envDefault("STABLES_TABLE", "racing_data"),
			SupabaseURL:        strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
			SupabaseAnonKey:    strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
			SupabaseServiceKey: strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_KEY")),
		},
		Rules:    rules,
		Seed:     envInt64Default("STABLES_SEED", 0),
		Admins:   envList("STABLES_ADMIN_IDS"),
		ResetTTL: envDurationDefault("STABLES_RESET_TTL", 2*time.Minute),
	}
	switch kind {
	case store.KindPostgres:
		if cfg.Store.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL is required")
		}
	case store.KindSupabase:
		if cfg.Store.SupabaseURL == "" {
			return cfg, fmt.Errorf("SUPABASE_URL is required")
		}
	}
	return cfg, nil
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("STABLES_API_ADDR", ":8080")
	}

	gc, err := LoadGameFromEnv()
	if err != nil {
		return APIConfig{}, err
	}
	cfg := APIConfig{
		GameConfig:      gc,
		Addr:            addr,
		SupabaseURL:     gc.Store.SupabaseURL,
		SupabaseAnonKey: gc.Store.SupabaseAnonKey,
	}
	if cfg.SupabaseURL == "" {
		return cfg, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return cfg, fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	gc, err := LoadGameFromEnv()
	if err != nil {
		return WorkerConfig{}, err
	}
	cfg := WorkerConfig{
		GameConfig:       gc,
		TriggerSpec:      envDefault("STABLES_RACE_TRIGGER", "0 21 * * *"),
		CheckEvery:       envDurationDefault("STABLES_CHECK_EVERY", time.Minute),
		RunOnce:          envBoolDefault("STABLES_WORKER_RUN_ONCE", false),
		DiscordToken:     strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN")),
		DiscordChannelID: strings.TrimSpace(os.Getenv("DISCORD_CHANNEL_ID")),
	}
	cfg.Timezone, err = time.LoadLocation(envDefault("STABLES_TIMEZONE", "Asia/Tokyo"))
	if err != nil {
		return cfg, fmt.Errorf("STABLES_TIMEZONE: %w", err)
	}
	cfg.Trigger, err = ParseTrigger(cfg.TriggerSpec, cfg.Timezone)
	if err != nil {
		return cfg, err
	}
	if cfg.CheckEvery <= 0 {
		return cfg, fmt.Errorf("STABLES_CHECK_EVERY must be positive")
	}
	if cfg.DiscordToken != "" && cfg.DiscordChannelID == "" {
		return cfg, fmt.Errorf("DISCORD_CHANNEL_ID is required when DISCORD_BOT_TOKEN is set")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("STB_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

// ParseTrigger parses a five-field cron spec evaluated in loc. A spec that
// carries its own CRON_TZ or TZ prefix keeps it.
func ParseTrigger(spec string, loc *time.Location) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if loc != nil && !strings.HasPrefix(spec, "CRON_TZ=") && !strings.HasPrefix(spec, "TZ=") {
		spec = "CRON_TZ=" + loc.String() + " " + spec
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse race trigger %q: %w", spec, err)
	}
	return sched, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("STABLES_LOG_LEVEL: %w", err)
	}
	return level, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
