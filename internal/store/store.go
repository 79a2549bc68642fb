// Package store holds the season document backends. Every backend stores the
// document as one opaque JSON blob and treats Save as all-or-nothing.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type Kind string

const (
	KindFile     Kind = "file"
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
	KindSupabase Kind = "supabase"
	KindMemory   Kind = "memory"
)

// DocumentID is the row id the season document lives under in table backends.
const DocumentID = 1

// Store is a season document backend.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, raw []byte) error
	Close() error
}

type Config struct {
	Kind               Kind
	FilePath           string
	DatabaseURL        string
	SQLitePath         string
	Table              string
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindFile, nil
	case KindFile, KindPostgres, KindSQLite, KindSupabase, KindMemory:
		return k, nil
	default:
		return "", fmt.Errorf("unknown store %q", s)
	}
}

// Open builds the backend named by cfg.Kind.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	table := cfg.Table
	if table == "" {
		table = "racing_data"
	}
	var (
		s   Store
		err error
	)
	switch cfg.Kind {
	case KindFile, "":
		s, err = NewFile(cfg.FilePath)
	case KindPostgres:
		s, err = OpenPostgres(ctx, cfg.DatabaseURL, table)
	case KindSQLite:
		s, err = OpenSQLite(cfg.SQLitePath)
	case KindSupabase:
		s, err = NewSupabase(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceKey, table)
	case KindMemory:
		s = NewMemory(nil)
	default:
		err = fmt.Errorf("unknown store %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("store opened", "kind", string(cfg.Kind), "table", table)
	return s, nil
}
