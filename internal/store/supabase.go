package store

import (
	"bytes"
	"context"
	"fmt"

	"stables/internal/supabase"
)

// Supabase keeps the document in the data column of row 1 of a PostgREST
// table: {"id": 1, "data": <document>}.
type Supabase struct {
	client *supabase.Client
	table  string
}

func NewSupabase(baseURL, anonKey, serviceKey, table string) (*Supabase, error) {
	if baseURL == "" || (anonKey == "" && serviceKey == "") {
		return nil, fmt.Errorf("SUPABASE_URL and a Supabase key are required for the supabase store")
	}
	return &Supabase{client: supabase.NewClient(baseURL, anonKey, serviceKey), table: table}, nil
}

func (s *Supabase) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.SelectData(ctx, s.table, DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	return data, nil
}

func (s *Supabase) Save(ctx context.Context, raw []byte) error {
	if err := s.client.UpsertData(ctx, s.table, DocumentID, raw); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *Supabase) Close() error { return nil }
