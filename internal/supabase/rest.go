package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

type row struct {
	ID   int64           `json:"id"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) tableKey() string {
	if c.serviceKey != "" {
		return c.serviceKey
	}
	return c.anonKey
}

func (c *Client) restRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	key := c.tableKey()
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// SelectData reads the data column of row id in table. A missing row yields
// nil without error.
func (c *Client) SelectData(ctx context.Context, table string, id int64) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("select", "id,data")
	q.Set("id", "eq."+strconv.FormatInt(id, 10))
	req, err := c.restRequest(ctx, http.MethodGet, "/rest/v1/"+url.PathEscape(table)+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	var rows []row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s rows: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].Data, nil
}

// UpsertData writes data into row id of table, inserting it if absent.
func (c *Client) UpsertData(ctx context.Context, table string, id int64, data json.RawMessage) error {
	body, err := json.Marshal(row{ID: id, Data: data})
	if err != nil {
		return err
	}
	req, err := c.restRequest(ctx, http.MethodPost, "/rest/v1/"+url.PathEscape(table)+"?on_conflict=id", body)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	return nil
}
