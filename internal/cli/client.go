package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stables/internal/game"
	"stables/internal/supabase"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// APIError is a structured failure answered by the API. Reason is empty for
// failures that are not game rejections.
type APIError struct {
	Status  int
	Reason  string
	Message string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

type envelope struct {
	OK     bool            `json:"ok"`
	Reason string          `json:"reason"`
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password string) (supabase.Session, error) {
	var out supabase.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (supabase.Session, error) {
	var out supabase.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Me(ctx context.Context, accessToken string) (game.OwnerView, error) {
	var out game.OwnerView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/me", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Season(ctx context.Context, accessToken string, upcoming int) (game.SeasonView, error) {
	var out game.SeasonView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/season?upcoming="+strconv.Itoa(upcoming), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) BuyHorse(ctx context.Context, accessToken, name, idem string) (game.HorseView, error) {
	var out game.HorseView
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/horses", accessToken, BuyHorseBody(name), &out, idem)
	return out, err
}

func (c *Client) Horse(ctx context.Context, accessToken, horseID string) (game.HorseView, error) {
	var out game.HorseView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/horses/"+url.PathEscape(horseID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) SetFavorite(ctx context.Context, accessToken, horseID string, favorite bool) (game.HorseView, error) {
	var out game.HorseView
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/horses/"+url.PathEscape(horseID)+"/favorite", accessToken, map[string]any{
		"favorite": favorite,
	}, &out, "")
	return out, err
}

func (c *Client) Rest(ctx context.Context, accessToken, horseID string) (game.HorseView, error) {
	var out game.HorseView
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/horses/"+url.PathEscape(horseID)+"/rest", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Train(ctx context.Context, accessToken, horseID, stat string, points int, idem string) (game.HorseView, error) {
	var out game.HorseView
	err := c.jsonRequest(ctx, http.MethodPost, TrainPath(horseID), accessToken, TrainBody(stat, points), &out, idem)
	return out, err
}

func (c *Client) Retire(ctx context.Context, accessToken, horseID string) (game.Retirement, error) {
	var out game.Retirement
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/horses/"+url.PathEscape(horseID)+"/retire", accessToken, nil, &out, "")
	return out, err
}

type EntryResult struct {
	HorseID string          `json:"horse_id"`
	Day     game.SeasonDate `json:"day"`
}

func (c *Client) Enter(ctx context.Context, accessToken, horseID, day, idem string) (EntryResult, error) {
	var out EntryResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/entries", accessToken, EnterBody(horseID, day), &out, idem)
	return out, err
}

func (c *Client) EnterBulk(ctx context.Context, accessToken, mode, day, idem string) ([]string, error) {
	var out struct {
		Entered []string `json:"entered"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/entries/bulk", accessToken, map[string]any{
		"mode": mode,
		"day":  day,
	}, &out, idem)
	return out.Entered, err
}

func (c *Client) Withdraw(ctx context.Context, accessToken, horseID, day string) error {
	path := "/v1/entries/" + url.PathEscape(horseID)
	if day != "" {
		path += "?day=" + url.QueryEscape(day)
	}
	return c.jsonRequest(ctx, http.MethodDelete, path, accessToken, nil, nil, "")
}

func (c *Client) Odds(ctx context.Context, accessToken string) ([]game.OddsLine, error) {
	var out struct {
		Odds []game.OddsLine `json:"odds"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/odds", accessToken, nil, &out, "")
	return out.Odds, err
}

func (c *Client) Bet(ctx context.Context, accessToken, horseID string, stake int64, idem string) (game.BetResult, error) {
	var out game.BetResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/bets", accessToken, BetBody(horseID, stake), &out, idem)
	return out, err
}

func (c *Client) NextRace(ctx context.Context, accessToken, day string) (game.PreRaceSnapshot, error) {
	var out game.PreRaceSnapshot
	err := c.jsonRequest(ctx, http.MethodGet, withDay("/v1/races/next", day), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Report(ctx context.Context, accessToken, day string) (game.PostRaceReport, error) {
	var out game.PostRaceReport
	err := c.jsonRequest(ctx, http.MethodGet, withDay("/v1/races/report", day), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Results(ctx context.Context, accessToken, day string, limit int) ([]game.RaceRecord, error) {
	var out struct {
		Races []game.RaceRecord `json:"races"`
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if day != "" {
		q.Set("day", day)
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/results?"+q.Encode(), accessToken, nil, &out, "")
	return out.Races, err
}

func (c *Client) Leaderboard(ctx context.Context, accessToken, by string, limit int) ([]game.LeaderboardRow, error) {
	var out struct {
		Rows []game.LeaderboardRow `json:"rows"`
	}
	q := url.Values{}
	q.Set("by", by)
	q.Set("limit", strconv.Itoa(limit))
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/leaderboard?"+q.Encode(), accessToken, nil, &out, "")
	return out.Rows, err
}

func (c *Client) ForceTick(ctx context.Context, accessToken string) (game.TickOutcome, error) {
	var out game.TickOutcome
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/tick", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) RequestReset(ctx context.Context, accessToken string) (game.ResetTicket, error) {
	var out game.ResetTicket
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/reset", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ConfirmReset(ctx context.Context, accessToken, token string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/admin/reset/confirm", accessToken, map[string]any{
		"token": token,
	}, nil, "")
}

// Do replays a raw request, used for queued offline writes.
func (c *Client) Do(ctx context.Context, method, path, accessToken string, body map[string]any, idem string) error {
	var in any
	if body != nil {
		in = body
	}
	return c.jsonRequest(ctx, method, path, accessToken, in, nil, idem)
}

func BuyHorseBody(name string) map[string]any {
	return map[string]any{"name": name}
}

func EnterBody(horseID, day string) map[string]any {
	return map[string]any{"horse_id": horseID, "day": day}
}

func BetBody(horseID string, stake int64) map[string]any {
	return map[string]any{"horse_id": horseID, "stake": stake}
}

func TrainPath(horseID string) string {
	return "/v1/horses/" + url.PathEscape(horseID) + "/train"
}

func TrainBody(stat string, points int) map[string]any {
	return map[string]any{"stat": stat, "points": points}
}

func withDay(path, day string) string {
	if day == "" {
		return path
	}
	return path + "?day=" + url.QueryEscape(day)
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.OK {
		return &APIError{Status: resp.StatusCode, Reason: env.Reason, Message: env.Error}
	}
	if out == nil || len(env.Detail) == 0 {
		return nil
	}
	return json.Unmarshal(env.Detail, out)
}
