package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateRequest is returned when an idempotency key was already applied.
var ErrDuplicateRequest = errors.New("duplicate idempotency key")

const resetAction = "reset"

// Store persists the season document as an opaque blob. Load returns nil or
// empty bytes when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, raw []byte) error
}

// Trigger yields the next wall-clock time a race is due after t.
// cron.Schedule satisfies it.
type Trigger interface {
	Next(t time.Time) time.Time
}

type Options struct {
	Rules    Rules
	Seed     int64
	Admins   []string
	ResetTTL time.Duration
	Now      func() time.Time
}

// Service runs every game operation as load, validate and mutate, then one
// save. Operations are serialised in-process.
type Service struct {
	store   Store
	log     *slog.Logger
	mu      sync.Mutex
	rand    *mathrand.Rand
	engine  *Engine
	seed    int64
	now     func() time.Time
	confirm *ConfirmStore
	admins  map[string]struct{}
}

func NewService(store Store, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	src := opts.Seed
	if src == 0 {
		src = now().UnixNano()
	}
	admins := map[string]struct{}{}
	for _, id := range opts.Admins {
		if id = strings.TrimSpace(id); id != "" {
			admins[id] = struct{}{}
		}
	}
	return &Service{
		store:   store,
		log:     logger,
		rand:    mathrand.New(mathrand.NewSource(src)),
		engine:  NewEngine(opts.Rules),
		seed:    opts.Seed,
		now:     now,
		confirm: NewConfirmStore(opts.ResetTTL, now),
		admins:  admins,
	}
}

func (s *Service) Rules() Rules {
	return s.engine.Rules
}

func (s *Service) load(ctx context.Context) (*Document, error) {
	raw, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load season: %w", err)
	}
	doc, migrated, err := DecodeDocument(raw, s.engine.Rules)
	if err != nil {
		return nil, err
	}
	if migrated && len(raw) > 0 {
		s.log.Info("season document migrated", "schema_version", doc.SchemaVersion)
	}
	return doc, nil
}

func (s *Service) save(ctx context.Context, doc *Document) error {
	raw, err := EncodeDocument(doc)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, raw); err != nil {
		return fmt.Errorf("save season: %w", err)
	}
	return nil
}

// mutate runs fn against the current persisted document and saves once if fn
// succeeds. A failing fn leaves the stored state untouched.
func (s *Service) mutate(ctx context.Context, idem string, fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if !doc.claimKey(strings.TrimSpace(idem)) {
		return ErrDuplicateRequest
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(ctx, doc)
}

func (s *Service) view(ctx context.Context, fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(doc)
}

func (s *Service) RegisterOwner(ctx context.Context, ownerID string) (OwnerView, error) {
	var out OwnerView
	err := s.mutate(ctx, "", func(doc *Document) error {
		o, err := s.engine.RegisterOwner(doc, ownerID)
		if err != nil {
			return err
		}
		out, err = s.engine.OwnerView(doc, o.ID)
		return err
	})
	if err == nil {
		s.log.Info("owner registered", "owner", out.ID, "balance", out.Balance)
	}
	return out, err
}

func (s *Service) BuyHorse(ctx context.Context, ownerID, name, idem string) (HorseView, error) {
	var out HorseView
	err := s.mutate(ctx, idem, func(doc *Document) error {
		h, err := s.engine.BuyHorse(doc, ownerID, name, s.rand)
		if err != nil {
			return err
		}
		out = s.engine.horseView(doc, h)
		return nil
	})
	if err == nil {
		s.log.Info("horse bought", "owner", ownerID, "horse", out.ID, "name", out.Name)
	}
	return out, err
}

func (s *Service) SetFavorite(ctx context.Context, ownerID, horseID string, favorite bool) (HorseView, error) {
	var out HorseView
	err := s.mutate(ctx, "", func(doc *Document) error {
		h, err := s.engine.SetFavorite(doc, ownerID, horseID, favorite)
		if err != nil {
			return err
		}
		out = s.engine.horseView(doc, h)
		return nil
	})
	return out, err
}

// Register enters a horse. A zero day means today.
func (s *Service) Register(ctx context.Context, ownerID, horseID string, day SeasonDate, idem string) (SeasonDate, error) {
	err := s.mutate(ctx, idem, func(doc *Document) error {
		if day.IsZero() {
			day = doc.Today()
		}
		return s.engine.Register(doc, ownerID, horseID, day)
	})
	if err == nil {
		s.log.Info("horse entered", "owner", ownerID, "horse", horseID, "day", day.Key())
	}
	return day, err
}

func (s *Service) BulkRegister(ctx context.Context, ownerID string, mode BulkMode, day SeasonDate, idem string) ([]string, error) {
	var out []string
	err := s.mutate(ctx, idem, func(doc *Document) error {
		if day.IsZero() {
			day = doc.Today()
		}
		var err error
		out, err = s.engine.BulkRegister(doc, ownerID, mode, day)
		return err
	})
	if err == nil {
		s.log.Info("horses entered", "owner", ownerID, "count", len(out), "mode", mode, "day", day.Key())
	}
	return out, err
}

func (s *Service) Unregister(ctx context.Context, ownerID, horseID string, day SeasonDate) error {
	return s.mutate(ctx, "", func(doc *Document) error {
		if day.IsZero() {
			day = doc.Today()
		}
		return s.engine.Unregister(doc, ownerID, horseID, day)
	})
}

func (s *Service) PlaceBet(ctx context.Context, in BetInput) (BetResult, error) {
	var out BetResult
	err := s.mutate(ctx, in.IdempotencyKey, func(doc *Document) error {
		bet, err := s.engine.PlaceBet(doc, in.OwnerID, in.HorseID, in.Stake, s.now())
		if err != nil {
			return err
		}
		out = BetResult{HorseID: in.HorseID, Stake: bet.Stake, Odds: bet.Odds, Balance: doc.Owners[in.OwnerID].Balance}
		return nil
	})
	if err == nil {
		s.log.Info("bet placed", "owner", in.OwnerID, "horse", in.HorseID, "stake", out.Stake, "odds", out.Odds)
	}
	return out, err
}

func (s *Service) Rest(ctx context.Context, ownerID, horseID string) (HorseView, error) {
	var out HorseView
	err := s.mutate(ctx, "", func(doc *Document) error {
		h, err := s.engine.Rest(doc, ownerID, horseID)
		if err != nil {
			return err
		}
		out = s.engine.horseView(doc, h)
		return nil
	})
	return out, err
}

func (s *Service) Train(ctx context.Context, in TrainInput) (HorseView, error) {
	var out HorseView
	err := s.mutate(ctx, in.IdempotencyKey, func(doc *Document) error {
		h, err := s.engine.Train(doc, in.OwnerID, in.HorseID, in.Stat, in.Points)
		if err != nil {
			return err
		}
		out = s.engine.horseView(doc, h)
		return nil
	})
	return out, err
}

func (s *Service) RetireHorse(ctx context.Context, ownerID, horseID string) (Retirement, error) {
	var out Retirement
	err := s.mutate(ctx, "", func(doc *Document) error {
		ret, refunds, err := s.engine.RetireHorse(doc, ownerID, horseID)
		if err != nil {
			return err
		}
		out = ret
		if len(refunds) > 0 {
			s.log.Info("bets refunded on retirement", "horse", horseID, "count", len(refunds))
		}
		return nil
	})
	if err == nil {
		s.log.Info("horse retired", "owner", ownerID, "horse", horseID, "reason", out.Reason)
	}
	return out, err
}

// Tick resolves today's race unconditionally, subject only to the
// once-per-day guard.
func (s *Service) Tick(ctx context.Context) (TickOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return TickOutcome{}, err
	}
	return s.tickLocked(ctx, doc)
}

// TickIfDue runs a tick when the trigger has fired since the last one. On a
// fresh season it only records now as the reference point. ran is false when
// nothing was due.
func (s *Service) TickIfDue(ctx context.Context, trigger Trigger) (out TickOutcome, ran bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return TickOutcome{}, false, err
	}
	now := s.now()
	if doc.Clock.LastTickAt.IsZero() {
		doc.Clock.LastTickAt = now.UTC()
		return TickOutcome{}, false, s.save(ctx, doc)
	}
	if trigger.Next(doc.Clock.LastTickAt).After(now) {
		return TickOutcome{}, false, nil
	}
	out, err = s.tickLocked(ctx, doc)
	if errors.Is(err, ErrTickAlreadyRan) {
		return TickOutcome{}, false, nil
	}
	if err != nil {
		return TickOutcome{}, false, err
	}
	return out, true, nil
}

func (s *Service) tickLocked(ctx context.Context, doc *Document) (TickOutcome, error) {
	seed := s.seed
	if seed == 0 {
		var err error
		if seed, err = NewSeed(); err != nil {
			return TickOutcome{}, err
		}
	}
	out, err := s.engine.Tick(doc, seed, uuid.NewString(), s.now())
	if err != nil {
		return TickOutcome{}, err
	}
	if err := s.save(ctx, doc); err != nil {
		return TickOutcome{}, err
	}
	rec := out.Record
	attrs := []any{"date", rec.Date.Key(), "race", rec.Name, "held", rec.Held, "field", len(rec.Results), "seed", rec.Seed, "retired", len(out.Retired)}
	if w, ok := rec.Winner(); ok {
		attrs = append(attrs, "winner", w.HorseID)
	}
	s.log.Info("race resolved", attrs...)
	return out, nil
}

func (s *Service) Odds(ctx context.Context) ([]OddsLine, error) {
	var out []OddsLine
	err := s.view(ctx, func(doc *Document) error {
		out = s.engine.Odds(doc, doc.Today())
		return nil
	})
	return out, err
}

// PreRaceSnapshot projects the race on day; a zero day means today.
func (s *Service) PreRaceSnapshot(ctx context.Context, day SeasonDate) (PreRaceSnapshot, error) {
	var out PreRaceSnapshot
	err := s.view(ctx, func(doc *Document) error {
		if day.IsZero() {
			day = doc.Today()
		}
		out = s.engine.PreRace(doc, day)
		return nil
	})
	return out, err
}

// PostRaceReport projects a resolved race; a zero day means the last race.
func (s *Service) PostRaceReport(ctx context.Context, day SeasonDate) (PostRaceReport, bool, error) {
	var (
		out PostRaceReport
		ok  bool
	)
	err := s.view(ctx, func(doc *Document) error {
		if day.IsZero() {
			day = doc.Clock.LastTick
		}
		out, ok = s.engine.PostRace(doc, day)
		return nil
	})
	return out, ok, err
}

func (s *Service) Owner(ctx context.Context, ownerID string) (OwnerView, error) {
	var out OwnerView
	err := s.view(ctx, func(doc *Document) error {
		var err error
		out, err = s.engine.OwnerView(doc, ownerID)
		return err
	})
	return out, err
}

func (s *Service) Horse(ctx context.Context, horseID string) (HorseView, error) {
	var out HorseView
	err := s.view(ctx, func(doc *Document) error {
		var err error
		out, err = s.engine.HorseView(doc, horseID)
		return err
	})
	return out, err
}

func (s *Service) Season(ctx context.Context, upcoming int) (SeasonView, error) {
	var out SeasonView
	err := s.view(ctx, func(doc *Document) error {
		out = s.engine.SeasonView(doc, upcoming)
		return nil
	})
	return out, err
}

func (s *Service) Results(ctx context.Context, day *SeasonDate, limit int) ([]RaceRecord, error) {
	var out []RaceRecord
	err := s.view(ctx, func(doc *Document) error {
		out = s.engine.Results(doc, day, limit)
		return nil
	})
	return out, err
}

func (s *Service) Leaderboard(ctx context.Context, by LeaderboardBy, limit int) ([]LeaderboardRow, error) {
	var out []LeaderboardRow
	err := s.view(ctx, func(doc *Document) error {
		out = s.engine.Leaderboard(doc, by, limit)
		return nil
	})
	return out, err
}

func (s *Service) IsAdmin(id string) bool {
	_, ok := s.admins[id]
	return ok
}

// RequestReset starts the two-step season wipe.
func (s *Service) RequestReset(adminID string) (ResetTicket, error) {
	if !s.IsAdmin(adminID) {
		return ResetTicket{}, reject(ReasonUnauthorized, "admin only")
	}
	t := s.confirm.Request(adminID, resetAction)
	s.log.Warn("season reset requested", "admin", adminID, "expires_at", t.ExpiresAt)
	return t, nil
}

// ConfirmReset replaces the season with a fresh one if token is live.
func (s *Service) ConfirmReset(ctx context.Context, adminID, token string) error {
	if !s.IsAdmin(adminID) {
		return reject(ReasonUnauthorized, "admin only")
	}
	if err := s.confirm.Confirm(adminID, resetAction, token); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(ctx, NewDocument(s.engine.Rules)); err != nil {
		return err
	}
	s.log.Warn("season reset", "admin", adminID)
	return nil
}

// ForceTick is the admin path to Tick.
func (s *Service) ForceTick(ctx context.Context, adminID string) (TickOutcome, error) {
	if !s.IsAdmin(adminID) {
		return TickOutcome{}, reject(ReasonUnauthorized, "admin only")
	}
	return s.Tick(ctx)
}
