package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stables/internal/game"
	"stables/internal/supabase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID string
	Email  string
	Token  string
}

// AuthClient is the subset of the Supabase client the API needs.
type AuthClient interface {
	SignUp(ctx context.Context, email, password string) (supabase.Session, error)
	Login(ctx context.Context, email, password string) (supabase.Session, error)
	VerifyAccessToken(ctx context.Context, accessToken string) (supabase.User, error)
}

type Server struct {
	log  *slog.Logger
	auth AuthClient
	game *game.Service
	mux  *chi.Mux
}

func New(logger *slog.Logger, authClient AuthClient, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:  logger,
		auth: authClient,
		game: gameSvc,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/season", s.handleSeason)
			r.Get("/me", s.handleMe)
			r.Post("/owners", s.handleRegisterOwner)

			r.Post("/horses", s.handleBuyHorse)
			r.Get("/horses/{id}", s.handleHorse)
			r.Post("/horses/{id}/favorite", s.handleFavorite)
			r.Post("/horses/{id}/rest", s.handleRest)
			r.Post("/horses/{id}/train", s.handleTrain)
			r.Post("/horses/{id}/retire", s.handleRetire)

			r.Post("/entries", s.handleRegister)
			r.Post("/entries/bulk", s.handleBulkRegister)
			r.Delete("/entries/{id}", s.handleUnregister)

			r.Get("/odds", s.handleOdds)
			r.Post("/bets", s.handleBet)

			r.Get("/races/next", s.handlePreRace)
			r.Get("/races/report", s.handlePostRace)
			r.Get("/results", s.handleResults)
			r.Get("/leaderboard", s.handleLeaderboard)

			r.Post("/admin/tick", s.handleForceTick)
			r.Post("/admin/reset", s.handleRequestReset)
			r.Post("/admin/reset/confirm", s.handleConfirmReset)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID: user.ID,
			Email:  user.Email,
			Token:  token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.UserID == "" {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

// ensureOwner registers the caller on first sight.
func (s *Server) ensureOwner(ctx context.Context, userID string) error {
	if _, err := s.game.RegisterOwner(ctx, userID); err != nil && !errors.Is(err, game.ErrAlreadyRegistered) {
		return err
	}
	return nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.SignUp(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if session.User.ID != "" {
		if err := s.ensureOwner(r.Context(), session.User.ID); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeOK(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.Login(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := s.ensureOwner(r.Context(), session.User.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, session)
}

func (s *Server) handleSeason(w http.ResponseWriter, r *http.Request) {
	upcoming, err := queryInt(r, "upcoming", 3)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Season(r.Context(), upcoming)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.Owner(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (s *Server) handleRegisterOwner(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.RegisterOwner(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, out)
}

func (s *Server) handleBuyHorse(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.BuyHorse(r.Context(), user.UserID, in.Name, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, out)
}

func (s *Server) handleHorse(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Horse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Favorite bool `json:"favorite"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.SetFavorite(r.Context(), user.UserID, chi.URLParam(r, "id"), in.Favorite)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (s *Server) handleRest(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.Rest(r.Context(), user.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Stat   string `json:"stat"`
		Points int    `json:"points"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stat, ok := game.ParseTrainStat(in.Stat)
	if !ok {
		writeDomainError(w, &game.Rejection{Reason: game.ReasonInvalidTraining, Detail: fmt.Sprintf("unknown stat %q", in.Stat)})
		return
	}
	out, err := s.game.Train(r.Context(), game.TrainInput{
		OwnerID:        user.UserID,
		HorseID:        chi.URLParam(r, "id"),
		Stat:           stat,
		Points:         in.Points,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (s *Server) handleRetire(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.RetireHorse(r.Context(), user.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		HorseID string `json:"horse_id"`
		Day     string `json:"day"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	day, err := parseDay(in.Day)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	day, err = s.game.Register(r.Context(), user.UserID, in.HorseID, day, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"horse_id": in.HorseID, "day": day})
}

func (s *Server) handleBulkRegister(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Mode string `json:"mode"`
		Day  string `json:"day"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, ok := game.ParseBulkMode(in.Mode)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", in.Mode))
		return
	}
	day, err := parseDay(in.Day)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ids, err := s.game.BulkRegister(r.Context(), user.UserID, mode, day, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"entered": ids})
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	day, err := parseDay(r.URL.Query().Get("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.Unregister(r.Context(), user.UserID, chi.URLParam(r, "id"), day); err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"horse_id": chi.URLParam(r, "id")})
}

func (s *Server) handleOdds(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Odds(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"odds": out})
}

func (s *Server) handleBet(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		HorseID string `json:"horse_id"`
		Stake   int64  `json:"stake"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.PlaceBet(r.Context(), game.BetInput{
		OwnerID:        user.UserID,
		HorseID:        in.HorseID,
		Stake:          in.Stake,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, out)
}

func (s *Server) handlePreRace(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r.URL.Query().Get("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.PreRaceSnapshot(r.Context(), day)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (s *Server) handlePostRace(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r.URL.Query().Get("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, ok, err := s.game.PostRaceReport(r.Context(), day)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no race recorded for that day")
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	var day *game.SeasonDate
	if raw := r.URL.Query().Get("day"); raw != "" {
		d, err := game.ParseSeasonDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		day = &d
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Results(r.Context(), day, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"races": out})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	by := game.LeaderboardBy(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("by"))))
	switch by {
	case "":
		by = game.LeaderboardBalance
	case game.LeaderboardBalance, game.LeaderboardWins:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown leaderboard %q", by))
		return
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Leaderboard(r.Context(), by, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"by": by, "rows": out})
}

func (s *Server) handleForceTick(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.ForceTick(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.log.Warn("race forced", "admin", user.UserID, "race", out.Record.Name, "date", out.Record.Date.Key())
	writeOK(w, http.StatusOK, out)
}

func (s *Server) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.RequestReset(user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusAccepted, out)
}

func (s *Server) handleConfirmReset(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.ConfirmReset(r.Context(), user.UserID, strings.TrimSpace(in.Token)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"reset": true})
}

func writeDomainError(w http.ResponseWriter, err error) {
	reason := game.ReasonOf(err)
	switch {
	case errors.Is(err, game.ErrDuplicateRequest):
		writeReason(w, http.StatusConflict, "DuplicateRequest", err)
	case errors.Is(err, game.ErrTickAlreadyRan):
		writeReason(w, http.StatusConflict, "TickAlreadyRan", err)
	case reason != "":
		writeReason(w, reasonStatus(reason), string(reason), err)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func reasonStatus(reason game.Reason) int {
	switch reason {
	case game.ReasonUnknownHorse, game.ReasonUnknownOwner:
		return http.StatusNotFound
	case game.ReasonNotOwner, game.ReasonUnauthorized:
		return http.StatusForbidden
	case game.ReasonAlreadyRegistered, game.ReasonAlreadyEntered, game.ReasonDuplicateBet,
		game.ReasonAlreadyRested, game.ReasonWindowClosed:
		return http.StatusConflict
	case game.ReasonConfirmationExpired:
		return http.StatusGone
	case game.ReasonInvalidStake, game.ReasonInvalidName, game.ReasonInvalidTraining:
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeOK(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, map[string]any{"ok": true, "detail": detail})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": strings.TrimSpace(message)})
}

func writeReason(w http.ResponseWriter, status int, reason string, err error) {
	writeJSON(w, status, map[string]any{"ok": false, "reason": reason, "error": err.Error()})
}

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("Idempotency-Key"))
}

func parseDay(raw string) (game.SeasonDate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return game.SeasonDate{}, nil
	}
	return game.ParseSeasonDate(raw)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
