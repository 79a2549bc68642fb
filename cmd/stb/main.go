package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	cl "stables/internal/cli"
	"stables/internal/config"
	"stables/internal/game"
	"stables/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	_ = config.LoadDotEnv()
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL
	if os.Getenv("STB_API_BASE_URL") == "" {
		if st, err := cl.LoadState(); err == nil && st.APIBaseURL != "" {
			apiBase = st.APIBaseURL
		}
	}

	root := &cobra.Command{
		Use:          "stb",
		Short:        "Stables racing season client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newMeCmd(&apiBase),
		newSeasonCmd(&apiBase),
		newSyncCmd(&apiBase),
		newHorseCmd(&apiBase),
		newEnterCmd(&apiBase),
		newUnenterCmd(&apiBase),
		newOddsCmd(&apiBase),
		newBetCmd(&apiBase),
		newRaceCmd(&apiBase),
		newResultsCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newAdminCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requireSession(apiBase *string) (cl.State, error) {
	return cl.RequireLogin(strings.TrimSpace(*apiBase))
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account and register your stable",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			session, err := newClient(apiBase).Signup(ctx, email, password)
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `stb login`.")
				return nil
			}
			if _, err := cl.RememberLogin(*apiBase, session, time.Now()); err != nil {
				return err
			}
			printSuccess("Signup complete. Your stable is open.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to the season",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			session, err := newClient(apiBase).Login(ctx, email, password)
			if err != nil {
				return err
			}
			if _, err := cl.RememberLogin(*apiBase, session, time.Now()); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.Logout(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newMeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "me",
		Short:   "Show your stable",
		Aliases: []string{"stable", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Me(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderOwner(out)
			return nil
		},
	}
}

func newSeasonCmd(apiBase *string) *cobra.Command {
	var upcoming int
	cmd := &cobra.Command{
		Use:   "season",
		Short: "Show today's date and the upcoming races",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Season(ctx, sess.AccessToken, upcoming)
			if err != nil {
				return err
			}
			renderSeason(out)
			return nil
		},
	}
	cmd.Flags().IntVarP(&upcoming, "upcoming", "n", 7, "number of upcoming race days to list")
	return cmd
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued offline writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			sent, dropped, err := syncq.Drain(func(q syncq.Command) error {
				err := client.Do(ctx, q.Method, q.Path, sess.AccessToken, q.Body, q.IdempotencyKey)
				if err != nil {
					printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
				}
				return err
			}, isAPIStructuredError)
			if err != nil {
				return err
			}
			left, err := syncq.Load()
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d rejected=%d remaining=%d", sent, len(dropped), len(left)))
			return nil
		},
	}
}

func newOddsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "odds",
		Short: "Show the odds for today's race",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Odds(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderOdds(out, sess.OwnerID)
			return nil
		},
	}
}

func newBetCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bet [horse-id] [stake]",
		Short: "Bet on a horse in today's race",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			horseID, err := argOrPrompt(args, 0, "Horse ID")
			if err != nil {
				return err
			}
			stake, err := int64FromArgOrPrompt(args, 1, "Stake")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Bet(ctx, sess.AccessToken, horseID, stake, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         http.MethodPost,
					Path:           "/v1/bets",
					Body:           cl.BetBody(horseID, stake),
					IdempotencyKey: idem,
				})
			}
			printSuccess(fmt.Sprintf("Bet %s on %s at %.2f. Balance %s.", comma(out.Stake), out.HorseID, out.Odds, comma(out.Balance)))
			return nil
		},
	}
}

func newRaceCmd(apiBase *string) *cobra.Command {
	race := &cobra.Command{
		Use:   "race",
		Short: "Race day announcements",
	}

	var day string
	next := &cobra.Command{
		Use:   "next",
		Short: "Show the field for the next race",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).NextRace(ctx, sess.AccessToken, day)
			if err != nil {
				return err
			}
			renderPreRace(out, sess.OwnerID)
			return nil
		},
	}
	next.Flags().StringVar(&day, "day", "", "race day (YYYY-MM-DD), defaults to today")

	var reportDay string
	report := &cobra.Command{
		Use:   "report",
		Short: "Show the result of the last race",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Report(ctx, sess.AccessToken, reportDay)
			if err != nil {
				return err
			}
			renderReport(out, sess.OwnerID)
			return nil
		},
	}
	report.Flags().StringVar(&reportDay, "day", "", "race day (YYYY-MM-DD), defaults to the last race")

	race.AddCommand(next, report)
	return race
}

func newResultsCmd(apiBase *string) *cobra.Command {
	var (
		day   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show recorded race results",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Results(ctx, sess.AccessToken, day, limit)
			if err != nil {
				return err
			}
			renderRaceRecords(out, sess.OwnerID)
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "only the race on this day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 5, "number of races")
	return cmd
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard [balance|wins]",
		Short: "Show owner rankings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			by := string(game.LeaderboardBalance)
			if len(args) > 0 {
				by = strings.ToLower(strings.TrimSpace(args[0]))
			} else {
				by, err = promptChoice("Rank by", []string{"balance", "wins"}, by)
				if err != nil {
					return err
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rows, err := newClient(apiBase).Leaderboard(ctx, sess.AccessToken, by, limit)
			if err != nil {
				return err
			}
			renderLeaderboard(rows, by, sess.OwnerID)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of rows")
	return cmd
}

func newAdminCmd(apiBase *string) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Season administration",
	}
	admin.AddCommand(&cobra.Command{
		Use:   "tick",
		Short: "Run today's race now",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ForceTick(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			if !out.Record.Held {
				printWarn(fmt.Sprintf("%s was not held.", out.Record.Name))
				return nil
			}
			printSuccess(fmt.Sprintf("%s run on %s.", out.Record.Name, out.Record.Date))
			renderResults(out.Record.Results, sess.OwnerID)
			return nil
		},
	})
	admin.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Wipe the season (asks for confirmation)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			ticket, err := client.RequestReset(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			printWarn(fmt.Sprintf("This deletes every horse, owner and race. Token %s expires at %s.",
				ticket.Token, ticket.ExpiresAt.Local().Format(time.Kitchen)))
			answer, err := promptChoice("Confirm reset", []string{"yes", "no"}, "no")
			if err != nil {
				return err
			}
			if answer != "yes" {
				printInfo("Reset cancelled.")
				return nil
			}
			if err := client.ConfirmReset(ctx, sess.AccessToken, ticket.Token); err != nil {
				return err
			}
			printSuccess("Season reset.")
			return nil
		},
	})
	return admin
}

// queueOnNetworkError keeps writes that never reached the API for `stb sync`.
// Answers from the API are returned unchanged.
func queueOnNetworkError(err error, q syncq.Command) error {
	if err == nil {
		return nil
	}
	if isAPIStructuredError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if qerr := syncq.Push(q); qerr != nil {
		return fmt.Errorf("request failed (%v) and could not be queued: %w", err, qerr)
	}
	printWarn(fmt.Sprintf("Offline: queued %s %s. Run `stb sync` when back online.", q.Method, q.Path))
	return nil
}

func isAPIStructuredError(err error) bool {
	var apiErr *cl.APIError
	return errors.As(err, &apiErr)
}
