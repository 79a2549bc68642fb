package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	cl "stables/internal/cli"
	"stables/internal/game"
	"stables/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newHorseCmd(apiBase *string) *cobra.Command {
	horse := &cobra.Command{
		Use:     "horse",
		Short:   "Buy and manage your horses",
		Aliases: []string{"horses", "h"},
	}
	horse.AddCommand(
		newHorseBuyCmd(apiBase),
		newHorseShowCmd(apiBase),
		newHorseFavCmd(apiBase),
		newHorseRestCmd(apiBase),
		newHorseTrainCmd(apiBase),
		newHorseRetireCmd(apiBase),
	)
	return horse
}

func newHorseBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy [name]",
		Short: "Buy a new horse",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			name, err := argOrPrompt(args, 0, "Horse name")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).BuyHorse(ctx, sess.AccessToken, name, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         http.MethodPost,
					Path:           "/v1/horses",
					Body:           cl.BuyHorseBody(name),
					IdempotencyKey: idem,
				})
			}
			printSuccess(fmt.Sprintf("Bought %s (%s).", out.Name, out.ID))
			renderHorse(out)
			return nil
		},
	}
}

func newHorseShowCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show [horse-id]",
		Short: "Show a horse with its race history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			horseID, err := argOrPrompt(args, 0, "Horse ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Horse(ctx, sess.AccessToken, horseID)
			if err != nil {
				return err
			}
			renderHorse(out)
			return nil
		},
	}
}

func newHorseFavCmd(apiBase *string) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "fav [horse-id]",
		Short: "Mark a horse as favourite for bulk entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			horseID, err := argOrPrompt(args, 0, "Horse ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).SetFavorite(ctx, sess.AccessToken, horseID, !off)
			if err != nil {
				return err
			}
			if out.Favorite {
				printSuccess(out.Name + " is now a favourite.")
			} else {
				printInfo(out.Name + " is no longer a favourite.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "clear the favourite mark")
	return cmd
}

func newHorseRestCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rest [horse-id]",
		Short: "Rest a horse to shed fatigue (once per day)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			horseID, err := argOrPrompt(args, 0, "Horse ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Rest(ctx, sess.AccessToken, horseID)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("%s rested. Fatigue %d.", out.Name, out.Fatigue))
			return nil
		},
	}
}

func newHorseTrainCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "train [horse-id] [speed|stamina|temper] [points]",
		Short: "Spend growth on a stat",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			horseID, err := argOrPrompt(args, 0, "Horse ID")
			if err != nil {
				return err
			}
			var stat string
			if len(args) > 1 {
				stat = args[1]
			} else {
				stat, err = promptChoice("Stat", []string{"speed", "stamina", "temper"}, "speed")
				if err != nil {
					return err
				}
			}
			parsed, ok := game.ParseTrainStat(stat)
			if !ok {
				return fmt.Errorf("unknown stat %q", stat)
			}
			points, err := int64FromArgOrPrompt(args, 2, "Points")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Train(ctx, sess.AccessToken, horseID, string(parsed), int(points), idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         http.MethodPost,
					Path:           cl.TrainPath(horseID),
					Body:           cl.TrainBody(string(parsed), int(points)),
					IdempotencyKey: idem,
				})
			}
			printSuccess(fmt.Sprintf("%s trained %s. Growth left %d.", out.Name, parsed, out.Stats.Growth))
			return nil
		},
	}
}

func newHorseRetireCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "retire [horse-id]",
		Short: "Retire a horse from your stable",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			horseID, err := argOrPrompt(args, 0, "Horse ID")
			if err != nil {
				return err
			}
			answer, err := promptChoice("Retire "+horseID+" for good", []string{"yes", "no"}, "no")
			if err != nil {
				return err
			}
			if answer != "yes" {
				printInfo("Kept in training.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Retire(ctx, sess.AccessToken, horseID)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("%s retired with %d wins from %d starts.", out.Name, out.Wins, out.Starts))
			return nil
		},
	}
}

func newEnterCmd(apiBase *string) *cobra.Command {
	var day string
	enter := &cobra.Command{
		Use:   "enter [horse-id]",
		Short: "Enter a horse in a race day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			horseID, err := argOrPrompt(args, 0, "Horse ID")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Enter(ctx, sess.AccessToken, horseID, day, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         http.MethodPost,
					Path:           "/v1/entries",
					Body:           cl.EnterBody(horseID, day),
					IdempotencyKey: idem,
				})
			}
			printSuccess(fmt.Sprintf("%s entered for %s.", out.HorseID, out.Day))
			return nil
		},
	}
	enter.PersistentFlags().StringVar(&day, "day", "", "race day (YYYY-MM-DD), defaults to today")

	enter.AddCommand(&cobra.Command{
		Use:   "bulk [all|favorites]",
		Short: "Enter every eligible horse, or only favourites",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			mode := string(game.BulkAll)
			if len(args) > 0 {
				mode = args[0]
			}
			parsed, ok := game.ParseBulkMode(mode)
			if !ok {
				return fmt.Errorf("unknown mode %q", mode)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			ids, err := newClient(apiBase).EnterBulk(ctx, sess.AccessToken, string(parsed), day, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Entered %d horses: %s", len(ids), strings.Join(ids, ", ")))
			return nil
		},
	})
	return enter
}

func newUnenterCmd(apiBase *string) *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:     "unenter [horse-id]",
		Short:   "Withdraw a horse from a race day; bets on it are refunded",
		Aliases: []string{"withdraw"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(apiBase)
			if err != nil {
				return err
			}
			horseID, err := argOrPrompt(args, 0, "Horse ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := newClient(apiBase).Withdraw(ctx, sess.AccessToken, horseID, day); err != nil {
				return err
			}
			printSuccess(horseID + " withdrawn.")
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "race day (YYYY-MM-DD), defaults to today")
	return cmd
}

func argOrPrompt(args []string, idx int, label string) (string, error) {
	if len(args) > idx && strings.TrimSpace(args[idx]) != "" {
		return strings.TrimSpace(args[idx]), nil
	}
	return promptRequired(label)
}

func int64FromArgOrPrompt(args []string, idx int, label string) (int64, error) {
	if len(args) > idx {
		v, err := strconv.ParseInt(strings.TrimSpace(args[idx]), 10, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptInt64(label, 1)
}
