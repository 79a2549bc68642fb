package game

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Reason is the machine-readable code of a rejected point operation.
type Reason string

const (
	ReasonUnknownHorse        Reason = "UnknownHorse"
	ReasonUnknownOwner        Reason = "UnknownOwner"
	ReasonNotOwner            Reason = "NotOwner"
	ReasonFatigueTooHigh      Reason = "FatigueTooHigh"
	ReasonEntryCapExceeded    Reason = "EntryCapExceeded"
	ReasonAlreadyEntered      Reason = "AlreadyEntered"
	ReasonNotEntered          Reason = "NotEntered"
	ReasonNoEligibleHorses    Reason = "NoEligibleHorses"
	ReasonDuplicateBet        Reason = "DuplicateBet"
	ReasonInsufficientBalance Reason = "InsufficientBalance"
	ReasonInvalidStake        Reason = "InvalidStake"
	ReasonWindowClosed        Reason = "WindowClosed"
	ReasonMaxHorsesReached    Reason = "MaxHorsesReached"
	ReasonAlreadyRegistered   Reason = "AlreadyRegistered"
	ReasonInvalidName         Reason = "InvalidName"
	ReasonAlreadyRested       Reason = "AlreadyRested"
	ReasonInvalidTraining     Reason = "InvalidTraining"
	ReasonInsufficientGrowth  Reason = "InsufficientGrowth"
	ReasonStatAtCeiling       Reason = "StatAtCeiling"
	ReasonUnauthorized        Reason = "Unauthorized"
	ReasonConfirmationExpired Reason = "ConfirmationExpired"
)

// Rejection is a side-effect-free validation failure of a point operation.
type Rejection struct {
	Reason Reason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// Is matches any rejection carrying the same reason, so the sentinels below
// work with errors.Is regardless of detail text.
func (r *Rejection) Is(target error) bool {
	var t *Rejection
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == r.Reason
}

var (
	ErrUnknownHorse        = &Rejection{Reason: ReasonUnknownHorse}
	ErrUnknownOwner        = &Rejection{Reason: ReasonUnknownOwner}
	ErrNotOwner            = &Rejection{Reason: ReasonNotOwner}
	ErrFatigueTooHigh      = &Rejection{Reason: ReasonFatigueTooHigh}
	ErrEntryCapExceeded    = &Rejection{Reason: ReasonEntryCapExceeded}
	ErrAlreadyEntered      = &Rejection{Reason: ReasonAlreadyEntered}
	ErrNotEntered          = &Rejection{Reason: ReasonNotEntered}
	ErrNoEligibleHorses    = &Rejection{Reason: ReasonNoEligibleHorses}
	ErrDuplicateBet        = &Rejection{Reason: ReasonDuplicateBet}
	ErrInsufficientBalance = &Rejection{Reason: ReasonInsufficientBalance}
	ErrInvalidStake        = &Rejection{Reason: ReasonInvalidStake}
	ErrWindowClosed        = &Rejection{Reason: ReasonWindowClosed}
	ErrMaxHorsesReached    = &Rejection{Reason: ReasonMaxHorsesReached}
	ErrAlreadyRegistered   = &Rejection{Reason: ReasonAlreadyRegistered}
	ErrInvalidName         = &Rejection{Reason: ReasonInvalidName}
	ErrAlreadyRested       = &Rejection{Reason: ReasonAlreadyRested}
	ErrInvalidTraining     = &Rejection{Reason: ReasonInvalidTraining}
	ErrInsufficientGrowth  = &Rejection{Reason: ReasonInsufficientGrowth}
	ErrStatAtCeiling       = &Rejection{Reason: ReasonStatAtCeiling}
	ErrUnauthorized        = &Rejection{Reason: ReasonUnauthorized}
	ErrConfirmExpired      = &Rejection{Reason: ReasonConfirmationExpired}
)

// ErrTickAlreadyRan is returned when the tick for the current day has already
// executed. It is not a rejection: callers treat it as a no-op.
var ErrTickAlreadyRan = errors.New("tick already ran for this day")

func reject(reason Reason, format string, args ...any) error {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func ReasonOf(err error) Reason {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason
	}
	return ""
}

var blockedNameFragments = []string{
	"admin",
	"house",
	"shit",
	"fuck",
	"bitch",
	"nazi",
}

func validateHorseName(name string) error {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return reject(ReasonInvalidName, "name is required")
	}
	if utf8.RuneCountInString(clean) > 32 {
		return reject(ReasonInvalidName, "name too long (max 32 chars)")
	}
	lower := strings.ToLower(clean)
	for _, fragment := range blockedNameFragments {
		if strings.Contains(lower, fragment) {
			return reject(ReasonInvalidName, "name contains blocked content")
		}
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
