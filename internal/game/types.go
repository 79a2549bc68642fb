package game

import "time"

type OwnerView struct {
	ID       string      `json:"id"`
	Balance  int64       `json:"balance"`
	Wins     int         `json:"wins"`
	JoinedOn SeasonDate  `json:"joined_on"`
	Horses   []HorseView `json:"horses"`
}

type HorseView struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Owner    OwnerRef       `json:"owner"`
	Stats    Stats          `json:"stats"`
	Age      int            `json:"age"`
	Fatigue  int            `json:"fatigue"`
	Favorite bool           `json:"favorite"`
	Wins     int            `json:"wins"`
	Starts   int            `json:"starts"`
	Entered  []SeasonDate   `json:"entered,omitempty"`
	History  []HistoryEntry `json:"history,omitempty"`
}

type SeasonView struct {
	Today       SeasonDate `json:"today"`
	LastTick    SeasonDate `json:"last_tick"`
	LastTickAt  time.Time  `json:"last_tick_at,omitempty"`
	Race        RaceInfo   `json:"race"`
	Upcoming    []RaceInfo `json:"upcoming"`
	Owners      int        `json:"owners"`
	Horses      int        `json:"horses"`
	HouseHorses int        `json:"house_horses"`
}

type LeaderboardBy string

const (
	LeaderboardBalance LeaderboardBy = "balance"
	LeaderboardWins    LeaderboardBy = "wins"
)

type LeaderboardRow struct {
	Rank    int    `json:"rank"`
	OwnerID string `json:"owner_id"`
	Balance int64  `json:"balance"`
	Wins    int    `json:"wins"`
	Horses  int    `json:"horses"`
}

type EntryView struct {
	HorseID string  `json:"horse_id"`
	Name    string  `json:"name"`
	Owner   string  `json:"owner"`
	Fatigue int     `json:"fatigue"`
	Odds    float64 `json:"odds"`
}

// PreRaceSnapshot is the announcement projection for an upcoming race.
type PreRaceSnapshot struct {
	Race     RaceInfo    `json:"race"`
	Entries  []EntryView `json:"entries"`
	MinField int         `json:"min_field"`
}

// PostRaceReport is the announcement projection for a resolved race day.
type PostRaceReport struct {
	Race    RaceInfo    `json:"race"`
	Held    bool        `json:"held"`
	Results []Result    `json:"results"`
	Payouts []BetPayout `json:"payouts"`
	Retired []string    `json:"retired"`
}

type BetInput struct {
	OwnerID        string
	HorseID        string
	Stake          int64
	IdempotencyKey string
}

type BetResult struct {
	HorseID string  `json:"horse_id"`
	Stake   int64   `json:"stake"`
	Odds    float64 `json:"odds"`
	Balance int64   `json:"balance"`
}

type TrainInput struct {
	OwnerID        string
	HorseID        string
	Stat           TrainStat
	Points         int
	IdempotencyKey string
}

type ResetTicket struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
