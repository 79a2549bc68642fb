package game

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// SchemaVersion is the document layout written by this package.
const SchemaVersion = 2

type Surface string

const (
	SurfaceTurf Surface = "turf"
	SurfaceDirt Surface = "dirt"
)

func (s Surface) Valid() bool {
	return s == SurfaceTurf || s == SurfaceDirt
}

type RaceClass string

const (
	ClassFeature RaceClass = "feature"
	ClassFiller  RaceClass = "filler"
)

type OwnerKind string

const (
	OwnerPlayer OwnerKind = "player"
	OwnerHouse  OwnerKind = "house"
)

// OwnerRef names who a horse belongs to. House horses have no owner id and are
// excluded from prizes, wagering, retirement and ownership caps.
type OwnerRef struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
}

func PlayerOwner(id string) OwnerRef {
	return OwnerRef{Kind: OwnerPlayer, ID: id}
}

func HouseOwner() OwnerRef {
	return OwnerRef{Kind: OwnerHouse}
}

func (o OwnerRef) IsHouse() bool {
	return o.Kind == OwnerHouse
}

func (o OwnerRef) String() string {
	if o.IsHouse() {
		return "house"
	}
	return o.ID
}

// Stats is a horse's stat vector. Speed is the primary offense stat, Growth is
// the growth reserve spent by training, Turf and Dirt are surface affinities.
type Stats struct {
	Speed   int `json:"speed"`
	Stamina int `json:"stamina"`
	Temper  int `json:"temper"`
	Growth  int `json:"growth"`
	Turf    int `json:"turf"`
	Dirt    int `json:"dirt"`
}

func (s Stats) Affinity(surface Surface) int {
	if surface == SurfaceDirt {
		return s.Dirt
	}
	return s.Turf
}

type HistoryEntry struct {
	Date      SeasonDate `json:"date"`
	RaceID    string     `json:"race_id"`
	Race      string     `json:"race"`
	Position  int        `json:"position"`
	FieldSize int        `json:"field_size"`
	Score     float64    `json:"score"`
	Prize     int64      `json:"prize"`
}

type Horse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Owner    OwnerRef       `json:"owner"`
	Stats    Stats          `json:"stats"`
	Age      int            `json:"age"`
	Fatigue  int            `json:"fatigue"`
	Favorite bool           `json:"favorite,omitempty"`
	Wins     int            `json:"wins"`
	Starts   int            `json:"starts"`
	RestedOn SeasonDate     `json:"rested_on"`
	Class    RaceClass      `json:"class,omitempty"`
	History  []HistoryEntry `json:"history,omitempty"`
}

func (h *Horse) IsHouse() bool {
	return h.Owner.IsHouse()
}

type Owner struct {
	ID       string     `json:"id"`
	Balance  int64      `json:"balance"`
	Horses   []string   `json:"horses"`
	Wins     int        `json:"wins"`
	JoinedOn SeasonDate `json:"joined_on"`
}

// Bet is a locked-in wager. Odds are fixed at purchase time.
type Bet struct {
	Bettor   string    `json:"bettor"`
	Stake    int64     `json:"stake"`
	Odds     float64   `json:"odds"`
	PlacedAt time.Time `json:"placed_at"`
}

type Result struct {
	Position int      `json:"position"`
	HorseID  string   `json:"horse_id"`
	Name     string   `json:"name"`
	Owner    OwnerRef `json:"owner"`
	Score    float64  `json:"score"`
	Prize    int64    `json:"prize"`
}

type BetPayout struct {
	Bettor  string  `json:"bettor"`
	HorseID string  `json:"horse_id"`
	Stake   int64   `json:"stake"`
	Odds    float64 `json:"odds"`
	Payout  int64   `json:"payout"`
	Refund  bool    `json:"refund,omitempty"`
}

// RaceRecord is an immutable snapshot of one resolved race day.
type RaceRecord struct {
	ID       string      `json:"id"`
	Date     SeasonDate  `json:"date"`
	Name     string      `json:"name"`
	Distance int         `json:"distance"`
	Surface  Surface     `json:"surface"`
	Class    RaceClass   `json:"class"`
	Purse    int64       `json:"purse"`
	Held     bool        `json:"held"`
	Seed     int64       `json:"seed"`
	Results  []Result    `json:"results,omitempty"`
	Payouts  []BetPayout `json:"payouts,omitempty"`
}

func (r RaceRecord) Winner() (Result, bool) {
	if !r.Held || len(r.Results) == 0 {
		return Result{}, false
	}
	return r.Results[0], true
}

// Retirement logs a horse leaving the roster. AfterRace is set for sweep
// retirements and names the race whose tick triggered them.
type Retirement struct {
	Date      SeasonDate `json:"date"`
	HorseID   string     `json:"horse_id"`
	Name      string     `json:"name"`
	OwnerID   string     `json:"owner_id"`
	Reason    string     `json:"reason"`
	Wins      int        `json:"wins"`
	Starts    int        `json:"starts"`
	AfterRace string     `json:"after_race,omitempty"`
}

// Document is the single persisted state of a season.
type Document struct {
	SchemaVersion int                         `json:"schema_version"`
	Clock         Clock                       `json:"clock"`
	NextID        int64                       `json:"next_id"`
	Horses        map[string]*Horse           `json:"horses"`
	Owners        map[string]*Owner           `json:"owners"`
	Entries       map[string][]string         `json:"entries"`
	Bets          map[string]map[string][]Bet `json:"bets"`
	Races         []RaceRecord                `json:"races"`
	Retirements   []Retirement                `json:"retirements"`
	Schedule      []ScheduledRace             `json:"schedule"`
	Processed     map[string]string           `json:"processed,omitempty"`
}

// NewDocument returns an empty season starting on day 1 of month 1.
func NewDocument(rules Rules) *Document {
	return &Document{
		SchemaVersion: SchemaVersion,
		Clock:         Clock{Year: rules.StartYear, Month: 1, Day: 1},
		NextID:        1,
		Horses:        map[string]*Horse{},
		Owners:        map[string]*Owner{},
		Entries:       map[string][]string{},
		Bets:          map[string]map[string][]Bet{},
		Processed:     map[string]string{},
		Schedule:      append([]ScheduledRace(nil), rules.Schedule...),
	}
}

// Clone deep-copies the document so a working copy can be mutated freely.
func (d *Document) Clone() (*Document, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	out.ensureMaps()
	return &out, nil
}

func (d *Document) ensureMaps() {
	if d.Horses == nil {
		d.Horses = map[string]*Horse{}
	}
	if d.Owners == nil {
		d.Owners = map[string]*Owner{}
	}
	if d.Entries == nil {
		d.Entries = map[string][]string{}
	}
	if d.Bets == nil {
		d.Bets = map[string]map[string][]Bet{}
	}
	if d.Processed == nil {
		d.Processed = map[string]string{}
	}
}

// claimKey records an idempotency key against today. It reports false when
// the key was already used.
func (d *Document) claimKey(key string) bool {
	if key == "" {
		return true
	}
	if _, seen := d.Processed[key]; seen {
		return false
	}
	d.Processed[key] = d.Today().Key()
	return true
}

func (d *Document) Today() SeasonDate {
	return d.Clock.Today()
}

func (d *Document) nextHorseID(prefix string) string {
	for {
		id := fmt.Sprintf("%s%05d", prefix, d.NextID)
		d.NextID++
		if _, taken := d.Horses[id]; !taken {
			return id
		}
	}
}

// playerHorse resolves a live player-owned horse, checking ownership.
func (d *Document) playerHorse(ownerID, horseID string) (*Horse, error) {
	h, ok := d.Horses[horseID]
	if !ok || h.IsHouse() {
		return nil, reject(ReasonUnknownHorse, "horse %s does not exist", horseID)
	}
	if h.Owner.ID != ownerID {
		return nil, reject(ReasonNotOwner, "horse %s is not yours", horseID)
	}
	return h, nil
}

func (d *Document) owner(ownerID string) (*Owner, error) {
	o, ok := d.Owners[ownerID]
	if !ok {
		return nil, reject(ReasonUnknownOwner, "owner %s is not registered", ownerID)
	}
	return o, nil
}

func (d *Document) houseHorses(class RaceClass) []*Horse {
	var out []*Horse
	for _, h := range d.Horses {
		if h.IsHouse() && h.Class == class {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Document) raceOn(date SeasonDate) (RaceRecord, bool) {
	for i := len(d.Races) - 1; i >= 0; i-- {
		if d.Races[i].Date == date {
			return d.Races[i], true
		}
	}
	return RaceRecord{}, false
}
