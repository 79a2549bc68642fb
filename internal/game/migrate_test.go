package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyDoc = `{
  "horses": {
    "H00001": {"id": "H00001", "name": "Silver Arrow", "owner": "111", "SP": 120, "ST": 95.0, "CND": 80, "GRW": 140,
               "track_pref": "Dirt", "age": 3, "wins": 2, "fatigue": 12,
               "history": [{"race": "Open Class", "pos": 1, "prize": 20000, "year": 2024, "month": 2, "day": 3}]},
    "H00002": {"id": "H00002", "name": "Ghost", "owner": "222", "SP": 90, "ST": 90, "CND": 90, "GRW": 50, "age": 2, "wins": 0, "fatigue": 0, "history": []},
    "BOT01": {"id": "BOT01", "name": "Dummy", "owner": "999999999999999999", "SP": 150, "ST": 150, "CND": 150, "GRW": 100, "age": 4, "wins": 0, "fatigue": 0, "history": []}
  },
  "owners": {
    "111": {"horses": ["H00001", "H00404"], "balance": 54000, "wins": 2},
    "999999999999999999": {"horses": ["BOT01"], "balance": 0, "wins": 0}
  },
  "races": [
    {"year": 2024, "month": 2, "day": 3, "name": "Open Class", "distance": 1800, "track": "Turf",
     "results": [{"horse_id": "H00001", "name": "Silver Arrow", "owner": "111", "score": 101.5, "pos": 1, "prize": 20000},
                 {"horse_id": "BOT01", "name": "Dummy", "owner": "999999999999999999", "score": 99.1, "pos": 2, "prize": 12000}]}
  ],
  "pending_entries": {"10": ["H00001"], "2": ["H00002"]},
  "bets": {"10": {"222": {"horse_id": "H00001", "amount": 500, "odds": 3.5}}},
  "season": {"year": 2024, "month": 3, "day": 10},
  "next_id": 3,
  "last_race_time": "2024-05-01T12:00:00+00:00"
}`

func TestImportLegacyDocument(t *testing.T) {
	rules := DefaultRules()
	doc, migrated, err := DecodeDocument([]byte(legacyDoc), rules)
	require.NoError(t, err)
	assert.True(t, migrated)
	assert.Equal(t, SchemaVersion, doc.SchemaVersion)
	assert.Equal(t, SeasonDate{2024, 3, 10}, doc.Today())
	assert.EqualValues(t, 3, doc.NextID)
	assert.False(t, doc.Clock.LastTickAt.IsZero())

	arrow := doc.Horses["H00001"]
	require.NotNil(t, arrow)
	assert.Equal(t, PlayerOwner("111"), arrow.Owner)
	assert.Equal(t, Stats{Speed: 120, Stamina: 95, Temper: 80, Growth: 100, Turf: 40, Dirt: 80}, arrow.Stats)
	assert.Equal(t, MaxFatigue, arrow.Fatigue)
	assert.Equal(t, 1, arrow.Starts)
	require.Len(t, arrow.History, 1)
	assert.Equal(t, SeasonDate{2024, 2, 3}, arrow.History[0].Date)

	bot := doc.Horses["BOT01"]
	require.NotNil(t, bot)
	assert.True(t, bot.IsHouse())
	assert.Equal(t, ClassFeature, bot.Class)

	assert.Equal(t, []string{"H00001"}, doc.Owners["111"].Horses, "dangling ids are dropped")
	assert.NotContains(t, doc.Owners, LegacyHouseOwnerID)
	require.Contains(t, doc.Owners, "222", "owners implied by horses are created")
	assert.Equal(t, []string{"H00002"}, doc.Owners["222"].Horses)

	require.Len(t, doc.Races, 1)
	assert.True(t, doc.Races[0].Results[1].Owner.IsHouse())
	assert.Equal(t, SurfaceTurf, doc.Races[0].Surface)

	assert.Equal(t, []string{"H00001"}, doc.Entries["2024-03-10"])
	assert.NotContains(t, doc.Entries, "2024-03-02", "entries for past days are dropped")
	require.Len(t, doc.Bets["2024-03-10"]["H00001"], 1)
	assert.Equal(t, 3.5, doc.Bets["2024-03-10"]["H00001"][0].Odds)
}

func TestDecodeTypedDocumentRoundTrip(t *testing.T) {
	rules := DefaultRules()
	doc, migrated, err := DecodeDocument(nil, rules)
	require.NoError(t, err)
	assert.True(t, migrated)
	addOwner(t, doc, "alice", 10)
	addHorse(t, doc, "alice", evenStats(100))

	raw, err := EncodeDocument(doc)
	require.NoError(t, err)
	back, migrated, err := DecodeDocument(raw, rules)
	require.NoError(t, err)
	assert.False(t, migrated)
	assert.Equal(t, doc.Owners, back.Owners)
	assert.Equal(t, doc.Horses, back.Horses)
}

func TestDecodeRejectsNewerSchema(t *testing.T) {
	_, _, err := DecodeDocument([]byte(`{"schema_version": 99}`), DefaultRules())
	require.Error(t, err)
}
