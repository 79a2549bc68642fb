package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"stables/internal/game"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mineStyle   = cellStyle.Foreground(lipgloss.Color("10"))
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func printTitle(title string) {
	accent.Printf("\n== %s ==\n", strings.ToUpper(title))
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

// promptPassword hides input on a terminal and falls back to a plain read
// when stdin is piped.
func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptRequired(label)
	}
	for {
		fmt.Printf("%s: ", label)
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		if text := strings.TrimSpace(string(raw)); text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...)
}

// styled colours rows whose first column is in highlight.
func styled(t *table.Table, rows [][]string, highlight map[int]bool) *table.Table {
	return t.Rows(rows...).StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case highlight[row]:
			return mineStyle
		default:
			return cellStyle
		}
	})
}

func renderOwner(o game.OwnerView) {
	printTitle("stable " + o.ID)
	fmt.Printf("Balance: %s   Wins: %d   Joined: %s\n", comma(o.Balance), o.Wins, o.JoinedOn)
	if len(o.Horses) == 0 {
		printInfo("No horses yet. Run `stb horse buy`.")
		return
	}
	rows := make([][]string, 0, len(o.Horses))
	favs := map[int]bool{}
	for i, h := range o.Horses {
		rows = append(rows, []string{
			h.ID,
			truncate(h.Name, 24),
			strconv.Itoa(h.Age),
			statLine(h.Stats),
			strconv.Itoa(h.Fatigue),
			fmt.Sprintf("%d/%d", h.Wins, h.Starts),
			enteredLine(h.Entered),
		})
		favs[i] = h.Favorite
	}
	fmt.Println(styled(newTable("ID", "NAME", "AGE", "SPD/STA/TMP", "FATIGUE", "W/S", "ENTERED"), rows, favs))
}

func renderHorse(h game.HorseView) {
	name := h.Name
	if h.Favorite {
		name += " *"
	}
	printTitle(name)
	fmt.Printf("ID: %s   Age: %d   Fatigue: %d   Record: %d wins from %d starts\n", h.ID, h.Age, h.Fatigue, h.Wins, h.Starts)
	fmt.Printf("Speed %d  Stamina %d  Temper %d  Growth %d  Turf %d  Dirt %d\n",
		h.Stats.Speed, h.Stats.Stamina, h.Stats.Temper, h.Stats.Growth, h.Stats.Turf, h.Stats.Dirt)
	if len(h.Entered) > 0 {
		fmt.Printf("Entered: %s\n", enteredLine(h.Entered))
	}
	if len(h.History) == 0 {
		return
	}
	rows := make([][]string, 0, len(h.History))
	for i := len(h.History) - 1; i >= 0; i-- {
		e := h.History[i]
		rows = append(rows, []string{
			e.Date.String(),
			truncate(e.Race, 28),
			fmt.Sprintf("%d/%d", e.Position, e.FieldSize),
			comma(e.Prize),
		})
	}
	fmt.Println(styled(newTable("DATE", "RACE", "PLACE", "PRIZE"), rows, nil))
}

func renderSeason(s game.SeasonView) {
	printTitle("season " + s.Today.String())
	fmt.Printf("Today's race: %s\n", raceLine(s.Race))
	if !s.LastTick.IsZero() {
		fmt.Printf("Last race day: %s\n", s.LastTick)
	}
	fmt.Printf("Owners: %d   Horses: %d   House horses: %d\n", s.Owners, s.Horses, s.HouseHorses)
	if len(s.Upcoming) == 0 {
		return
	}
	rows := make([][]string, 0, len(s.Upcoming))
	feature := map[int]bool{}
	for i, r := range s.Upcoming {
		rows = append(rows, []string{r.Date.String(), r.Name, string(r.Surface), strconv.Itoa(r.Distance), comma(r.Purse)})
		feature[i] = r.Feature()
	}
	fmt.Println(styled(newTable("DATE", "RACE", "SURFACE", "METRES", "PURSE"), rows, feature))
}

func renderOdds(lines []game.OddsLine, me string) {
	printTitle("odds")
	if len(lines) == 0 {
		printInfo("No entries for today's race yet.")
		return
	}
	rows := make([][]string, 0, len(lines))
	mine := map[int]bool{}
	for i, l := range lines {
		rows = append(rows, []string{l.HorseID, truncate(l.Name, 24), ownerLabel(l.Owner), fmt.Sprintf("%.2f", l.Odds)})
		mine[i] = l.Owner == me
	}
	fmt.Println(styled(newTable("ID", "HORSE", "OWNER", "ODDS"), rows, mine))
}

func renderPreRace(p game.PreRaceSnapshot, me string) {
	printTitle("next race")
	fmt.Println(raceLine(p.Race))
	if len(p.Entries) < p.MinField {
		printWarn(fmt.Sprintf("%d entered, %d needed; house horses fill the rest.", len(p.Entries), p.MinField))
	}
	if len(p.Entries) == 0 {
		return
	}
	rows := make([][]string, 0, len(p.Entries))
	mine := map[int]bool{}
	for i, e := range p.Entries {
		rows = append(rows, []string{truncate(e.Name, 24), ownerLabel(e.Owner), strconv.Itoa(e.Fatigue), fmt.Sprintf("%.2f", e.Odds)})
		mine[i] = e.Owner == me
	}
	fmt.Println(styled(newTable("HORSE", "OWNER", "FATIGUE", "ODDS"), rows, mine))
}

func renderReport(r game.PostRaceReport, me string) {
	printTitle("report " + r.Race.Date.String())
	fmt.Println(raceLine(r.Race))
	if !r.Held {
		printWarn("Race not held. Stakes were refunded.")
		return
	}
	renderResults(r.Results, me)
	for _, p := range r.Payouts {
		if p.Refund {
			fmt.Printf("%s refunded %s\n", ownerLabel(p.Bettor), comma(p.Stake))
			continue
		}
		line := fmt.Sprintf("%s won %s (%s at %.2f)", ownerLabel(p.Bettor), comma(p.Payout), comma(p.Stake), p.Odds)
		if p.Bettor == me {
			success.Println(line)
		} else {
			fmt.Println(line)
		}
	}
	if len(r.Retired) > 0 {
		printInfo("Retired: " + strings.Join(r.Retired, ", "))
	}
}

func renderResults(results []game.Result, me string) {
	rows := make([][]string, 0, len(results))
	mine := map[int]bool{}
	for i, r := range results {
		rows = append(rows, []string{strconv.Itoa(r.Position), truncate(r.Name, 24), ownerLabel(r.Owner.ID), fmt.Sprintf("%.1f", r.Score), comma(r.Prize)})
		mine[i] = r.Owner.ID == me && me != ""
	}
	fmt.Println(styled(newTable("POS", "HORSE", "OWNER", "SCORE", "PRIZE"), rows, mine))
}

func renderRaceRecords(races []game.RaceRecord, me string) {
	printTitle("results")
	if len(races) == 0 {
		printInfo("No races recorded yet.")
		return
	}
	for _, rec := range races {
		accent.Printf("%s  %s (%s %dm)\n", rec.Date, rec.Name, rec.Surface, rec.Distance)
		if !rec.Held {
			printWarn("Not held.")
			continue
		}
		renderResults(rec.Results, me)
	}
}

func renderLeaderboard(rows []game.LeaderboardRow, by, me string) {
	printTitle("leaderboard by " + by)
	if len(rows) == 0 {
		printInfo("No leaderboard rows yet.")
		return
	}
	out := make([][]string, 0, len(rows))
	mine := map[int]bool{}
	for i, r := range rows {
		out = append(out, []string{strconv.Itoa(r.Rank), truncate(r.OwnerID, 18), comma(r.Balance), strconv.Itoa(r.Wins), strconv.Itoa(r.Horses)})
		mine[i] = r.OwnerID == me
	}
	fmt.Println(styled(newTable("RANK", "OWNER", "BALANCE", "WINS", "HORSES"), out, mine))
}

func raceLine(r game.RaceInfo) string {
	kind := "filler"
	if r.Feature() {
		kind = "feature"
	}
	return fmt.Sprintf("%s  %s, %s %dm, purse %s (%s)", r.Date, r.Name, r.Surface, r.Distance, comma(r.Purse), kind)
}

func statLine(s game.Stats) string {
	return fmt.Sprintf("%d/%d/%d", s.Speed, s.Stamina, s.Temper)
}

func enteredLine(days []game.SeasonDate) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, " ")
}

func ownerLabel(id string) string {
	if id == "" {
		return "house"
	}
	return truncate(id, 12)
}

func comma(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.WriteString(sign)
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		b.WriteByte(',')
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
