package announce

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"stables/internal/game"

	"github.com/bwmarrin/discordgo"
)

const (
	colorPreRace  = 0x3498db
	colorPostRace = 0x2ecc71
	colorNotHeld  = 0xe74c3c
	maxEmbedField = 1024
)

type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts announcements as embeds to one channel over the REST API.
type Discord struct {
	session   embedSender
	closer    func() error
	channelID string
	log       *slog.Logger
}

func NewDiscord(token, channelID string, logger *slog.Logger) (*Discord, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(token) == "" || strings.TrimSpace(channelID) == "" {
		return nil, fmt.Errorf("discord token and channel id are required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &Discord{session: s, closer: s.Close, channelID: channelID, log: logger}, nil
}

func (d *Discord) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

func (d *Discord) PreRace(ctx context.Context, snap game.PreRaceSnapshot) error {
	return d.send(ctx, preRaceEmbed(snap))
}

func (d *Discord) PostRace(ctx context.Context, rep game.PostRaceReport) error {
	return d.send(ctx, postRaceEmbed(rep))
}

func (d *Discord) send(ctx context.Context, embed *discordgo.MessageEmbed) error {
	if _, err := d.session.ChannelMessageSendEmbed(d.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	d.log.Debug("announcement sent", "channel", d.channelID, "title", embed.Title)
	return nil
}

func preRaceEmbed(snap game.PreRaceSnapshot) *discordgo.MessageEmbed {
	title := "Next race: " + raceTitle(snap.Race)
	if snap.Race.Feature() {
		title = "Feature race: " + raceTitle(snap.Race)
	}
	var entries strings.Builder
	if len(snap.Entries) == 0 {
		entries.WriteString("No entries yet.")
	}
	for i, e := range snap.Entries {
		fmt.Fprintf(&entries, "`%2d.` **%s** `%.2f` <@%s>\n", i+1, e.Name, e.Odds, e.Owner)
	}
	return &discordgo.MessageEmbed{
		Title: title,
		Color: colorPreRace,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Date", Value: snap.Race.Date.Key(), Inline: true},
			{Name: "Purse", Value: comma(snap.Race.Purse), Inline: true},
			{Name: "Field", Value: fmt.Sprintf("%d", snap.MinField), Inline: true},
			{Name: "Entries", Value: clip(entries.String())},
		},
	}
}

func postRaceEmbed(rep game.PostRaceReport) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Result: " + raceTitle(rep.Race),
		Color: colorPostRace,
	}
	if !rep.Held {
		embed.Color = colorNotHeld
		embed.Description = "Race not held: the field was too small. Stakes were refunded."
		return embed
	}
	var results strings.Builder
	for _, r := range rep.Results {
		if r.Prize == 0 && r.Owner.IsHouse() && r.Position > 5 {
			continue
		}
		fmt.Fprintf(&results, "`%2d.` **%s** `%.2f`", r.Position, r.Name, r.Score)
		if r.Prize > 0 {
			fmt.Fprintf(&results, " +%s", comma(r.Prize))
		}
		if !r.Owner.IsHouse() {
			fmt.Fprintf(&results, " <@%s>", r.Owner.ID)
		}
		results.WriteString("\n")
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Results", Value: clip(results.String())})
	if len(rep.Payouts) > 0 {
		var bets strings.Builder
		for _, p := range rep.Payouts {
			fmt.Fprintf(&bets, "<@%s> %s\n", p.Bettor, comma(p.Payout))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Winning bets", Value: clip(bets.String())})
	}
	if len(rep.Retired) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Retired", Value: clip(strings.Join(rep.Retired, ", "))})
	}
	return embed
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	if len(s) <= maxEmbedField {
		return s
	}
	cut := strings.LastIndex(s[:maxEmbedField-4], "\n")
	if cut < 0 {
		cut = maxEmbedField - 4
	}
	return s[:cut] + "\n..."
}
