package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/albapepper/courtside-data/internal/config"
	"github.com/albapepper/courtside-data/internal/provider"
	"github.com/albapepper/courtside-data/internal/provider/espn"
)

// --------------------------------------------------------------------------
// inspect command: fetch and extract one page, print it, store nothing
// --------------------------------------------------------------------------

func inspectCmd(season *int) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Fetch and extract a single ESPN page without storing it",
	}
	cmd.PersistentFlags().BoolVar(&raw, "raw", false, "Print the fetched HTML instead of the extracted data")

	cmd.AddCommand(&cobra.Command{
		Use:   "player <espnID>",
		Short: "Print a player's profile and regular season game log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("player id %q: %w", args[0], err)
			}
			return inspect(func(ctx context.Context, cfg *config.Config) error {
				url := espn.NewSite(cfg.ESPNBaseURL).PlayerGameLogURL(id)
				if raw {
					return printRaw(ctx, cfg, url)
				}
				doc, err := newClient(cfg).Document(ctx, url)
				if err != nil {
					return err
				}
				log, err := espn.ExtractGameLog(doc, id, seasonOf(cfg, *season))
				if err != nil {
					return err
				}
				printGameLog(os.Stdout, log)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "boxscore <gameID>",
		Short: "Print both teams' box score lines for one game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(func(ctx context.Context, cfg *config.Config) error {
				url := espn.NewSite(cfg.ESPNBaseURL).BoxScoreURL(args[0])
				if raw {
					return printRaw(ctx, cfg, url)
				}
				doc, err := newClient(cfg).Document(ctx, url)
				if err != nil {
					return err
				}
				box, err := espn.ExtractBoxScore(doc, args[0])
				if err != nil {
					return err
				}
				printBoxScore(os.Stdout, box)
				return nil
			})
		},
	})
	return cmd
}

func inspect(fn func(ctx context.Context, cfg *config.Config) error) error {
	ctx, cancel := signalContext()
	defer cancel()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return fn(ctx, cfg)
}

func printRaw(ctx context.Context, cfg *config.Config, url string) error {
	body, err := newClient(cfg).HTML(ctx, url)
	if err != nil {
		return err
	}
	_, err = io.WriteString(os.Stdout, body)
	return err
}

func printGameLog(w io.Writer, log provider.PlayerGameLog) {
	fmt.Fprintf(w, "%s (%d)\n", log.Player.FullName(), log.Player.SourceID)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Date", "Opp", "Result", "Score", "MIN", "FG", "3PT", "FT", "REB", "AST", "STL", "BLK", "TO", "PF", "PTS"})
	for _, e := range log.Entries {
		opp := "@" + e.OpponentAbbreviation
		if e.IsHome {
			opp = "vs " + e.OpponentAbbreviation
		}
		s := e.Stats
		t.AppendRow(table.Row{
			e.Date.Format("2006-01-02"), opp, e.Result, e.Score, cell(s.Minutes),
			split(s.FieldGoalsMade, s.FieldGoalsAttempted),
			split(s.ThreePointersMade, s.ThreePointersAttempted),
			split(s.FreeThrowsMade, s.FreeThrowsAttempted),
			cell(s.Rebounds), cell(s.Assists), cell(s.Steals), cell(s.Blocks),
			cell(s.Turnovers), cell(s.Fouls), cell(s.Points),
		})
	}
	t.AppendFooter(table.Row{"Games", len(log.Entries)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func printBoxScore(w io.Writer, box provider.BoxScore) {
	fmt.Fprintf(w, "%s %s  final=%t\n", box.Source, box.SourceGameID, box.Final)
	for _, team := range []provider.TeamBox{box.Away, box.Home} {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetTitle(fmt.Sprintf("%s %s", team.FullName(), cell(team.Score)))
		t.AppendHeader(table.Row{"Player", "MIN", "FG", "3PT", "FT", "REB", "AST", "STL", "BLK", "TO", "PF", "+/-", "PTS"})
		for _, line := range team.Players {
			if line.DidNotPlay() {
				t.AppendRow(table.Row{line.Name, "DNP"})
				continue
			}
			s := line.Stats
			t.AppendRow(table.Row{
				line.Name, cell(s.Minutes),
				split(s.FieldGoalsMade, s.FieldGoalsAttempted),
				split(s.ThreePointersMade, s.ThreePointersAttempted),
				split(s.FreeThrowsMade, s.FreeThrowsAttempted),
				cell(s.Rebounds), cell(s.Assists), cell(s.Steals), cell(s.Blocks),
				cell(s.Turnovers), cell(s.Fouls), cell(s.PlusMinus), cell(s.Points),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}
}

func cell(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func split(made, attempted *int) string {
	return cell(made) + "-" + cell(attempted)
}
