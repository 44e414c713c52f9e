package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"catalogscan/internal/catalog"
	"catalogscan/internal/logging"
	"catalogscan/internal/store"
)

type statusCounts struct {
	Records      int `json:"records"`
	OK           int `json:"ok"`
	Review       int `json:"review"`
	Placeholders int `json:"placeholders"`
}

func countStatuses(records []catalog.Record) statusCounts {
	counts := statusCounts{Records: len(records)}
	for _, rec := range records {
		switch rec.EffectiveStatus() {
		case catalog.StatusReview:
			counts.Review++
		case catalog.StatusMalformed:
			counts.Placeholders++
		default:
			counts.OK++
		}
	}
	return counts
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var onlyProblems bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List committed records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			set, err := store.New(cfg.Paths.StorePath, logging.NewNop()).Load()
			if err != nil {
				return err
			}
			counts := countStatuses(set.Records())
			records := set.Records()
			if onlyProblems {
				filtered := []catalog.Record{}
				for _, rec := range records {
					if rec.EffectiveStatus() != catalog.StatusOK {
						filtered = append(filtered, rec)
					}
				}
				records = filtered
			}

			if asJSON {
				return writeJSON(cmd, struct {
					Store   string           `json:"store"`
					Counts  statusCounts     `json:"counts"`
					Records []catalog.Record `json:"records"`
				}{cfg.Paths.StorePath, counts, records})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Store: %s\n", cfg.Paths.StorePath)
			fmt.Fprintf(out, "Records: %d (ok %d, review %d, placeholders %d)\n",
				counts.Records, counts.OK, counts.Review, counts.Placeholders)
			if len(records) == 0 {
				return nil
			}
			list := newListing("#", "Origin", "Title", "Category", "Status").alignRight(1)
			for i, rec := range records {
				list.add(strconv.Itoa(i+1), rec.Origin, rec.Title, rec.Category, string(rec.EffectiveStatus()))
			}
			fmt.Fprintln(out, list)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	cmd.Flags().BoolVar(&onlyProblems, "problems", false, "Only list placeholder and review records")
	return cmd
}
