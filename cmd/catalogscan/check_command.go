package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"catalogscan/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify paths and the model endpoint before a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			vocab, err := loadVocabulary(cfg)
			if err != nil {
				return err
			}
			gateway, err := newGateway(cfg, vocab)
			if err != nil {
				return err
			}
			if _, err := newNormalizer(cfg); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			results := preflight.RunAll(cmd.Context(), cfg, gateway)
			fmt.Fprintln(out, strings.Join(readinessLines(results, isTerminal(out)), "\n"))
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}
