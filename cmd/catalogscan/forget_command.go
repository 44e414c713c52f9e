package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"catalogscan/internal/logging"
	"catalogscan/internal/scan"
)

func newForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <origin>...",
		Short: "Remove records so the next run processes their images again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			app, err := openApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			var removed, missing []string
			for _, arg := range args {
				origin := scan.Identifier(strings.TrimSpace(arg))
				if app.records.Remove(origin) {
					removed = append(removed, origin)
				} else {
					missing = append(missing, origin)
				}
			}
			if len(removed) == 0 {
				return fmt.Errorf("no record for %s", strings.Join(missing, ", "))
			}
			if err := app.writer.Commit(cmd.Context(), app.records); err != nil {
				return fmt.Errorf("rewrite sinks: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, origin := range removed {
				fmt.Fprintf(out, "Forgot %s\n", origin)
			}
			if len(missing) > 0 {
				return errors.New("not found: " + strings.Join(missing, ", "))
			}
			return nil
		},
	}
}
