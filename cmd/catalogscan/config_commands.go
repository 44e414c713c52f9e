package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"catalogscan/internal/catalog"
	"catalogscan/internal/config"
	"catalogscan/internal/fileutil"
)

const vocabularyFileName = "vocabulary.yaml"

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigShowCommand(ctx))
	return cmd
}

// initTarget resolves the --path flag, falling back to the user config path.
func initTarget(flag string) (string, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(flag)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

// refuseExisting errors when path exists and overwrite is off.
func refuseExisting(path string, overwrite bool) error {
	if overwrite {
		return nil
	}
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return fmt.Errorf("%s already exists (use --overwrite to replace it)", path)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("check %s: %w", path, err)
	}
}

func newConfigInitCommand() *cobra.Command {
	var (
		pathFlag       string
		overwrite      bool
		withVocabulary bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(pathFlag)
			if err != nil {
				return err
			}
			if err := refuseExisting(target, overwrite); err != nil {
				return err
			}
			vocabPath := filepath.Join(filepath.Dir(target), vocabularyFileName)
			if withVocabulary {
				if err := refuseExisting(vocabPath, overwrite); err != nil {
					return err
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)

			if withVocabulary {
				if err := fileutil.WriteFileAtomic(vocabPath, catalog.DefaultVocabularyYAML(), 0o644); err != nil {
					return fmt.Errorf("write vocabulary: %w", err)
				}
				fmt.Fprintf(out, "Wrote built-in vocabulary to %s (set vocabulary.path to use it)\n", vocabPath)
			}
			fmt.Fprintf(out, "Put product photos in the source_dir it names, then run catalogscan from %s.\n", filepath.Dir(target))
			return nil
		},
	}

	cmd.Flags().StringVarP(&pathFlag, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	cmd.Flags().BoolVar(&withVocabulary, "vocabulary", false, "Also write the built-in vocabulary next to the config for editing")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			encoded, err := cfg.Encode()
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			header := "# Config path: " + ctx.configPath
			if !ctx.configExists {
				header = fmt.Sprintf("# Config file %s not found; defaults shown", ctx.configPath)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, header)
			_, err = out.Write(encoded)
			return err
		},
	}
}
