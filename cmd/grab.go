package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/docgrab/internal/config"
	"github.com/xkilldash9x/docgrab/internal/observability"
	"github.com/xkilldash9x/docgrab/internal/pipeline"
)

// newGrabCmd creates and configures the `grab` command.
func newGrabCmd() *cobra.Command {
	grabCmd := &cobra.Command{
		Use:   "grab [url]",
		Short: "Download a document or dataroom as PDF",
		Long: `Download a viewer-only document (or a whole dataroom) as PDF.

By default a managed Chrome is launched with a copy of your profile so
existing session cookies are reused, page image URLs are extracted through
the viewer, downloaded concurrently, and compiled into a PDF.

Escape hatches:
  --cdp       connect to an already-running Chrome debug endpoint
  --url-file  skip the browser entirely; provide pre-extracted URLs (JSON array)`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("download.workers", cmd.Flags().Lookup("workers")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from Execute (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			cfg.Grab.Output = viper.GetString("output")
			cfg.Grab.Email = viper.GetString("email")
			cfg.Grab.CDPURL = viper.GetString("cdp")
			cfg.Grab.URLFile = viper.GetString("url-file")
			cfg.Grab.Headless = viper.GetBool("headless")
			if len(args) > 0 {
				cfg.Grab.Target = args[0]
			}

			if cfg.Grab.Target == "" && cfg.Grab.URLFile == "" {
				return fmt.Errorf("a target URL is required unless --url-file is given")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return pipeline.New(cfg, logger).Run(ctx)
		},
	}

	grabCmd.Flags().StringP("output", "o", "",
		"output path: PDF file for single documents (default: derived from title), directory for datarooms (default: ~/datarooms/<name>/)")
	grabCmd.Flags().String("email", "", "email address for viewer email gates")
	grabCmd.Flags().String("cdp", "", "CDP endpoint of an already-running Chrome (e.g. http://127.0.0.1:9222)")
	grabCmd.Flags().String("url-file", "", "JSON file with pre-extracted image URLs; bypasses the browser")
	grabCmd.Flags().Bool("headless", false, "run the managed Chrome headless")
	grabCmd.Flags().Int("workers", 0, "concurrent download workers (higher helps finish before signed URLs expire)")

	return grabCmd
}
