package app

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/daemon"
	"github.com/go-membergate/membergate/internal/logger"
	"github.com/go-membergate/membergate/internal/logger/adapter/datadog"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	startCmd.Flags().BoolVar(
		&browseStatic,
		"browse",
		false,
		"Enable static file browsing (for development purposes only)",
	)

	rootCmd.AddCommand(startCmd)
}

var (
	cfg config.Config
	err error

	devMode      bool
	browseStatic bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the MemberGate web service",
		PreRun: func(_ *cobra.Command, _ []string) {
			if cfg, err = config.ReadConfig(configPath); err != nil {
				panic(err)
			}

			if devMode {
				cfg.DevMode = true
			}

			if browseStatic {
				cfg.Webserver.BrowseStatic = true
			}

			var extraWriters []io.Writer

			if cfg.Log.DataDog.Enabled {
				extraWriters = append(extraWriters, datadog.New(cfg.Log.DataDog))
			}

			if err = logger.Init(cfg.Log, extraWriters...); err != nil {
				panic(err)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			d, err := daemon.New(&cfg)
			if err != nil {
				return err
			}

			return d.Start()
		},
	}
)
