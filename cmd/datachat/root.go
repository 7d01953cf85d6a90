package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tidalab/datachat/pkg/client"
	"github.com/tidalab/datachat/pkg/config"
	"github.com/tidalab/datachat/pkg/controller"
	"github.com/tidalab/datachat/pkg/stream"
)

// app holds the wired-up dependencies shared by all subcommands.
type app struct {
	cfg        *config.Config
	client     *client.Client
	controller *controller.Controller
	stats      *stream.Stats
	closeLog   func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		configPath string
		baseURL    string
		debug      bool
	)

	root := &cobra.Command{
		Use:           "datachat",
		Short:         "Chat with the data-analysis assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				var err error
				path, err = config.GetDefaultConfigPath()
				if err != nil {
					return fmt.Errorf("failed to get config path: %w", err)
				}
			}

			cfg, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			if baseURL != "" {
				cfg.Server.BaseURL = baseURL
			}
			if debug {
				if cfg.Log == nil {
					cfg.Log = config.DefaultLogConfig()
				}
				cfg.Log.Level = "debug"
			}

			closeLog, err := cfg.Log.Setup()
			if err != nil {
				return err
			}

			a.cfg = cfg
			a.closeLog = closeLog
			a.stats = stream.NewStats()
			a.client = client.New(cfg.Server.BaseURL, client.WithAPIKey(cfg.Server.APIKey))
			a.controller = controller.New(a.client, controller.WithStats(a.stats))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closeLog != nil {
				_ = a.closeLog()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.datachat/config.json)")
	root.PersistentFlags().StringVar(&baseURL, "base-url", "", "backend base URL (overrides config)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newChatCmd(a))
	root.AddCommand(newUploadCmd(a))
	root.AddCommand(newScriptCmd(a))
	return root
}
