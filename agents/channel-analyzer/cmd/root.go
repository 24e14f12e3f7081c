package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	channelanalyzer "video-analyzer/agents/channel-analyzer"
	"video-analyzer/agents/channel-analyzer/report"
	"video-analyzer/shared/config"
	"video-analyzer/shared/scheduler"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "channel-analyzer",
		Short:         "Crawl a channel, classify its videos and summarize the results",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default $CONFIG_FILE or config.json)")

	loadConfig := func() *config.Config {
		return config.LoadOrDefault(config.Path(configFlag))
	}

	rootCmd.AddCommand(newRunCommand(loadConfig))
	rootCmd.AddCommand(newReportCommand(loadConfig))
	return rootCmd
}

func newRunCommand(loadConfig func() *config.Config) *cobra.Command {
	var (
		channel   string
		maxVideos int
		schedule  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, classify and persist a channel's recent videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if channel != "" {
				cfg.Channel.Handle = channel
			}
			if maxVideos > 0 {
				cfg.Channel.MaxVideos = maxVideos
			}

			ctx := cmd.Context()
			deps, closeDeps, err := buildDependencies(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeDeps()

			agent := channelanalyzer.NewAgent(cfg, deps).WithOutput(cmd.OutOrStdout())
			s := scheduler.New(cfg.Schedule, agent)

			if schedule {
				if err := s.Start(ctx); err != nil && !errors.Is(err, ctx.Err()) {
					return err
				}
				return nil
			}

			if err := agent.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize agent: %w", err)
			}
			return s.RunOnce(ctx)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "Channel handle to crawl (overrides config)")
	cmd.Flags().IntVar(&maxVideos, "max-videos", 0, "Maximum number of videos to process (overrides config)")
	cmd.Flags().BoolVar(&schedule, "schedule", false, "Keep running on the configured cron schedule")
	return cmd
}

func newReportCommand(loadConfig func() *config.Config) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the most recent results file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if dir == "" {
				dir = cfg.Output.ProcessedDataPath
			}

			summary, err := report.Load(dir, cfg.Output.FilePrefix)
			if err != nil {
				return err
			}
			report.Render(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Results directory (default output.processed_data_path)")
	return cmd
}
