package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/gamechat-server/internal/app"
	"github.com/vovakirdan/gamechat-server/internal/config"
	"github.com/vovakirdan/gamechat-server/internal/log"
	"github.com/vovakirdan/gamechat-server/internal/store/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "gamechat-server",
		Short:         "Chat and presence server for game clients",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newChannelsCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			bootLogger := log.New("info")
			cfg, path, err := config.Load(bootLogger, *configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting gamechat server")

			application, err := app.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

func newChannelsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List persisted channel definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load(log.Nop(), *configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			defs, err := st.ListChannels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list channels: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTOPIC\tREAD\tWRITE\tAUTOJOIN")
			for _, def := range defs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", def.Name, def.Topic, def.ReadLevel, def.WriteLevel, def.AutoJoin)
			}
			return w.Flush()
		},
	}
}
