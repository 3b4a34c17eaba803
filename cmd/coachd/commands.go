package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/presentbetter/coach-engine/internal/codec"
	"github.com/presentbetter/coach-engine/internal/config"
	"github.com/presentbetter/coach-engine/internal/feed"
	"github.com/presentbetter/coach-engine/internal/logging"
	"github.com/presentbetter/coach-engine/internal/store"
)

// #region root

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "coachd",
		Short:         "Live presentation coaching engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv("PRESENTBETTER_CONFIG"), "YAML config file")

	root.AddCommand(newServeCmd(&cfgPath), newHistoryCmd(&cfgPath), newVersionCmd())
	return root
}

// #endregion root

// #region serve

func newServeCmd(cfgPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the /session websocket and /history endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.FeedAddr = addr
			}
			logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides feed.addr)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	st, err := store.NewStore(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	fc := feed.DefaultConfig()
	fc.Session = cfg.Session
	fc.PerceptionTimeout = cfg.PerceptionTimeout
	srv := feed.NewServer(fc, st, logger)

	if cfg.PerceptionAddr != "" {
		pc, err := codec.NewPerceptionClient(cfg.PerceptionAddr)
		if err != nil {
			return err
		}
		defer pc.Close()
		srv.SetPerception(pc, pc)
		logger.WithField("addr", cfg.PerceptionAddr).Info("remote perception enabled")
	}

	logger.WithFields(logrus.Fields{
		"store":   cfg.StorePath,
		"version": version,
	}).Info("coachd starting")
	return srv.ListenAndServe(ctx, cfg.FeedAddr)
}

// #endregion serve

// #region history

func newHistoryCmd(cfgPath *string) *cobra.Command {
	var (
		user string
		last int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print a user's score history as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			st, err := store.NewStore(cfg.StorePath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			records, err := st.QueryHistory(user, last)
			if err != nil {
				return err
			}
			sum, err := st.Summary(user)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"summary": sum,
				"records": records,
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().IntVar(&last, "last", 20, "most recent N records (0 for all)")
	cmd.MarkFlagRequired("user")
	return cmd
}

// #endregion history

// #region version

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// #endregion version
