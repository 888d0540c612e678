package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rag-pipeline/internal/llm"
	"github.com/rag-pipeline/internal/scheduler"
	"github.com/rag-pipeline/internal/server"
	"github.com/rag-pipeline/internal/storage"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP backend",
	Long: `Start the HTTP backend serving knowledge base ingestion and retrieval,
LLM generation and the recent chats log. A cron job prunes old recent chats.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
}

func runServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveAddr != "" {
		a.cfg.HTTPAddr = serveAddr
	}
	logger := a.logger

	llmClient := llm.NewClient(a.cfg.GeminiAPIKey, a.cfg.LLMModel, a.cfg.LLMTimeout, logger)
	defer func() {
		if err := llmClient.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close LLM client")
		}
	}()

	recents, err := storage.NewRecentStore(a.cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open recent chats store: %w", err)
	}
	defer recents.Close()

	if err := recents.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("Recent chats store is not reachable, continuing")
	}

	schedDone := make(chan struct{})
	if a.cfg.RecentsRetentionDays > 0 {
		sched, err := scheduler.NewScheduler(
			a.cfg.RecentsPruneSchedule,
			scheduler.NewPruneJob(recents, a.cfg.RecentsRetentionDays, logger),
			logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}

		go func() {
			defer close(schedDone)
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("Scheduler stopped with error")
			}
		}()
	} else {
		logger.Info().Msg("Recent chats retention disabled")
		close(schedDone)
	}

	srv := server.New(a.cfg, a.pipeline, llmClient, recents, logger)
	err = srv.Run(ctx)

	// Run returns on signal or listener failure; either way the scheduler must stop
	stop()
	<-schedDone

	if err != nil {
		return err
	}
	logger.Info().Msg("Server stopped")
	return nil
}
