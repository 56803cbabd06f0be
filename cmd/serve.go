/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"maunium.net/go/mautrix/event"

	"transcriptbot/pkg/config"
	"transcriptbot/pkg/logger"
	"transcriptbot/pkg/matrix"
	"transcriptbot/pkg/pipeline"
	"transcriptbot/pkg/transcribe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the transcription bot",
	Long:  "Logs into the configured homeserver and transcribes incoming voice and video messages.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args
		os.Exit(runServe())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() int {
	// A local .env is a convenience for development; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		return 1
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		return 1
	}
	slog.SetDefault(appLogger)
	log := slog.Default().With("component", "cmd.serve")

	if err := cfg.Validate(); err != nil {
		log.Error("Configuration invalid", "error", err)
		return 1
	}

	log.Info("Initializing transcriber", "provider", cfg.Whisper.Provider, "model", cfg.Whisper.Model, "language", cfg.Whisper.Language)
	provider, err := transcribe.New(cfg, appLogger)
	if err != nil {
		log.Error("Failed to initialize transcriber", "error", err)
		return 1
	}
	defer provider.Close()

	dispatcher := transcribe.NewDispatcher(provider, cfg.Whisper.Workers, cfg.Whisper.QueueSize, appLogger)
	defer dispatcher.Close()

	client, err := matrix.NewClient(cfg.Matrix, appLogger)
	if err != nil {
		log.Error("Failed to initialize matrix client", "error", err)
		return 1
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Login(runCtx); err != nil {
		log.Error("Login failed", "error", err)
		return 1
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Error("Failed to close matrix session", "error", err)
		}
	}()

	pipe := pipeline.New(client, dispatcher, client.SelfID(), appLogger)
	onMedia := func(ctx context.Context, evt *event.Event) {
		pipe.HandleEvent(ctx, pipeline.FromMatrixEvent(evt))
	}
	client.OnMessage(map[event.MessageType]matrix.MessageHandler{
		event.MsgAudio: onMedia,
		event.MsgVideo: onMedia,
	})
	client.EnableAutoJoin()

	log.Info("Bot started", "user_id", client.SelfID())
	if err := client.Run(runCtx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		log.Error("Sync loop failed", "error", err)
		return 1
	}

	log.Info("Shutdown complete")
	return 0
}
