package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsense/internal/render"
	"github.com/ziadkadry99/docsense/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Starts the DocSense HTTP API: upload, file listing, deletion, chat, question suggestions and a websocket chat at /ws/chat.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.Server.Port
	if p, _ := cmd.Flags().GetInt("port"); p > 0 {
		port = p
	}

	srv := server.New(server.Config{
		Port:           port,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		RequestTimeout: a.cfg.RequestTimeout,
		ProviderType:   string(a.cfg.LLMProvider),
		ChatModel:      a.cfg.ChatModel,
		SuggestModel:   a.cfg.SuggestModel,
	}, a.pipeline, a.corpus, render.New())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
