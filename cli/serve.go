package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/MichelMeloG/JurChat/config"
	"github.com/MichelMeloG/JurChat/handler"
	"github.com/MichelMeloG/JurChat/middleware"
	"github.com/MichelMeloG/JurChat/pkg/logger"
	"github.com/MichelMeloG/JurChat/service"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway for the web front-end",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides the config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if cfg.Auth.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		cfg.Auth.JWTSecret = secret
		logger.Warn(ctx, "no jwt secret configured, sessions will not survive a restart")
	}

	if cfg.Webhook.CallbackSeed == "" {
		logger.Warn(ctx, "no callback seed configured, analysis callbacks are disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := newServer(cfg, handler.Dependencies{
		Backend: backend,
		Store:   service.NewConversationStore(&cfg.Store),
		Tracker: service.NewAnalysisTracker(cfg.Webhook.CallbackSeed, cfg.Store.MaxTrackedDocuments),
		Revoker: middleware.NewSessionRevoker(),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server starting", "port", cfg.Server.Port, "webhook", cfg.Webhook.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(ctx, "shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info(ctx, "server exited gracefully")
	return nil
}

func newServer(cfg *config.Config, deps handler.Dependencies) *http.Server {
	router := handler.NewRouter(cfg, deps)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newCORS(cfg.Server.AllowedOrigins).Handler(router),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.Webhook.UploadTimeout*time.Duration(cfg.Webhook.UploadAttempts) + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func newCORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept", "X-Request-ID", "X-Requested-With"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
