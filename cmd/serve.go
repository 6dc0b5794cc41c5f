package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/gateway"
	"github.com/spigell/interview-coach/internal/identity"
	"github.com/spigell/interview-coach/internal/ratelimit"
	"github.com/spigell/interview-coach/internal/secrets"
)

const defaultListen = ":3000"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway for the web client",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	logger, config := setup()

	gw := config.Gateway
	if gw == nil {
		gw = &GatewayConfig{}
	}

	secret, err := secrets.Load(secrets.Source{
		Name:  "jwt secret",
		File:  gw.JWTSecretFile,
		Value: gw.JWTSecret,
	})
	if err != nil {
		logger.Fatal("loading jwt secret", zap.Error(err),
			zap.String("hint", "set COACH_JWT_SECRET_FILE or gateway.jwt-secret-file"),
		)
	}
	verifier, err := identity.NewVerifier(secret)
	if err != nil {
		logger.Fatal("creating a token verifier", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var limiter ratelimit.Limiter = ratelimit.NewMemory()
	if url := strings.TrimSpace(gw.RedisURL); url != "" {
		rdb, err := ratelimit.Dial(ctx, url)
		if err != nil {
			logger.Warn("redis is unavailable, counting rate limits in memory", zap.Error(err))
		} else {
			defer rdb.Close()
			limiter = ratelimit.NewRedis(rdb, logger.With(zap.String("component", "ratelimit")))
		}
	}

	srv, err := gateway.New(gateway.Options{
		Provider:     newProvider(config, logger),
		Verifier:     verifier,
		Limiter:      limiter,
		Logger:       logger.With(zap.String("component", "gateway")),
		AllowOrigins: gw.AllowOrigins,
		Service:      app,
		Cache:        gw.Cache,
	})
	if err != nil {
		logger.Fatal("creating the gateway", zap.Error(err))
	}

	listen := strings.TrimSpace(gw.Listen)
	if listen == "" {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(listen)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("gateway stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down the gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("gateway shutdown", zap.Error(err))
		}
	}
}
