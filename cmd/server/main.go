package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-otp-auth-server/auth"
	"github.com/jrsteele09/go-otp-auth-server/clients"
	"github.com/jrsteele09/go-otp-auth-server/internal/config"
	"github.com/jrsteele09/go-otp-auth-server/server"
	"github.com/jrsteele09/go-otp-auth-server/storage/sqlite"
	"github.com/jrsteele09/go-otp-auth-server/token"
	"github.com/jrsteele09/go-otp-auth-server/users"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(log zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	cfg := config.New()
	displayAppname(cfg.GetAppName())

	ctx := context.Background()
	store, err := sqlite.New(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("sqlite.New: %w", err)
	}
	defer store.Close()

	credentials, err := users.NewCredentialService(store.Users(), cfg.GetOTPIssuer())
	if err != nil {
		return fmt.Errorf("users.NewCredentialService: %w", err)
	}
	registry, err := clients.NewRegistry(store.Clients())
	if err != nil {
		return fmt.Errorf("clients.NewRegistry: %w", err)
	}
	tokens, err := token.NewStore(store.Tokens(), []byte(cfg.GetSecretKey()),
		token.WithLifetimes(cfg.GetTokenLifetimes()),
		token.WithDefaultLifetime(cfg.GetDefaultTokenLifetime()),
		token.WithRefreshExpiry(cfg.GetRefreshTokenExpiry()),
	)
	if err != nil {
		return fmt.Errorf("token.NewStore: %w", err)
	}
	authService, err := auth.NewAuthorizationService(auth.Deps{
		Credentials: credentials,
		Users:       store.Users(),
		Clients:     registry,
		Tokens:      tokens,
	})
	if err != nil {
		return fmt.Errorf("auth.NewAuthorizationService: %w", err)
	}

	srv, err := server.New(cfg, log, credentials, registry, authService)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: cfg.GetPort(), Handler: srv}
	go listenAndServe(log, httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func listenAndServe(log zerolog.Logger, server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
