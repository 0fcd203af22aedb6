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
	"github.com/rs/zerolog/log"

	"github.com/entragate/funcgateway/authclient"
	"github.com/entragate/funcgateway/functions"
	"github.com/entragate/funcgateway/identity"
	"github.com/entragate/funcgateway/internal/config"
	"github.com/entragate/funcgateway/server"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx := context.Background()

	verifier, err := identity.NewVerifier(ctx, verifierConfig(c))
	if err != nil {
		return fmt.Errorf("identity.NewVerifier: %w", err)
	}

	client := authclient.New(authclient.Config{
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		Authority:    c.GetIssuerURL(),
		RedirectURI:  c.GetRedirectURI(),
		Scopes:       c.GetScopes(),
	})
	if err := client.Initialize(ctx); err != nil {
		return fmt.Errorf("authclient.Initialize: %w", err)
	}

	functionsRepo, err := functions.NewFileRepo(c.GetFunctionsFile())
	if err != nil {
		return fmt.Errorf("functions.NewFileRepo: %w", err)
	}
	executor := functions.NewExecutor(functionsRepo)

	srv, err := server.New(c, verifier, client, functionsRepo, executor)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func verifierConfig(c config.Config) identity.Config {
	cfg := identity.DefaultConfig()
	cfg.Authority = c.GetIssuerURL()
	cfg.Issuer = c.GetIssuerURL()
	cfg.ClientID = c.GetClientID()
	return cfg
}

func setupLogging(c config.Config) {
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
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
