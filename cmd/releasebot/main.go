package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/releasebot/internal/config"
	rbslack "github.com/gosuda/releasebot/internal/messenger/slack"
	"github.com/gosuda/releasebot/internal/notify"
	"github.com/gosuda/releasebot/internal/release"
	"github.com/gosuda/releasebot/internal/server"
	"github.com/gosuda/releasebot/internal/workflow"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("RELEASEBOT_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("RELEASEBOT_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slackOpts := []slacklib.Option{slacklib.OptionDebug(cfg.Slack.Debug)}
	if cfg.Slack.Mode == config.ModeSocket {
		slackOpts = append(slackOpts, slacklib.OptionAppLevelToken(cfg.Slack.AppToken))
	}
	slackClient := slacklib.New(cfg.Slack.BotToken, slackOpts...)
	slackMessenger := rbslack.NewSlackMessenger(slackClient)

	workflows := workflow.NewClient(workflow.Config{
		BaseURL:      cfg.GitHub.BaseURL,
		Token:        cfg.GitHub.Token,
		Owner:        cfg.GitHub.Owner,
		Repo:         cfg.GitHub.Repo,
		Timeout:      cfg.GitHub.Timeout,
		RunsPageSize: cfg.GitHub.RunsPageSize,
	})

	notifier := notify.New(slackMessenger, cfg.Slack.NotifyChannelID)
	controller := release.NewController(cfg, slackMessenger, workflows, notifier)

	var webhooks *rbslack.Handler
	if cfg.Slack.Mode == config.ModeHTTP {
		webhooks = rbslack.NewHandler(cfg.Slack.SigningSecret, controller)
	}
	srv := server.New(ctx, cfg, webhooks)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Str("slack_mode", cfg.Slack.Mode).Msg("starting server")
		return srv.Start(gctx)
	})

	if cfg.Slack.Mode == config.ModeSocket {
		socketClient := socketmode.New(slackClient, socketmode.OptionDebug(cfg.Slack.Debug))
		listener := rbslack.NewListener(socketClient, controller)
		g.Go(func() error {
			log.Info().Msg("starting slack socket mode listener")
			return listener.Run(gctx)
		})
	}

	g.Go(func() error {
		// Block until shutdown signal or a sibling failure.
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer shutdownCancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}
