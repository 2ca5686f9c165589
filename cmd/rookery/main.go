package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"

	"github.com/rookery-social/rookery/forum"
	"github.com/rookery-social/rookery/screening"
	"github.com/rookery-social/rookery/util"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "rookery",
		Usage:   "discussion board backend (permissions + moderation workflow)",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database connection string (sqlite:// or postgres://)",
			Value:   "sqlite://data/rookery/forum.sqlite",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the HTTP API",
			Value:   ":8080",
			EnvVars: []string{"ROOKERY_BIND"},
		},
		&cli.StringFlag{
			Name:    "jwt-signing-secret",
			Usage:   "HMAC secret for bearer tokens; required",
			EnvVars: []string{"ROOKERY_JWT_SIGNING_SECRET"},
		},
		&cli.StringFlag{
			Name:    "sentiment-host",
			Usage:   "base URL of the sentiment classifier; empty disables sentiment screening",
			EnvVars: []string{"ROOKERY_SENTIMENT_HOST"},
		},
		&cli.StringFlag{
			Name:    "spam-host",
			Usage:   "base URL of the Akismet-compatible spam checker; empty disables spam screening",
			EnvVars: []string{"ROOKERY_SPAM_HOST"},
		},
		&cli.StringFlag{
			Name:    "spam-api-key",
			EnvVars: []string{"ROOKERY_SPAM_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "site-url",
			Usage:   "public URL of this board, sent to the spam checker",
			Value:   "http://localhost:8080",
			EnvVars: []string{"ROOKERY_SITE_URL"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		secret := cctx.String("jwt-signing-secret")
		if secret == "" {
			return fmt.Errorf("jwt-signing-secret is required")
		}

		db, err := util.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}

		var sentiment *screening.SentimentClient
		if host := cctx.String("sentiment-host"); host != "" {
			sentiment = screening.NewSentimentClient(host)
		}
		var spam *screening.SpamClient
		if host := cctx.String("spam-host"); host != "" {
			spam = screening.NewSpamClient(host, cctx.String("spam-api-key"), cctx.String("site-url"))
		}
		screen := screening.NewGateway(sentiment, spam, logger.With("system", "screening"))

		srv, err := forum.NewServer(db, screen, []byte(secret))
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.RunAPI(cctx.String("bind"))
		}()

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-signals:
			slog.Warn("shutting down on signal")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("service failed: %w", err)
			}
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}
