package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/justestif/sparkify-etl/internal/config"
	"github.com/justestif/sparkify-etl/internal/db"
	"github.com/justestif/sparkify-etl/internal/etl"
	"github.com/justestif/sparkify-etl/internal/telemetry"
	"github.com/justestif/sparkify-etl/internal/web"
)

// runCreateTables drops and creates the warehouse tables, optionally
// recreating the database itself first.
func runCreateTables(ctx context.Context, cfg *config.Config, log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("create-tables", flag.ContinueOnError)
	recreate := fs.Bool("recreate-database", false, "drop and recreate the database through the admin connection first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *recreate {
		log.WithField("database", cfg.DatabaseName).Info("recreating database")
		if err := db.RecreateDatabase(ctx, cfg.AdminURL, cfg.DatabaseName); err != nil {
			return fmt.Errorf("recreating database: %w", err)
		}
	}

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := database.Setup(ctx); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	log.Info("tables created")
	return nil
}

// runETL recreates the tables (unless -keep-tables) and runs the song pass
// followed by the log pass.
func runETL(ctx context.Context, cfg *config.Config, log *logrus.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	songData := fs.String("song-data", cfg.SongDataDir, "root directory of song metadata files")
	logData := fs.String("log-data", cfg.LogDataDir, "root directory of event log files")
	policyName := fs.String("policy", string(cfg.Policy()), "error policy: fail-fast or skip")
	keepTables := fs.Bool("keep-tables", false, "append to existing tables instead of recreating them")
	if err := fs.Parse(args); err != nil {
		return err
	}

	policy, err := etl.ParseErrorPolicy(*policyName)
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceVersion: version,
		Export:         cfg.Tracing,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("flushing traces")
		}
	}()

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if !*keepTables {
		if err := database.Setup(ctx); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}

	pipeline := etl.New(etl.NewPostgres(database),
		etl.WithPolicy(policy),
		etl.WithLogger(log),
		etl.WithProgress(stdout),
	)

	result, err := pipeline.Run(ctx, *songData, *logData)
	if result != nil {
		fmt.Fprint(stdout, etl.FormatSummary(result))
	}
	return err
}

// runServe serves the analytics API until interrupted.
func runServe(ctx context.Context, cfg *config.Config, log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", cfg.Listen, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	server, err := web.NewServer(web.ServerConfig{
		Addr:      *addr,
		Warehouse: database.Stats(),
		Log:       log,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}
