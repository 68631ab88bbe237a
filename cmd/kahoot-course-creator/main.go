// Command kahoot-course-creator creates a new course on the quiz platform once
// a day and serves a liveness endpoint for the hosting platform.
//
// Usage:
//
//	KAHOOT_USERNAME=... KAHOOT_PASSWORD=... kahoot-course-creator [-env-file .env] [-run-now]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kahoot-course-creator/internal/config"
	"kahoot-course-creator/internal/creator"
	"kahoot-course-creator/internal/health"
	"kahoot-course-creator/internal/logging"
	"kahoot-course-creator/internal/providers/kahoot"
	"kahoot-course-creator/internal/scheduler"
	"kahoot-course-creator/internal/sftpclient"
)

const taskName = "create-course"

func main() {
	var (
		envFile = flag.String("env-file", "", "dotenv file to load before reading env (default $DOTENV_FILE or .env)")
		runNow  = flag.Bool("run-now", false, "run the task once at startup, same as RUN_ON_START=true")
	)
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *runNow || cfg.RunOnStart, logger); err != nil {
		logger.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, runOnStart bool, logger *slog.Logger) error {
	sched, err := newScheduler(cfg, logger)
	if err != nil {
		return err
	}

	sched.Start(ctx)
	defer func() {
		logger.Info("waiting for in-flight runs")
		sched.Stop()
	}()

	if runOnStart {
		if err := sched.RunAsync(ctx, taskName); err != nil {
			return err
		}
	}

	return health.NewServer(cfg.Port, logger).Run(ctx)
}

func newScheduler(cfg config.Config, logger *slog.Logger) (*scheduler.Scheduler, error) {
	loc, err := time.LoadLocation(cfg.CronTimezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.CronTimezone, err)
	}

	sched := scheduler.New(loc, logger)
	if err := sched.Add(taskName, cfg.CronSchedule, newCreator(cfg, logger).Task()); err != nil {
		return nil, err
	}
	return sched, nil
}

func newCreator(cfg config.Config, logger *slog.Logger) *creator.Creator {
	client := kahoot.New(cfg.KahootBaseURL, cfg.HTTPTimeout)
	c := creator.New(client, client, cfg.Credentials(), cfg.CoursePayload, logger)
	if cfg.ArchiveEnabled() {
		c.Archiver = sftpclient.NewArchiver(sftpConfig(cfg))
	}
	return c
}

func sftpConfig(cfg config.Config) sftpclient.Config {
	return sftpclient.Config{
		Host:                  cfg.SFTPHost,
		Port:                  cfg.SFTPPort,
		User:                  cfg.SFTPUser,
		Pass:                  cfg.SFTPPass,
		RemoteDir:             cfg.SFTPDir,
		InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
		KnownHostsFile:        cfg.SFTPKnownHosts,
	}
}
