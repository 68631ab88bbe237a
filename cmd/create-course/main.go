// Command create-course runs one login + course creation cycle and exits.
// Exit status is 1 when the run failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"kahoot-course-creator/internal/config"
	"kahoot-course-creator/internal/creator"
	"kahoot-course-creator/internal/logging"
	"kahoot-course-creator/internal/providers/kahoot"
	"kahoot-course-creator/internal/scheduler"
	"kahoot-course-creator/internal/sftpclient"
)

func main() {
	var (
		envFile     = flag.String("env-file", "", "dotenv file to load before reading env")
		payloadPath = flag.String("payload", "", "JSON file with the course payload (overrides COURSE_PAYLOAD)")
		archive     = flag.Bool("sftp", false, "upload the run report via SFTP (requires SFTP_* env)")
		timeout     = flag.Duration("timeout", 5*time.Minute, "overall timeout")
	)
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *payloadPath != "" {
		os.Setenv("COURSE_PAYLOAD", "")
		os.Setenv("COURSE_PAYLOAD_FILE", *payloadPath)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if !cfg.Credentials().Complete() {
		logger.Error("invalid configuration", "err", config.ErrMissingCredentials)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = scheduler.WithRunID(ctx, uuid.NewString())

	client := kahoot.New(cfg.KahootBaseURL, cfg.HTTPTimeout)
	c := creator.New(client, client, cfg.Credentials(), cfg.CoursePayload, logger)
	if *archive {
		c.Archiver = sftpclient.NewArchiver(sftpclient.Config{
			Host:                  cfg.SFTPHost,
			Port:                  cfg.SFTPPort,
			User:                  cfg.SFTPUser,
			Pass:                  cfg.SFTPPass,
			RemoteDir:             cfg.SFTPDir,
			InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
			KnownHostsFile:        cfg.SFTPKnownHosts,
		})
	}

	if err := c.CreateCourse(ctx); err != nil {
		os.Exit(1)
	}
}
