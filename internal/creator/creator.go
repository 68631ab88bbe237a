// Package creator logs in to the quiz platform and creates one course per run.
package creator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kahoot-course-creator/internal/domain"
	"kahoot-course-creator/internal/providers/kahoot"
	"kahoot-course-creator/internal/scheduler"
)

// ErrNoToken is returned by CreateCourse when no session token could be obtained.
var ErrNoToken = errors.New("no token available")

type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (string, error)
}

type CourseAPI interface {
	CreateCourse(ctx context.Context, token string, payload domain.CoursePayload) (json.RawMessage, error)
}

// Archiver stores a copy of a run's result somewhere outside the process.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) error
}

var (
	_ Authenticator = (*kahoot.Client)(nil)
	_ CourseAPI     = (*kahoot.Client)(nil)
)

type Creator struct {
	Auth    Authenticator
	Courses CourseAPI
	Creds   domain.Credentials
	Payload domain.CoursePayload

	// Archiver is optional.
	Archiver Archiver
	Logger   *slog.Logger

	now func() time.Time
}

func New(auth Authenticator, courses CourseAPI, creds domain.Credentials, payload domain.CoursePayload, logger *slog.Logger) *Creator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Creator{
		Auth:    auth,
		Courses: courses,
		Creds:   creds,
		Payload: payload,
		Logger:  logger,
		now:     time.Now,
	}
}

func (c *Creator) logger(ctx context.Context) *slog.Logger {
	l := c.Logger
	if l == nil {
		l = slog.Default()
	}
	if id := scheduler.RunID(ctx); id != "" {
		l = l.With("run_id", id)
	}
	return l
}

func (c *Creator) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// ObtainToken logs in with the configured credentials. Every failure is
// logged and reported as ok=false; it never returns an error.
func (c *Creator) ObtainToken(ctx context.Context) (token string, ok bool) {
	log := c.logger(ctx)

	token, err := c.Auth.Login(ctx, c.Creds)
	if err != nil {
		log.Error("failed to get token", "user", c.Creds.Username, "err", err)
		return "", false
	}

	if info, isJWT := kahoot.InspectToken(token); isJWT {
		log.Debug("obtained session token", "subject", info.Subject, "expires_at", info.ExpiresAt)
	} else {
		log.Debug("obtained session token", "len", len(token))
	}
	return token, true
}

// CreateCourse runs one login + creation cycle. The creation endpoint is not
// called unless a token was obtained.
func (c *Creator) CreateCourse(ctx context.Context) error {
	log := c.logger(ctx)
	started := c.clock()

	token, ok := c.ObtainToken(ctx)
	if !ok {
		log.Error("failed to create course: no token available")
		return ErrNoToken
	}

	resp, err := c.Courses.CreateCourse(ctx, token, c.Payload)
	if err != nil {
		log.Error("failed to create course", "err", err)
		return fmt.Errorf("create course: %w", err)
	}
	log.Info("new course created", "response", string(resp))

	if c.Archiver == nil {
		return nil
	}

	runID := scheduler.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}
	result := domain.CreationResult{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: c.clock(),
		Response:   resp,
	}
	b, err := json.Marshal(result)
	if err != nil {
		log.Warn("failed to encode run report", "err", err)
		return nil
	}
	if err := c.Archiver.Archive(ctx, result.ArchiveName(), b); err != nil {
		log.Warn("failed to archive run report", "name", result.ArchiveName(), "err", err)
		return nil
	}
	log.Info("archived run report", "name", result.ArchiveName())
	return nil
}

// Task adapts CreateCourse to the scheduler's task signature.
func (c *Creator) Task() scheduler.Task {
	return c.CreateCourse
}
