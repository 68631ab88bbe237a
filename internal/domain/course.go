package domain

import (
	"encoding/json"
	"time"
)

// CoursePayload is the JSON object posted to the course creation endpoint.
// Its shape belongs to the platform; this service passes it through untouched.
type CoursePayload json.RawMessage

// EmptyPayload is the body sent when nothing is configured.
func EmptyPayload() CoursePayload {
	return CoursePayload("{}")
}

// MarshalJSON keeps the configured bytes as-is.
func (p CoursePayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return []byte(p), nil
}

// CreationResult is what a successful scheduled run produced.
type CreationResult struct {
	RunID      string          `json:"runId"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Response   json.RawMessage `json:"response"`
}

// ArchiveName is the remote file name used when the result is archived.
func (r CreationResult) ArchiveName() string {
	return "course-" + r.StartedAt.Format("20060102") + "-" + r.RunID + ".json"
}
