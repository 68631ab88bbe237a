package creator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"kahoot-course-creator/internal/domain"
	"kahoot-course-creator/internal/logging"
	"kahoot-course-creator/internal/providers/kahoot"
	"kahoot-course-creator/internal/scheduler"
)

type fakeAuth struct {
	token string
	err   error
	calls int
}

func (f *fakeAuth) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakeCourses struct {
	resp      json.RawMessage
	err       error
	calls     int
	lastToken string
}

func (f *fakeCourses) CreateCourse(ctx context.Context, token string, payload domain.CoursePayload) (json.RawMessage, error) {
	f.calls++
	f.lastToken = token
	return f.resp, f.err
}

type fakeArchiver struct {
	name string
	data []byte
	err  error
}

func (f *fakeArchiver) Archive(ctx context.Context, name string, data []byte) error {
	f.name = name
	f.data = data
	return f.err
}

var creds = domain.Credentials{Username: "user", Password: "pass"}

func TestObtainToken(t *testing.T) {
	c := New(&fakeAuth{token: "abc"}, &fakeCourses{}, creds, nil, logging.Discard())

	token, ok := c.ObtainToken(context.Background())
	if !ok || token != "abc" {
		t.Errorf("Expected ('abc', true), got (%q, %v)", token, ok)
	}
}

func TestObtainTokenFailureIsAbsent(t *testing.T) {
	var buf bytes.Buffer
	c := New(&fakeAuth{err: errors.New("dial tcp: connection refused")}, &fakeCourses{}, creds, nil, logging.New("info", "text", &buf))

	token, ok := c.ObtainToken(context.Background())
	if ok || token != "" {
		t.Errorf("Expected absent token, got (%q, %v)", token, ok)
	}
	if !strings.Contains(buf.String(), "failed to get token") {
		t.Errorf("Expected failure to be logged, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "pass") {
		t.Errorf("Password leaked into logs: %q", buf.String())
	}
}

func TestCreateCourseWithoutTokenMakesNoCall(t *testing.T) {
	courses := &fakeCourses{}
	c := New(&fakeAuth{err: kahoot.ErrTokenMissing}, courses, creds, nil, logging.Discard())

	err := c.CreateCourse(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Expected ErrNoToken, got %v", err)
	}
	if courses.calls != 0 {
		t.Errorf("Expected 0 creation calls, got %d", courses.calls)
	}
}

func TestCreateCourseUsesToken(t *testing.T) {
	courses := &fakeCourses{resp: json.RawMessage(`{"uuid":"k-1"}`)}
	var buf bytes.Buffer
	c := New(&fakeAuth{token: "abc"}, courses, creds, domain.EmptyPayload(), logging.New("info", "text", &buf))

	if err := c.CreateCourse(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if courses.calls != 1 || courses.lastToken != "abc" {
		t.Errorf("Expected 1 call with token 'abc', got %d calls with %q", courses.calls, courses.lastToken)
	}
	if !strings.Contains(buf.String(), "new course created") || !strings.Contains(buf.String(), "k-1") {
		t.Errorf("Expected response to be logged, got %q", buf.String())
	}
}

func TestCreateCourseError(t *testing.T) {
	boom := errors.New("boom")
	c := New(&fakeAuth{token: "abc"}, &fakeCourses{err: boom}, creds, nil, logging.Discard())

	if err := c.CreateCourse(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped boom, got %v", err)
	}
}

func TestCreateCourseArchives(t *testing.T) {
	arch := &fakeArchiver{}
	c := New(&fakeAuth{token: "abc"}, &fakeCourses{resp: json.RawMessage(`{"uuid":"k-1"}`)}, creds, nil, logging.Discard())
	c.Archiver = arch
	c.now = func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) }

	ctx := scheduler.WithRunID(context.Background(), "run-1")
	if err := c.CreateCourse(ctx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if arch.name != "course-20261019-run-1.json" {
		t.Errorf("Unexpected archive name '%s'", arch.name)
	}

	if !strings.Contains(string(arch.data), `"response":{"uuid":"k-1"}`) {
		t.Errorf("Expected response archived verbatim, got %s", arch.data)
	}

	var got domain.CreationResult
	if err := json.Unmarshal(arch.data, &got); err != nil {
		t.Fatalf("Expected JSON report, got %v", err)
	}
	if got.RunID != "run-1" || string(got.Response) != `{"uuid":"k-1"}` {
		t.Errorf("Unexpected report %+v", got)
	}
}

func TestCreateCourseArchiveFailureDoesNotFailRun(t *testing.T) {
	c := New(&fakeAuth{token: "abc"}, &fakeCourses{resp: json.RawMessage(`{}`)}, creds, nil, logging.Discard())
	c.Archiver = &fakeArchiver{err: errors.New("sftp down")}

	if err := c.CreateCourse(context.Background()); err != nil {
		t.Errorf("Expected archive failure to be logged only, got %v", err)
	}
}

// End to end against a fake platform with the real client.
func TestCreateCourseWithMockServer(t *testing.T) {
	var creations int32
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/users/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"abc"}`))
	})
	mux.HandleFunc("/rest/kahoots", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&creations, 1)
		if got := r.Header.Get("Authorization"); got != "Bearer abc" {
			t.Errorf("Expected 'Bearer abc', got '%s'", got)
		}
		w.Write([]byte(`{"uuid":"k-1"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := kahoot.New(server.URL, time.Second)
	c := New(client, client, creds, domain.EmptyPayload(), logging.Discard())

	if err := c.CreateCourse(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if atomic.LoadInt32(&creations) != 1 {
		t.Errorf("Expected 1 creation call, got %d", creations)
	}
}

func TestCreateCourseLoginRejected(t *testing.T) {
	var creations int32
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/users/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"INVALID_CREDENTIALS"}`))
	})
	mux.HandleFunc("/rest/kahoots", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&creations, 1)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := kahoot.New(server.URL, time.Second)
	c := New(client, client, creds, nil, logging.Discard())

	if err := c.CreateCourse(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("Expected ErrNoToken, got %v", err)
	}
	if atomic.LoadInt32(&creations) != 0 {
		t.Errorf("Expected 0 creation calls, got %d", creations)
	}
}

func TestTaskThroughScheduler(t *testing.T) {
	courses := &fakeCourses{resp: json.RawMessage(`{}`)}
	c := New(&fakeAuth{token: "abc"}, courses, creds, nil, logging.Discard())

	s := scheduler.New(time.UTC, logging.Discard())
	if err := s.Add("create-course", "0 0 * * *", c.Task()); err != nil {
		t.Fatal(err)
	}
	if err := s.RunNow(context.Background(), "create-course"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if courses.calls != 1 {
		t.Errorf("Expected 1 creation call, got %d", courses.calls)
	}
}
