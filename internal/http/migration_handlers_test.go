package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"dualbase/internal/dbtarget"
	"dualbase/internal/migration"
)

type fakeMigrationService struct {
	pending  []string
	executed []string
	history  []migration.HistoryRecord
	applied  int
	reverted string
	err      error
}

func (f *fakeMigrationService) Run(context.Context, dbtarget.Target) (int, error) {
	return f.applied, f.err
}

func (f *fakeMigrationService) RevertLast(context.Context, dbtarget.Target) (string, error) {
	return f.reverted, f.err
}

func (f *fakeMigrationService) Status(context.Context, dbtarget.Target) ([]string, []string, error) {
	return f.pending, f.executed, f.err
}

func (f *fakeMigrationService) History(context.Context, dbtarget.Target) ([]migration.HistoryRecord, error) {
	return f.history, f.err
}

func migrationRouter(svc migrationService) http.Handler {
	h := NewMigrationHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/{target}/migrations", func(mg chi.Router) {
		mg.Get("/", h.Status)
		mg.Get("/history", h.History)
		mg.Post("/run", h.Run)
		mg.Post("/revert", h.Revert)
	})
	return r
}

func TestMigrationStatusHandler(t *testing.T) {
	t.Parallel()

	router := migrationRouter(&fakeMigrationService{
		pending:  []string{"1700000000001-Second"},
		executed: []string{"1700000000000-First"},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/postgresql/migrations/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var body migrationStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Pending) != 1 || body.Pending[0] != "1700000000001-Second" {
		t.Errorf("pending = %v", body.Pending)
	}
	if len(body.Executed) != 1 || body.Executed[0] != "1700000000000-First" {
		t.Errorf("executed = %v", body.Executed)
	}
}

func TestMigrationHandlerRejectsUnknownTarget(t *testing.T) {
	t.Parallel()

	router := migrationRouter(&fakeMigrationService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mysql/migrations/run", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMigrationRunHandler(t *testing.T) {
	t.Parallel()

	router := migrationRouter(&fakeMigrationService{applied: 2})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mongodb/migrations/run", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["applied"] != 2 {
		t.Errorf("applied = %d", body["applied"])
	}
}

func TestMigrationRevertHandler(t *testing.T) {
	t.Parallel()

	t.Run("nothing to revert is a conflict", func(t *testing.T) {
		t.Parallel()
		svc := &fakeMigrationService{
			err: &migration.MigrationError{Target: dbtarget.PostgreSQL, Op: "revert", Err: migration.ErrNothingToRevert},
		}
		router := migrationRouter(svc)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/postgresql/migrations/revert", nil))

		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("other failures are server errors", func(t *testing.T) {
		t.Parallel()
		router := migrationRouter(&fakeMigrationService{err: errors.New("boom")})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/postgresql/migrations/revert", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
}
