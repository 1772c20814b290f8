package httpserver

import (
	"context"
	"errors"
	"net/http"

	"dualbase/internal/dbtarget"
	"dualbase/internal/migration"
)

// migrationService is the slice of the runner the HTTP surface needs.
type migrationService interface {
	Run(ctx context.Context, target dbtarget.Target) (int, error)
	RevertLast(ctx context.Context, target dbtarget.Target) (string, error)
	Status(ctx context.Context, target dbtarget.Target) (pending, executed []string, err error)
	History(ctx context.Context, target dbtarget.Target) ([]migration.HistoryRecord, error)
}

type MigrationHandler struct {
	runner migrationService
	logger requestLogger
}

func NewMigrationHandler(runner migrationService, logger requestLogger) *MigrationHandler {
	return &MigrationHandler{runner: runner, logger: logger}
}

type migrationStatusResponse struct {
	Pending  []string `json:"pending"`
	Executed []string `json:"executed"`
}

func (h *MigrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	target, ok := targetFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_target", "unknown database target")
		return
	}

	pending, executed, err := h.runner.Status(r.Context(), target)
	if err != nil {
		h.logger.Error("migration status failed", "target", target, "error", err)
		writeError(w, http.StatusInternalServerError, "status_failed", "failed to load migration status")
		return
	}
	if pending == nil {
		pending = []string{}
	}
	if executed == nil {
		executed = []string{}
	}
	writeJSON(w, http.StatusOK, migrationStatusResponse{Pending: pending, Executed: executed})
}

func (h *MigrationHandler) History(w http.ResponseWriter, r *http.Request) {
	target, ok := targetFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_target", "unknown database target")
		return
	}

	records, err := h.runner.History(r.Context(), target)
	if err != nil {
		h.logger.Error("migration history failed", "target", target, "error", err)
		writeError(w, http.StatusInternalServerError, "history_failed", "failed to load migration history")
		return
	}
	if records == nil {
		records = []migration.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": records})
}

func (h *MigrationHandler) Run(w http.ResponseWriter, r *http.Request) {
	target, ok := targetFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_target", "unknown database target")
		return
	}

	applied, err := h.runner.Run(r.Context(), target)
	if err != nil {
		h.logger.Error("migration run failed", "target", target, "applied", applied, "error", err)
		writeError(w, http.StatusInternalServerError, "run_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"applied": applied})
}

func (h *MigrationHandler) Revert(w http.ResponseWriter, r *http.Request) {
	target, ok := targetFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_target", "unknown database target")
		return
	}

	name, err := h.runner.RevertLast(r.Context(), target)
	if err != nil {
		if errors.Is(err, migration.ErrNothingToRevert) {
			writeError(w, http.StatusConflict, "nothing_to_revert", "no executed migrations to revert")
			return
		}
		h.logger.Error("migration revert failed", "target", target, "error", err)
		writeError(w, http.StatusInternalServerError, "revert_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reverted": name})
}
