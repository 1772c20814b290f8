package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dualbase/internal/dbtarget"
	"dualbase/internal/entity"
	"dualbase/internal/model"
)

// entityResource serves the CRUD surface for one entity kind. The target
// comes from the URL, so one resource covers both backends.
type entityResource[T any, PT interface {
	*T
	entity.Record
}] struct {
	facade *entity.Facade
	logger requestLogger
	kind   model.Kind
}

type validator interface {
	Validate() error
}

// targetFrom resolves the {target} URL segment; unknown values are a client
// error, not a server one.
func targetFrom(r *http.Request) (dbtarget.Target, bool) {
	target, err := dbtarget.Parse(chi.URLParam(r, "target"))
	return target, err == nil
}

func (res *entityResource[T, PT]) mount(r chi.Router) {
	r.Route("/"+res.kind.Name, func(er chi.Router) {
		er.Get("/", res.list)
		er.Post("/", res.create)
		er.Get("/count", res.count)
		er.Get("/{id}", res.get)
		er.Put("/{id}", res.update)
		er.Delete("/{id}", res.delete)
	})
}

// queryFilter builds an equality filter from the non-paging query params.
func (res *entityResource[T, PT]) queryFilter(values url.Values) (entity.Filter, error) {
	filter := entity.Filter{}
	for key, vals := range values {
		switch key {
		case "limit", "offset", "order_by", "desc":
			continue
		}
		if !res.kind.HasColumn(key) {
			return nil, errors.New("unknown filter column " + strconv.Quote(key))
		}
		if len(vals) > 0 {
			filter[key] = vals[0]
		}
	}
	return filter, nil
}

func queryOptions(values url.Values) entity.Options {
	opts := entity.Options{}
	if v, err := strconv.Atoi(values.Get("limit")); err == nil && v > 0 {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(values.Get("offset")); err == nil && v > 0 {
		opts.Offset = v
	}
	opts.OrderBy = values.Get("order_by")
	opts.Descending = values.Get("desc") == "true"
	return opts
}

func (res *entityResource[T, PT]) list(w http.ResponseWriter, r *http.Request) {
	target, ok := targetFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_target", "unknown database target")
		return
	}
	filter, err := res.queryFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	records, err := entity.Find[T](r.Context(), res.facade, target, res.kind, filter, queryOptions(r.URL.Query()))
	if err != nil {
		res.logger.Error("list failed", "kind", res.kind.Name, "target", target, "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list "+res.kind.Name)
		return
	}
	if records == nil {
		records = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{res.kind.Name: records})
}

func (res *entityResource[T, PT]) create(w http.ResponseWriter, r *http.Request) {
	target, ok := targetFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_target", "unknown database target")
		return
	}
	var rec T
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}
	if v, ok := any(PT(&rec)).(validator); ok {
		if err := v.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
	}

	created, err := entity.Create[PT](r.Context(), res.facade, target, res.kind, PT(&rec))
	if err != nil {
		res.logger.Error("create failed", "kind", res.kind.Name, "target", target, "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "failed to create "+res.kind.Name)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (res *entityResource[T, PT]) get(w http.ResponseWriter, r *http.Request) {
	target, ok := targetFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_target", "unknown database target")
		return
	}

	rec, found, err := entity.FindOne[T](r.Context(), res.facade, target, res.kind, entity.Filter{"id": chi.URLParam(r, "id")})
	if err != nil {
		res.logger.Error("get failed", "kind", res.kind.Name, "target", target, "error", err)
		writeError(w, http.StatusInternalServerError, "get_failed", "failed to load "+res.kind.Name)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", res.kind.Name+" not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (res *entityResource[T, PT]) update(w http.ResponseWriter, r *http.Request) {
	target, ok := targetFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_target", "unknown database target")
		return
	}
	var rec T
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}
	ptr := PT(&rec)
	ptr.SetRecordID(chi.URLParam(r, "id"))
	if v, ok := any(ptr).(validator); ok {
		if err := v.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
	}

	updated, err := entity.Update[PT](r.Context(), res.facade, target, res.kind, ptr)
	if err != nil {
		if errors.Is(err, entity.ErrStaleRecord) {
			writeError(w, http.StatusNotFound, "not_found", res.kind.Name+" not found")
			return
		}
		res.logger.Error("update failed", "kind", res.kind.Name, "target", target, "error", err)
		writeError(w, http.StatusInternalServerError, "update_failed", "failed to update "+res.kind.Name)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (res *entityResource[T, PT]) delete(w http.ResponseWriter, r *http.Request) {
	target, ok := targetFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_target", "unknown database target")
		return
	}
	var rec T
	ptr := PT(&rec)
	ptr.SetRecordID(chi.URLParam(r, "id"))

	if err := entity.Remove[PT](r.Context(), res.facade, target, res.kind, ptr); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", res.kind.Name+" not found")
			return
		}
		res.logger.Error("delete failed", "kind", res.kind.Name, "target", target, "error", err)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete "+res.kind.Name)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (res *entityResource[T, PT]) count(w http.ResponseWriter, r *http.Request) {
	target, ok := targetFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_target", "unknown database target")
		return
	}
	filter, err := res.queryFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	n, err := entity.Count(r.Context(), res.facade, target, res.kind, filter)
	if err != nil {
		res.logger.Error("count failed", "kind", res.kind.Name, "target", target, "error", err)
		writeError(w, http.StatusInternalServerError, "count_failed", "failed to count "+res.kind.Name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}
