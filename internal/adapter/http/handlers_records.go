package adapthttp

import (
	"errors"
	"net/http"
	"strconv"

	"healthlog/internal/app"
)

func historyQuery(r *http.Request) app.HistoryQuery {
	q := r.URL.Query()
	return app.HistoryQuery{
		Search: q.Get("search"),
		From:   q.Get("from"),
		To:     q.Get("to"),
	}
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFromContext(ctx)

	switch r.Method {
	case http.MethodGet:
		items, err := s.records.History(ctx, user.ID, historyQuery(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	case http.MethodPost:
		var sub app.Submission
		if err := parseJSON(r, &sub); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rec, err := s.records.Submit(ctx, user.ID, sub)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"record": rec})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid record id"))
		return
	}
	if err := s.records.Delete(r.Context(), userFromContext(r.Context()).ID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		IDs []int64 `json:"ids"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.records.BulkDelete(r.Context(), userFromContext(r.Context()).ID, body.IDs); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "requested": len(body.IDs)})
}
