package adapthttp

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"

	"healthlog/internal/adapter/xlsx"
	"healthlog/internal/app"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExport writes the filtered history as a workbook. Headers follow the
// lang query parameter, then Accept-Language.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	recs, err := s.records.List(ctx, userFromContext(ctx).ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	recs = app.FilterRecords(recs, historyQuery(r))

	lang := xlsx.PickLanguage(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	var buf bytes.Buffer
	if err := xlsx.Export(&buf, recs, lang); err != nil {
		writeServiceError(w, err)
		return
	}

	name := xlsx.ExportFileName(r.URL.Query().Get("name"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
