package adapthttp

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"healthlog/internal/adapter/xlsx"
	"healthlog/internal/normalize"
)

const (
	formatJSON = "json"
	formatXLSX = "xlsx"
)

// handleImport accepts a JSON array or an Excel workbook, either as the
// "file" field of a multipart form or as the raw request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.importMaxBytes)

	src, filename, err := importSource(r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	defer src.Close() //nolint:errcheck

	var rows []normalize.Row
	switch format := importFormat(r, filename); format {
	case formatJSON:
		rows, err = normalize.DecodeJSONRows(src)
	case formatXLSX:
		rows, err = xlsx.ReadRows(src)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported import format %q", format))
		return
	}
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	user := userFromContext(r.Context())
	res, err := s.records.Import(r.Context(), user.ID, rows)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func importSource(r *http.Request) (io.ReadCloser, string, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, "", nil
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	return file, header.Filename, nil
}

func importFormat(r *http.Request, filename string) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return strings.ToLower(f)
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return formatXLSX
	case ".json":
		return formatJSON
	}
	if strings.Contains(r.Header.Get("Content-Type"), "spreadsheetml") {
		return formatXLSX
	}
	return formatJSON
}

// writeDecodeError reports an unreadable upload. Only oversized bodies get a
// status other than 400.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeServiceError(w, err)
		return
	}
	writeError(w, http.StatusBadRequest, err)
}
