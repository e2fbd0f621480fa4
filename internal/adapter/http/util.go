package adapthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"strconv"

	"healthlog/internal/app"
	"healthlog/internal/normalize"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeServiceError maps application errors to status codes. Conflicts and
// partial writes carry their details in the body.
func writeServiceError(w http.ResponseWriter, err error) {
	var dup *app.DuplicateDatesError
	if errors.As(err, &dup) {
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "dates": dup.Dates, "inBatch": dup.InBatch})
		return
	}
	var chunkErr *app.ChunkError
	if errors.As(err, &chunkErr) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "committed": chunkErr.Committed})
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
		return
	}

	switch {
	case errors.Is(err, app.ErrInvalidWeight),
		errors.Is(err, app.ErrInvalidRecord),
		errors.Is(err, app.ErrInvalidID),
		errors.Is(err, app.ErrInvalidUnit),
		errors.Is(err, app.ErrEmptyPrompt),
		errors.Is(err, app.ErrPromptTooLong),
		errors.Is(err, normalize.ErrNotArray),
		errors.Is(err, normalize.ErrNoRows),
		errors.Is(err, normalize.ErrNoValidRows):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, app.ErrAssistantDisabled):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func parseJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func spaFromDisk(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	indexPath := path.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqPath := path.Clean(r.URL.Path)
		if reqPath == "/" {
			http.ServeFile(w, r, indexPath)
			return
		}

		staticPath := path.Join(dir, reqPath)
		if _, err := os.Stat(staticPath); err == nil {
			fileServer.ServeHTTP(w, r)
			return
		}

		http.ServeFile(w, r, indexPath)
	})
}
