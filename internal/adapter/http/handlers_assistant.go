package adapthttp

import (
	"net/http"
)

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	text, err := s.assistant.Ask(r.Context(), body.Prompt)
	if err != nil {
		s.log.WithError(err).Warn("assistant request failed")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"text": text})
}
