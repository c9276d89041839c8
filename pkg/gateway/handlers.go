package gateway

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/voicebrew/ttsgate/pkg/logger"
	"github.com/voicebrew/ttsgate/pkg/store"
	"github.com/voicebrew/ttsgate/pkg/synth"
)

type createResponse struct {
	Code     int    `json:"code"`
	Response string `json:"response"`
	Cache    bool   `json:"cache"`
}

type createFailure struct {
	Code     int    `json:"code"`
	Response string `json:"response"`
	Error    string `json:"error"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusTeapot, "API is online, have some tea.")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: apiVersion})
}

// handleAudio streams a rendered audio file from the storage root.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		writeStatus(w, http.StatusNotFound, "File not found")
		return
	}

	path := filepath.Join(s.cfg.FileLocation, filename)
	if _, err := os.Stat(path); err != nil {
		writeStatus(w, http.StatusNotFound, "File not found")
		return
	}

	http.ServeFile(w, r, path)
}

// handleResetDB drops all rows and audio files, then recreates the schema.
// Destructive and irreversible; gated behind authentication.
func (s *Server) handleResetDB(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.cfg.FileLocation)
	if err != nil && !os.IsNotExist(err) {
		logger.ErrorCF("gateway", "reset: read storage root", map[string]any{"error": err.Error()})
		writeStatus(w, http.StatusInternalServerError, "Failed to clear audio storage")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp3") {
			continue
		}
		if err := os.Remove(filepath.Join(s.cfg.FileLocation, entry.Name())); err != nil {
			logger.WarnCF("gateway", "reset: remove audio file", map[string]any{
				"file":  entry.Name(),
				"error": err.Error(),
			})
		}
	}

	if err := s.store.Reset(r.Context()); err != nil {
		logger.ErrorCF("gateway", "reset: bootstrap", map[string]any{"error": err.Error()})
		writeStatus(w, http.StatusInternalServerError, "Failed to recreate database structure")
		return
	}

	logger.InfoC("gateway", "Database and audio storage reset")
	writeStatus(w, http.StatusOK, "Dropped all data and recreated structure successfully")
}

// handleUser returns the usage summary for one user.
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil || userID < 0 {
		writeStatus(w, http.StatusBadRequest, "UserID must be int")
		return
	}

	sum, err := s.orch.Usage(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		writeStatus(w, http.StatusNotFound, "User was not found...")
		return
	}
	if err != nil {
		logger.ErrorCF("gateway", "user summary", map[string]any{"error": err.Error()})
		writeStatus(w, http.StatusInternalServerError, "Datastore query failed")
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

// handleCreate runs one synthesis request. Request parameters travel in the
// text and user_id headers.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	text := r.Header.Get("text")
	rawUserID := r.Header.Get("user_id")

	if rawUserID == "" {
		writeStatus(w, http.StatusBadRequest, "Missing 'user_id' in headers")
		return
	}
	userID, err := strconv.ParseInt(rawUserID, 10, 64)
	if err != nil || userID < 0 {
		writeStatus(w, http.StatusBadRequest, "'user_id' must be int value")
		return
	}
	if text == "" {
		writeStatus(w, http.StatusBadRequest, "Missing 'text' in headers")
		return
	}

	res, err := s.orch.Create(r.Context(), text, userID)
	if err != nil {
		s.writeCreateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createResponse{
		Code:     http.StatusOK,
		Response: res.Handle.ID,
		Cache:    res.Cached,
	})
}

func (s *Server) writeCreateError(w http.ResponseWriter, err error) {
	var rateErr *synth.RateLimitError
	var provErr *synth.ProviderError

	switch {
	case errors.Is(err, synth.ErrEmptyText):
		writeStatus(w, http.StatusBadRequest, "Missing 'text' in headers")
	case errors.As(err, &rateErr):
		writeStatus(w, http.StatusTooManyRequests, rateErr.Error())
	case errors.As(err, &provErr):
		// Reported as a recoverable error body: the request failed but no
		// state was mutated, the caller may retry.
		writeJSON(w, http.StatusOK, createFailure{
			Code:     http.StatusNotFound,
			Response: "Unable to generate voice, speech provider failed...",
			Error:    provErr.Err.Error(),
		})
	default:
		logger.ErrorCF("gateway", "create", map[string]any{"error": err.Error()})
		writeStatus(w, http.StatusInternalServerError, "Datastore query failed")
	}
}
