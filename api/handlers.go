// Package api serves a client's locale preference over HTTP. Each request
// is handled by a localeprefs.Manager over the client's slice of the shared
// storage, the request's cookies and the client's cache.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/CreativeUnicorns/localeprefs"
)

// maxBodyBytes limits request payloads.
const maxBodyBytes = 64 * 1024

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		s.respondWithError(w, r, http.StatusServiceUnavailable, "Storage unavailable", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	res := s.managerFor(w, r).Preference(r.Context())
	if !res.Success {
		s.respondWithFailure(w, r, "Failed to get preference", res.Error)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, res.Data)
}

func (s *Server) handleSavePreference(w http.ResponseWriter, r *http.Request) {
	var upd localeprefs.PreferenceUpdate
	if !s.decode(w, r, &upd) {
		return
	}

	res := s.managerFor(w, r).SaveUserPreference(r.Context(), upd)
	if !res.Success {
		s.respondWithFailure(w, r, "Failed to save preference", res.Error)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, res.Data)
}

func (s *Server) handleRemovePreference(w http.ResponseWriter, r *http.Request) {
	res := s.managerFor(w, r).RemoveUserPreference(r.Context())
	if !res.Success {
		s.respondWithFailure(w, r, "Failed to remove preference", res.Error)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, map[string]bool{"removed": *res.Data})
}

func (s *Server) handleValidatePreference(w http.ResponseWriter, r *http.Request) {
	var rec localeprefs.PreferenceRecord
	if !s.decode(w, r, &rec) {
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, s.managerFor(w, r).ValidatePreferenceData(&rec))
}

func (s *Server) handleResolveLocale(w http.ResponseWriter, r *http.Request) {
	res := s.managerFor(w, r).ResolveLocale(r.Context(), r.Header.Get("Accept-Language"))
	w.Header().Set("Content-Language", res.Locale)
	s.respondWithJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res := s.managerFor(w, r).SyncPreferenceData(r.Context())
	if !res.Success {
		s.respondWithFailure(w, r, "Failed to sync preference", res.Error)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, res.Data)
}

func (s *Server) handleCheckConsistency(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, r, http.StatusOK, s.managerFor(w, r).CheckDataConsistency(r.Context()))
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	res := s.managerFor(w, r).FixDataInconsistency(r.Context())
	if !res.Success {
		s.respondWithFailure(w, r, "Failed to repair preference data", res.Error)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, res.Data)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, r, http.StatusOK, s.managerFor(w, r).GetStorageUsage(r.Context()))
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	res := s.managerFor(w, r).OptimizeStoragePerformance(r.Context())
	if !res.Success {
		s.respondWithFailure(w, r, "Failed to optimize storage", res.Error)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, res.Data)
}

func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, r, http.StatusOK, s.registry.Get(ClientIDFromContext(r.Context())).GetCacheStatus())
}

// handleClearCache clears the keys named by repeated "key" query parameters,
// or the whole client cache when none are given.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	cm := s.registry.Get(ClientIDFromContext(r.Context()))
	cm.ClearCache(r.URL.Query()["key"]...)
	s.respondWithJSON(w, r, http.StatusOK, cm.GetCacheStatus())
}

func (s *Server) handleWarmCache(w http.ResponseWriter, r *http.Request) {
	seeded := s.managerFor(w, r).WarmUpCache(r.Context())
	s.respondWithJSON(w, r, http.StatusOK, map[string]bool{"seeded": seeded})
}

// decode reads a JSON body into dst, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request payload", err)
		return false
	}
	return true
}

// failureStatus maps a failed Result's message to an HTTP status by the
// sentinel error it starts with.
func failureStatus(msg string) int {
	hasPrefix := func(err error) bool { return strings.HasPrefix(msg, err.Error()) }
	switch {
	case hasPrefix(localeprefs.ErrNotFound):
		return http.StatusNotFound
	case hasPrefix(localeprefs.ErrInvalidInput), hasPrefix(localeprefs.ErrInvalidRecord), hasPrefix(localeprefs.ErrInvalidLocale):
		return http.StatusBadRequest
	case hasPrefix(localeprefs.ErrQuotaExceeded):
		return http.StatusInsufficientStorage
	case hasPrefix(localeprefs.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondWithFailure(w http.ResponseWriter, r *http.Request, message, failure string) {
	s.respondWithError(w, r, failureStatus(failure), message, errors.New(failure))
}

// respondWithError is a helper to send JSON error responses.
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	body := map[string]string{"message": message}
	if err != nil {
		body["details"] = err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("API Error", "status", status, "message", message, "path", r.URL.Path, "client_id", ClientIDFromContext(r.Context()), "error", err)
	} else {
		s.logger.Debug("API Error", "status", status, "message", message, "path", r.URL.Path, "client_id", ClientIDFromContext(r.Context()), "error", err)
	}
	writeJSON(w, status, map[string]any{"error": body})
}

// respondWithJSON is a helper to send JSON responses.
func (s *Server) respondWithJSON(w http.ResponseWriter, _ *http.Request, status int, payload any) {
	if err := writeJSON(w, status, payload); err != nil {
		s.logger.Error("Failed to marshal JSON response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"Failed to marshal response"}}`))
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	return nil
}
