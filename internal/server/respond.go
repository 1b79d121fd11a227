package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Error codes surfaced to clients.
const (
	codeValidation  = "VALIDATION_ERROR"
	codeInvalidURL  = "INVALID_URL"
	codeScraping    = "SCRAPING_FAILED"
	codeNotFound    = "GROUP_NOT_FOUND"
	codeGroupExists = "GROUP_EXISTS"
	codeDatabase    = "DATABASE_ERROR"
	codeInternal    = "INTERNAL_SERVER_ERROR"
	codeRateLimit   = "RATE_LIMIT_EXCEEDED"
)

type pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

func newPagination(page, limit, total int) pagination {
	totalPages := (total + limit - 1) / limit
	return pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: limit,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg, "code": code})
}

// parsePagination reads page/limit query params. Absent params take the
// given default limit and page 1; present-but-invalid params are a client
// error, matching the strictness of the API this replaces.
func parsePagination(r *http.Request, defaultLimit int) (page, limit int, err error) {
	page, err = parseQueryInt(r, "page", 1)
	if err != nil || page < 1 {
		return 0, 0, eris.New("page must be an integer >= 1")
	}
	limit, err = parseQueryInt(r, "limit", defaultLimit)
	if err != nil || limit < 1 || limit > 100 {
		return 0, 0, eris.New("limit must be an integer between 1 and 100")
	}
	return page, limit, nil
}

func parseQueryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
