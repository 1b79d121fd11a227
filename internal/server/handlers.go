package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shelfgrab/shelfgrab/internal/model"
	"github.com/shelfgrab/shelfgrab/internal/scraper"
)

const (
	defaultGroupsLimit = 10
	defaultBooksLimit  = 20
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type scrapeRequest struct {
	URL       string `json:"url"`
	GroupName string `json:"groupName"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	result, err := s.scraper.Run(r.Context(), req.URL, req.GroupName)
	if err != nil {
		writeScrapeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, map[string]any{
		"groupId":      result.GroupID,
		"groupName":    result.GroupName,
		"booksScraped": result.BooksScraped,
		"booksFound":   result.BooksFound,
		"message":      fmt.Sprintf("Successfully scraped %d books", result.BooksScraped),
	})
}

func writeScrapeError(w http.ResponseWriter, err error) {
	var (
		ve *model.ValidationError
		fe *scraper.FetchError
		se *scraper.StoreError
	)
	switch {
	case errors.As(err, &ve):
		code := codeValidation
		if ve.Field == "url" {
			code = codeInvalidURL
		}
		writeError(w, http.StatusBadRequest, code, ve.Error())
	case errors.Is(err, scraper.ErrGroupExists):
		writeError(w, http.StatusConflict, codeGroupExists, "group already exists")
	case errors.As(err, &fe):
		writeError(w, http.StatusBadRequest, codeScraping, err.Error())
	case errors.As(err, &se):
		zap.L().Error("server: store failure during scrape", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeDatabase, "database operation failed")
	default:
		zap.L().Error("server: unexpected scrape failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r, defaultGroupsLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	groups, err := s.store.ListGroups(r.Context(), page, limit)
	if err != nil {
		zap.L().Error("server: list groups", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeDatabase, "database operation failed")
		return
	}
	total, err := s.store.CountGroups(r.Context())
	if err != nil {
		zap.L().Error("server: count groups", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeDatabase, "database operation failed")
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"groups":     groups,
		"pagination": newPagination(page, limit, total),
	})
}

func (s *Server) handleGroupBooks(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	page, limit, err := parsePagination(r, defaultBooksLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	group, err := s.store.GetGroup(r.Context(), groupID)
	if err != nil {
		zap.L().Error("server: get group", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeDatabase, "database operation failed")
		return
	}
	if group == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "group not found")
		return
	}

	books, err := s.store.ListBooksByGroup(r.Context(), groupID, page, limit)
	if err != nil {
		zap.L().Error("server: list books", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeDatabase, "database operation failed")
		return
	}
	total, err := s.store.CountBooksInGroup(r.Context(), groupID)
	if err != nil {
		zap.L().Error("server: count books", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeDatabase, "database operation failed")
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"group":      group,
		"books":      books,
		"pagination": newPagination(page, limit, total),
	})
}
