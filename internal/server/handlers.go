package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/vacwatch/vacwatch/internal/utils"
	"github.com/vacwatch/vacwatch/pkg/scrape"
	"github.com/vacwatch/vacwatch/pkg/storage"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.DB.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleVacancies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 100
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	vacancies, err := s.DB.ListVacancies(r.Context(), storage.ListOptions{
		Limit:      limit,
		Profession: q.Get("profession"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(vacancies),
		"vacancies": vacancies,
	})
}

func (s *Server) handleVacancyDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.DB.GetVacancy(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("bemlo_vacancies_%s.csv", time.Now().Format("20060102_1504"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := s.DB.ExportCSV(r.Context(), w); err != nil {
		utils.Log.Errorf("CSV export failed: %v", err)
	}
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	utils.Log.Info("Scrape triggered via HTTP")

	sum, err := s.Orchestrator.Run(r.Context())
	if errors.Is(err, scrape.ErrRunInProgress) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		// A failed run still carries partial counts worth returning.
		if sum != nil {
			writeJSON(w, http.StatusInternalServerError, sum)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
