package server

import (
	"net/http"

	"github.com/vacwatch/vacwatch/internal/utils"
	"github.com/vacwatch/vacwatch/pkg/scrape"
	"github.com/vacwatch/vacwatch/pkg/storage"
)

type Server struct {
	DB           *storage.DB
	Orchestrator *scrape.Orchestrator
	Username     string
	Password     string
}

func New(db *storage.DB, orch *scrape.Orchestrator, user, pass string) *Server {
	return &Server{
		DB:           db,
		Orchestrator: orch,
		Username:     user,
		Password:     pass,
	}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.basicAuth(s.handleStats))
	mux.HandleFunc("GET /vacancies", s.basicAuth(s.handleVacancies))
	mux.HandleFunc("GET /vacancies/{id}", s.basicAuth(s.handleVacancyDetail))
	mux.HandleFunc("GET /export", s.basicAuth(s.handleExport))
	mux.HandleFunc("POST /scrape", s.basicAuth(s.handleScrape))
	mux.HandleFunc("OPTIONS /", s.handleOptions)

	utils.Log.Infof("Starting server on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusOK)
}
