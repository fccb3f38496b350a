package api

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks", s.handleCreateTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/reorder", s.handleReorderTasks).Methods(http.MethodPost)
	r.HandleFunc("/tasks/stats", s.handleTaskStats).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id:[0-9]+}", s.handleGetTask).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id:[0-9]+}", s.handleUpdateTask).Methods(http.MethodPut)
	r.HandleFunc("/tasks/{id:[0-9]+}", s.handleDeleteTask).Methods(http.MethodDelete)

	r.HandleFunc("/templates", s.handleListTemplates).Methods(http.MethodGet)
	r.HandleFunc("/templates", s.handleSaveTemplate).Methods(http.MethodPost)
	r.HandleFunc("/templates/apply/{id:[0-9]+}", s.handleApplyTemplate).Methods(http.MethodPost)
	r.HandleFunc("/templates/{id:[0-9]+}", s.handleGetTemplate).Methods(http.MethodGet)
	r.HandleFunc("/templates/{id:[0-9]+}", s.handleReplaceTemplate).Methods(http.MethodPut)
	r.HandleFunc("/templates/{id:[0-9]+}", s.handleDeleteTemplate).Methods(http.MethodDelete)

	// 未匹配的 GET 请求交给静态目录，其余返回 JSON 404。
	r.NotFoundHandler = s.instrument(s.fallback())
	r.MethodNotAllowedHandler = s.instrument(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	}))

	var handler http.Handler = r
	if len(s.opts.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
		}).Handler(handler)
	}
	return withRequestID(handler)
}

func (s *Server) fallback() http.Handler {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})
	if s.opts.StaticDir == "" {
		return notFound
	}
	if info, err := os.Stat(s.opts.StaticDir); err != nil || !info.IsDir() {
		return notFound
	}
	files := http.FileServer(http.Dir(s.opts.StaticDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			notFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
