package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/tracker/internal/manager"
	"github.com/fentz26/tracker/internal/models"
	"github.com/fentz26/tracker/internal/store"
	"github.com/fentz26/tracker/internal/version"
	"github.com/google/uuid"
)

// Backend is the storage surface the server reports on directly.
// *store.Store satisfies it.
type Backend interface {
	Ping(ctx context.Context) error
	ListJournal(ctx context.Context, limit int) ([]store.JournalEntry, error)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// Server provides the HTTP API for the tracker.
type Server struct {
	service *Service
	backend Backend
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, backend Backend, addr string) *Server {
	return &Server{
		service: service,
		backend: backend,
		addr:    addr,
	}
}

// Handler returns the routed, logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	for _, res := range s.resources() {
		res := res
		mux.HandleFunc(res.prefix, func(w http.ResponseWriter, r *http.Request) {
			s.handleCollection(w, r, res)
		})
		mux.HandleFunc(res.prefix+"/", func(w http.ResponseWriter, r *http.Request) {
			s.handleByID(w, r, res)
		})
	}

	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/prioritized", s.handlePrioritized)
	mux.HandleFunc("/journal", s.handleJournal)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, fmt.Errorf("%w: %s", ErrRouteNotFound, r.URL.Path))
	})

	return withRequestLog(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Starting tracker daemon on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// --- Resources ---

// resource binds one item kind to its service operations so the three
// kinds share routing.
type resource struct {
	kind      models.Kind
	prefix    string
	list      func() []models.Item
	get       func(id int) (models.Item, error)
	create    func(ctx context.Context, req ItemRequest) (int, error)
	update    func(ctx context.Context, id int, req ItemRequest) error
	remove    func(ctx context.Context, id int) error
	removeAll func(ctx context.Context) error
}

func (s *Server) resources() []resource {
	svc := s.service
	return []resource{
		{
			kind:   models.KindTask,
			prefix: "/tasks",
			list: func() []models.Item {
				tasks := svc.ListTasks()
				items := make([]models.Item, len(tasks))
				for i := range tasks {
					items[i] = &tasks[i]
				}
				return items
			},
			get: func(id int) (models.Item, error) {
				t, err := svc.GetTask(id)
				if err != nil {
					return nil, err
				}
				return t, nil
			},
			create: func(ctx context.Context, req ItemRequest) (int, error) {
				t, err := req.Task()
				if err != nil {
					return 0, err
				}
				return svc.CreateTask(ctx, t)
			},
			update: func(ctx context.Context, id int, req ItemRequest) error {
				t, err := req.Task()
				if err != nil {
					return err
				}
				return svc.UpdateTask(ctx, id, t)
			},
			remove:    svc.DeleteTask,
			removeAll: svc.DeleteTasks,
		},
		{
			kind:   models.KindEpic,
			prefix: "/epics",
			list: func() []models.Item {
				epics := svc.ListEpics()
				items := make([]models.Item, len(epics))
				for i := range epics {
					items[i] = &epics[i]
				}
				return items
			},
			get: func(id int) (models.Item, error) {
				e, err := svc.GetEpic(id)
				if err != nil {
					return nil, err
				}
				return e, nil
			},
			create: func(ctx context.Context, req ItemRequest) (int, error) {
				return svc.CreateEpic(ctx, req.Epic())
			},
			update: func(ctx context.Context, id int, req ItemRequest) error {
				return svc.UpdateEpic(ctx, id, req.Epic())
			},
			remove:    svc.DeleteEpic,
			removeAll: svc.DeleteEpics,
		},
		{
			kind:   models.KindSubtask,
			prefix: "/subtasks",
			list: func() []models.Item {
				return subtaskItems(svc.ListSubtasks())
			},
			get: func(id int) (models.Item, error) {
				st, err := svc.GetSubtask(id)
				if err != nil {
					return nil, err
				}
				return st, nil
			},
			create: func(ctx context.Context, req ItemRequest) (int, error) {
				st, err := req.Subtask()
				if err != nil {
					return 0, err
				}
				return svc.CreateSubtask(ctx, st)
			},
			update: func(ctx context.Context, id int, req ItemRequest) error {
				st, err := req.Subtask()
				if err != nil {
					return err
				}
				return svc.UpdateSubtask(ctx, id, st)
			},
			remove:    svc.DeleteSubtask,
			removeAll: svc.DeleteSubtasks,
		},
	}
}

func subtaskItems(subs []models.Subtask) []models.Item {
	items := make([]models.Item, len(subs))
	for i := range subs {
		items[i] = &subs[i]
	}
	return items
}

func noun(kind models.Kind) string {
	return strings.ToLower(string(kind))
}

// handleCollection handles GET, POST and DELETE on /tasks, /epics and /subtasks.
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request, res resource) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, EncodeItems(res.list()))
	case http.MethodPost:
		s.create(w, r, res)
	case http.MethodDelete:
		if err := res.removeAll(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("all %ss deleted", noun(res.kind))})
	default:
		writeError(w, ErrMethodNotAllowed)
	}
}

// handleByID handles /{kind}/{id} and /epics/{id}/subtasks.
func (s *Server) handleByID(w http.ResponseWriter, r *http.Request, res resource) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, res.prefix), "/")
	if path == "" {
		// Trailing slash on the collection.
		s.handleCollection(w, r, res)
		return
	}
	parts := strings.Split(path, "/")

	id, err := strconv.Atoi(parts[0])
	if err != nil {
		writeError(w, fmt.Errorf("%w: id %q", manager.ErrMalformedInput, parts[0]))
		return
	}
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case len(parts) > 2:
		writeError(w, fmt.Errorf("%w: %s", ErrRouteNotFound, r.URL.Path))
	case action == "subtasks" && res.kind == models.KindEpic:
		s.epicSubtasks(w, r, id)
	case action != "":
		writeError(w, fmt.Errorf("%w: %s", ErrRouteNotFound, r.URL.Path))
	case r.Method == http.MethodGet:
		it, err := res.get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, EncodeItem(it))
	case r.Method == http.MethodPost:
		s.update(w, r, res, id)
	case r.Method == http.MethodDelete:
		if err := res.remove(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("%s %d deleted", noun(res.kind), id), ID: id})
	default:
		writeError(w, ErrMethodNotAllowed)
	}
}

// --- Item Handlers ---

func (s *Server) create(w http.ResponseWriter, r *http.Request, res resource) {
	req, err := decodeRequest(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := res.create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Message: fmt.Sprintf("%s created", noun(res.kind)), ID: id})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, res resource, id int) {
	req, err := decodeRequest(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := res.update(r.Context(), id, req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Message: fmt.Sprintf("%s updated", noun(res.kind)), ID: id})
}

func (s *Server) epicSubtasks(w http.ResponseWriter, r *http.Request, id int) {
	if r.Method != http.MethodGet {
		writeError(w, ErrMethodNotAllowed)
		return
	}
	subs, err := s.service.EpicSubtasks(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EncodeItems(subtaskItems(subs)))
}

// --- View Handlers ---

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, ErrMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, EncodeItems(s.service.History()))
}

func (s *Server) handlePrioritized(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, ErrMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, EncodeItems(s.service.Prioritized()))
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, ErrMethodNotAllowed)
		return
	}

	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeError(w, fmt.Errorf("%w: limit %q", manager.ErrMalformedInput, q))
			return
		}
		limit = n
	}

	entries, err := s.backend.ListJournal(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []store.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, ErrMethodNotAllowed)
		return
	}

	resp := HealthResponse{
		OK:      true,
		DB:      "ok",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.backend.Ping(ctx); err != nil {
		resp.OK = false
		resp.DB = err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

// --- Middleware ---

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog stamps each request with an X-Request-ID and logs it once
// the handler returns.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s [%s]", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond), reqID)
	})
}
