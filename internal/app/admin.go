package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/task"
)

// adminServer is the node's HTTP control surface.
type adminServer struct {
	srv  *http.Server
	addr net.Addr
	done chan struct{}
}

type modulesResponse struct {
	Host   string         `json:"host"`
	Shared []string       `json:"shared"`
	Remote []remoteStatus `json:"remote"`
	Server *serverStatus  `json:"server,omitempty"`
}

type serverStatus struct {
	Port int `json:"port"`
}

type remoteStatus struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
}

func (a *App) newAdminRouter() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", a.healthHandler).Methods(http.MethodGet)
	router.HandleFunc("/modules", a.modulesHandler).Methods(http.MethodGet)
	router.HandleFunc("/tasks", a.tasksHandler).Methods(http.MethodGet)
	router.HandleFunc("/tasks/{name}/{action}", a.taskActionHandler).Methods(http.MethodPost)
	router.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)
	return router
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) modulesHandler(w http.ResponseWriter, r *http.Request) {
	resp := modulesResponse{
		Host:   a.manager.Hostname(),
		Shared: a.manager.SharedModules().Keys(),
		Remote: []remoteStatus{},
	}
	for _, h := range a.manager.RemoteModules().Items() {
		p := h.Proxy()
		resp.Remote = append(resp.Remote, remoteStatus{Name: h.Name, URL: h.URL(), ID: p.ID(), Valid: p.Valid()})
	}
	if srv := a.manager.Server(); srv.Running() {
		resp.Server = &serverStatus{Port: srv.Port()}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) tasksHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.tasks.Snapshots())
}

func (a *App) taskActionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, action := vars["name"], vars["action"]
	ctx := ctxlog.WithLogger(r.Context(), a.logger)

	u, err := a.tasks.Get(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var body map[string]any
	switch t := u.(type) {
	case *task.Task:
		switch action {
		case "run":
			err = t.Run(ctx)
		case "pause":
			err = t.Pause(ctx)
		case "resume":
			err = t.Resume(ctx)
		case "finish":
			err = t.Finish(ctx)
		default:
			http.Error(w, fmt.Sprintf("unknown action %q", action), http.StatusBadRequest)
			return
		}
		if err == nil {
			body = taskBody(t)
		}
	case *task.PrePostTask:
		switch action {
		case "prerun":
			err = t.PreRun(ctx)
		case "postrun":
			err = t.PostRun(ctx)
		default:
			http.Error(w, fmt.Sprintf("unknown action %q for a pre/post task", action), http.StatusBadRequest)
			return
		}
		if err == nil {
			body = map[string]any{"name": t.Name(), "state": t.State()}
		}
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, task.ErrInvalidTransition) || errors.Is(err, task.ErrNotInterruptable) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func taskBody(t *task.Task) map[string]any {
	res := t.Result()
	body := map[string]any{
		"name":    t.Name(),
		"state":   t.State(),
		"outcome": res.Outcome.String(),
		"data":    res.Data,
	}
	if res.Err != nil {
		body["error"] = res.Err.Error()
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// startAdmin binds the admin server and serves it in a goroutine.
func (a *App) startAdmin(ctx context.Context, port int) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring admin server.")

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to start admin server: %w", err)
	}
	admin := &adminServer{
		srv:  &http.Server{Handler: a.newAdminRouter()},
		addr: ln.Addr(),
		done: make(chan struct{}),
	}

	go func() {
		defer close(admin.done)
		logger.Info("🩺 Admin server starting", "address", "http://"+admin.addr.String()+"/health")
		if err := admin.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Admin server failed unexpectedly", "error", err)
		}
	}()

	a.mu.Lock()
	a.admin = admin
	a.mu.Unlock()
	return nil
}

func (s *adminServer) shutdown(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("🩺 Shutting down admin server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		logger.Error("Admin server shutdown failed", "error", err)
		return err
	}
	<-s.done
	logger.Debug("Admin server shut down gracefully.")
	return nil
}
