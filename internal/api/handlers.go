// Package api provides the HTTP server for the chlens dashboard.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/avelkov/chlens/internal/auth"
	"github.com/avelkov/chlens/internal/cache"
	"github.com/avelkov/chlens/internal/config"
	"github.com/avelkov/chlens/internal/sqlfmt"
	"github.com/avelkov/chlens/internal/store"
	"github.com/avelkov/chlens/templates"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/avelkov/chlens/docs/swagger"
)

// Server is the HTTP server for chlens.
type Server struct {
	cache    *cache.Cache
	store    *store.Store
	registry *config.ConnectionManager
	users    *auth.Manager
	insp     Introspector
	mux      *http.ServeMux
	server   *http.Server
}

// NewServer creates the HTTP server.
func NewServer(addr string, c *cache.Cache, st *store.Store, registry *config.ConnectionManager, users *auth.Manager, insp Introspector) *Server {
	srv := &Server{
		cache:    c,
		store:    st,
		registry: registry,
		users:    users,
		insp:     insp,
		mux:      http.NewServeMux(),
	}

	srv.registerRoutes()

	srv.server = &http.Server{
		Addr:         addr,
		Handler:      SecurityHeadersMiddleware(RecoveryMiddleware(LoggingMiddleware(srv.mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return srv
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("HTTP server starting", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler exposes the middleware-wrapped handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) registerRoutes() {
	// Static files
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Full page and fragments
	s.mux.HandleFunc("GET /", s.handleDashboard)
	s.mux.HandleFunc("GET /fragments/tables/{server}", s.handleTablesFragment)

	// Snapshot store reads
	s.mux.HandleFunc("GET /api/monitoring/servers/latest", s.handleServersLatest)
	s.mux.HandleFunc("GET /api/monitoring/servers/history", s.handleServersHistory)
	s.mux.HandleFunc("GET /api/monitoring/tables/{server}/latest", s.handleTablesLatest)
	s.mux.HandleFunc("GET /api/monitoring/tables/{server}/history", s.handleTablesHistory)

	// Live introspection against one server
	s.mux.HandleFunc("GET /api/servers/{server}/disks", s.handleServerDisks)
	s.mux.HandleFunc("GET /api/servers/{server}/tables", s.handleServerTables)
	s.mux.HandleFunc("GET /api/servers/{server}/columns", s.handleServerColumns)
	s.mux.HandleFunc("GET /api/servers/{server}/queries", s.handleServerQueries)

	// Connection registry
	s.mux.HandleFunc("GET /api/connections", s.handleConnectionsList)
	s.mux.HandleFunc("POST /api/connections", requireAdmin(s.users, s.handleConnectionAdd))
	s.mux.HandleFunc("PUT /api/connections/{name}", requireAdmin(s.users, s.handleConnectionUpdate))
	s.mux.HandleFunc("DELETE /api/connections/{name}", requireAdmin(s.users, s.handleConnectionDelete))

	// Auth and utilities
	s.mux.HandleFunc("POST /api/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/format", s.handleFormatSQL)

	// Health check
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Swagger UI
	s.mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

// renderHTML renders a templ component to a buffer first, then writes the
// buffer to the response, so rendering errors become a proper 500 before any
// bytes reach the client.
func renderHTML(w http.ResponseWriter, r *http.Request, component templ.Component) {
	var buf bytes.Buffer
	if err := component.Render(r.Context(), &buf); err != nil {
		slog.Error("rendering component", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("writing HTML response", "path", r.URL.Path, "error", err)
	}
}

// writeJSON marshals v to JSON into a buffer first, then writes it.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding JSON response", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		slog.Debug("writing JSON response", "path", r.URL.Path, "error", err)
	}
}

func queryInt(r *http.Request, name string, def, min, max int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min || n > max {
		return def
	}
	return n
}

// @Summary Dashboard page
// @Description Fleet overview: latest disk usage per server and last collection status
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router / [get]
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	latest, err := s.store.ServerDiskLatest()
	if err != nil {
		slog.Error("querying latest snapshots", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	renderHTML(w, r, templates.Dashboard(latest, s.cache.Snapshot()))
}

// @Summary Table sizes fragment
// @Description HTML fragment with one server's latest table sizes
// @Produce html
// @Param server path string true "Server name"
// @Success 200 {string} string "HTML fragment"
// @Router /fragments/tables/{server} [get]
func (s *Server) handleTablesFragment(w http.ResponseWriter, r *http.Request) {
	server := r.PathValue("server")
	tables, err := s.store.TableDiskLatest(server)
	if err != nil {
		slog.Error("querying latest table sizes", "server", server, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	renderHTML(w, r, templates.TableSizesFragment(server, tables))
}

// @Summary Latest disk usage per server
// @Produce json
// @Success 200 {array} model.ServerDiskPoint
// @Router /api/monitoring/servers/latest [get]
func (s *Server) handleServersLatest(w http.ResponseWriter, r *http.Request) {
	points, err := s.store.ServerDiskLatest()
	if err != nil {
		slog.Error("querying latest snapshots", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, points)
}

// @Summary Disk usage history per server
// @Produce json
// @Param days query int false "Days of history (1-730)" default(30)
// @Success 200 {array} model.ServerDiskPoint
// @Router /api/monitoring/servers/history [get]
func (s *Server) handleServersHistory(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30, 1, 730)
	points, err := s.store.ServerDiskHistory(days)
	if err != nil {
		slog.Error("querying disk history", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, points)
}

// @Summary Latest table sizes for one server
// @Produce json
// @Param server path string true "Server name"
// @Success 200 {array} model.TableDiskLatest
// @Router /api/monitoring/tables/{server}/latest [get]
func (s *Server) handleTablesLatest(w http.ResponseWriter, r *http.Request) {
	server := r.PathValue("server")
	tables, err := s.store.TableDiskLatest(server)
	if err != nil {
		slog.Error("querying latest table sizes", "server", server, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, tables)
}

// @Summary Table size history for one server (top-N plus other)
// @Produce json
// @Param server path string true "Server name"
// @Param days query int false "Days of history (1-730)" default(30)
// @Param top query int false "Number of named series (1-100)" default(30)
// @Success 200 {array} model.TableDiskPoint
// @Router /api/monitoring/tables/{server}/history [get]
func (s *Server) handleTablesHistory(w http.ResponseWriter, r *http.Request) {
	server := r.PathValue("server")
	days := queryInt(r, "days", 30, 1, 730)
	top := queryInt(r, "top", 30, 1, 100)
	points, err := s.store.TableDiskHistory(server, days, top)
	if err != nil {
		slog.Error("querying table history", "server", server, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, points)
}

func (s *Server) connection(w http.ResponseWriter, r *http.Request) (config.Connection, bool) {
	name := r.PathValue("server")
	conn, ok := s.registry.Get(name)
	if !ok {
		http.NotFound(w, r)
		return config.Connection{}, false
	}
	return conn, true
}

// @Summary Live disk usage for one server
// @Produce json
// @Param server path string true "Server name"
// @Success 200 {array} model.Disk
// @Failure 404 {string} string "Unknown server"
// @Failure 502 {string} string "Server unreachable"
// @Router /api/servers/{server}/disks [get]
func (s *Server) handleServerDisks(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.connection(w, r)
	if !ok {
		return
	}
	disks, err := s.insp.Disks(r.Context(), conn)
	if err != nil {
		slog.Warn("live disk query failed", "server", conn.Name, "error", err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}
	writeJSON(w, r, disks)
}

// @Summary Live table listing for one server
// @Description Table sizes merged with last SELECT / INSERT activity
// @Produce json
// @Param server path string true "Server name"
// @Success 200 {array} model.TableInfo
// @Failure 404 {string} string "Unknown server"
// @Failure 502 {string} string "Server unreachable"
// @Router /api/servers/{server}/tables [get]
func (s *Server) handleServerTables(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.connection(w, r)
	if !ok {
		return
	}
	tables, err := s.insp.Tables(r.Context(), conn)
	if err != nil {
		slog.Warn("live table query failed", "server", conn.Name, "error", err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}
	writeJSON(w, r, tables)
}

// @Summary Live column listing for one table
// @Produce json
// @Param server path string true "Server name"
// @Param table query string true "Full table name (database.table)"
// @Success 200 {array} model.ColumnInfo
// @Failure 400 {string} string "Missing table parameter"
// @Router /api/servers/{server}/columns [get]
func (s *Server) handleServerColumns(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.connection(w, r)
	if !ok {
		return
	}
	table := r.URL.Query().Get("table")
	if table == "" {
		http.Error(w, "table parameter is required", http.StatusBadRequest)
		return
	}
	cols, err := s.insp.Columns(r.Context(), conn, table)
	if err != nil {
		slog.Warn("live column query failed", "server", conn.Name, "table", table, "error", err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}
	writeJSON(w, r, cols)
}

// @Summary Recent queries touching one table
// @Produce json
// @Param server path string true "Server name"
// @Param table query string true "Full table name (database.table)"
// @Param limit query int false "Max entries (1-1000)" default(200)
// @Success 200 {array} model.QueryLogEntry
// @Router /api/servers/{server}/queries [get]
func (s *Server) handleServerQueries(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.connection(w, r)
	if !ok {
		return
	}
	table := r.URL.Query().Get("table")
	if table == "" {
		http.Error(w, "table parameter is required", http.StatusBadRequest)
		return
	}
	limit := queryInt(r, "limit", 200, 1, 1000)
	entries, err := s.insp.QueryHistory(r.Context(), conn, table, limit)
	if err != nil {
		slog.Warn("query history failed", "server", conn.Name, "table", table, "error", err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}
	writeJSON(w, r, entries)
}

// @Summary List configured connections
// @Description Passwords are never included in the response
// @Produce json
// @Success 200 {array} config.Connection
// @Router /api/connections [get]
func (s *Server) handleConnectionsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.registry.List())
}

// @Summary Add a connection
// @Accept json
// @Produce json
// @Success 201 {string} string "Created"
// @Failure 400 {string} string "Invalid body"
// @Router /api/connections [post]
func (s *Server) handleConnectionAdd(w http.ResponseWriter, r *http.Request) {
	conn, err := decodeConnection(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.registry.Add(conn); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// @Summary Update a connection
// @Accept json
// @Param name path string true "Existing connection name"
// @Success 204 {string} string "Updated"
// @Failure 400 {string} string "Invalid body"
// @Failure 404 {string} string "Unknown connection"
// @Router /api/connections/{name} [put]
func (s *Server) handleConnectionUpdate(w http.ResponseWriter, r *http.Request) {
	conn, err := decodeConnection(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.registry.Update(r.PathValue("name"), conn); err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary Delete a connection
// @Param name path string true "Connection name"
// @Success 204 {string} string "Deleted"
// @Failure 404 {string} string "Unknown connection"
// @Router /api/connections/{name} [delete]
func (s *Server) handleConnectionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(r.PathValue("name")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeConnection parses a connection body, including the password field
// that the JSON encoder deliberately never emits.
func decodeConnection(body io.Reader) (config.Connection, error) {
	var in struct {
		Name     string `json:"name"`
		Host     string `json:"host"`
		Port     int    `json:"port"`
		User     string `json:"user"`
		Password string `json:"password"`
		Database string `json:"database"`
	}
	if err := json.NewDecoder(body).Decode(&in); err != nil {
		return config.Connection{}, errors.New("invalid request body")
	}
	return config.Connection{
		Name:     in.Name,
		Host:     in.Host,
		Port:     in.Port,
		User:     in.User,
		Password: in.Password,
		Database: in.Database,
	}, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// @Summary Validate credentials
// @Accept json
// @Produce json
// @Success 200 {object} loginResponse
// @Failure 401 {string} string "Invalid credentials"
// @Router /api/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	user, ok := s.users.Authenticate(req.Username, req.Password)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, r, loginResponse{Name: user.Name, Role: user.Role})
}

// @Summary Format a SQL statement
// @Description Uppercases keywords while preserving ClickHouse function casing
// @Accept plain
// @Produce plain
// @Success 200 {string} string "Formatted SQL"
// @Router /api/format [post]
func (s *Server) handleFormatSQL(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, sqlfmt.Format(string(body)))
}

// @Summary Health check
// @Produce plain
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok")
}
