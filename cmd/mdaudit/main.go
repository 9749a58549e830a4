// Entry point for the mdaudit HTTP service: chi router, optional Basic
// Auth, scan history in SQLite, optional MCP stdio transport.
package main

import (
	"context"
	"embed"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/mdaudit/history"
	"github.com/hazyhaar/mdaudit/service"
)

//go:embed static
var staticFS embed.FS

func main() {
	port := env("PORT", "8080")
	scanRoot := env("SCAN_ROOT", "/scan_data")
	historyPath := env("HISTORY_DB", "db/history.db")
	configPath := env("CONFIG", "")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")
	authPassword := os.Getenv("AUTH_PASSWORD")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Config: YAML file if given, env root wins.
	cfg := &service.Config{}
	if configPath != "" {
		loaded, err := service.LoadConfig(configPath)
		if err != nil {
			slog.Error("load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if cfg.Root == "" {
		cfg.Root = scanRoot
	}
	if v := os.Getenv("CONVERT_HTML"); v != "" {
		cfg.ConvertHTML, _ = strconv.ParseBool(v)
	}

	// History DB.
	db, err := history.Open(historyPath)
	if err != nil {
		slog.Error("history db", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := history.NewStore(db)
	if err := store.Init(); err != nil {
		slog.Error("history init", "error", err)
		os.Exit(1)
	}

	// Service.
	svc, err := service.New(cfg, logger, service.WithHistory(store))
	if err != nil {
		slog.Error("service", "error", err)
		os.Exit(1)
	}

	// Optional MCP over stdio, runs instead of the HTTP server.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "mdaudit",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)
		slog.Info("MCP stdio starting", "root", cfg.Root)
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("MCP stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	// Router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Operator page.
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		f, err := staticFS.Open("static/index.html")
		if err != nil {
			http.Error(w, "not found", 404)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
	r.Handle("/static/*", http.FileServerFS(staticFS))

	// API routes, behind Basic Auth when AUTH_PASSWORD is set.
	r.Group(func(r chi.Router) {
		if authPassword != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(authPassword), bcrypt.DefaultCost)
			if err != nil {
				slog.Error("hash auth password", "error", err)
				os.Exit(1)
			}
			r.Use(basicAuth(hash))
		}
		svc.RegisterHTTP(r)
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("mdaudit starting", "port", port, "root", cfg.Root)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server", "error", err)
		os.Exit(1)
	}
}

// basicAuth compares the Basic Auth password against the bcrypt hash.
// The username is not checked; this is a single-operator tool.
func basicAuth(hash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, pass, ok := r.BasicAuth()
			if !ok || bcrypt.CompareHashAndPassword(hash, []byte(pass)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="mdaudit"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
