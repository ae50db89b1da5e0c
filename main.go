// Command busjam starts the bus jam puzzle server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, level and session storage, message translations,
// debug logging, and optional ngrok tunneling for external access during development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/busjam/api"
	"github.com/wricardo/mcp-training/busjam/game/config"
	"github.com/wricardo/mcp-training/busjam/game/engine"
	"github.com/wricardo/mcp-training/busjam/game/service"
	"github.com/wricardo/mcp-training/busjam/game/session"
	"github.com/wricardo/mcp-training/busjam/transport/mcp"
	"github.com/wricardo/mcp-training/busjam/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Bus Jam Puzzle Server"
)

// Session store kinds
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// options is the resolved process configuration
type options struct {
	Host        string
	Port        int
	ConfigDir   string
	SessionsDir string
	Store       string
	SQLitePath  string
	LocaleDir   string
	Lang        string
	Debug       bool

	Ngrok       bool
	NgrokAuth   string
	NgrokDomain string

	SolverBudget  int
	SweepInterval time.Duration
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// newApp builds the command tree. Flags are declared on the root and are
// visible from every subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "busjam",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config-dir", Value: "levels", Usage: "Directory containing level files", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory for file session storage", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.StringFlag{Name: "store", Value: StoreFile, Usage: "Session store: file or sqlite", Sources: cli.EnvVars("SESSION_STORE")},
			&cli.StringFlag{Name: "sqlite-path", Value: filepath.Join("data", "busjam.db"), Usage: "SQLite database path", Sources: cli.EnvVars("SQLITE_PATH")},
			&cli.StringFlag{Name: "locale-dir", Value: "locales", Usage: "Directory with message translations", Sources: cli.EnvVars("LOCALE_DIR")},
			&cli.StringFlag{Name: "lang", Value: "en", Usage: "Language of player messages", Sources: cli.EnvVars("LANG_CODE")},
			&cli.IntFlag{Name: "solver-budget", Value: 200000, Usage: "States the hint solver may explore"},
			&cli.DurationFlag{Name: "sweep-interval", Value: time.Second, Usage: "How often level timers are checked"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Before: setup,
		Action: runServerCommand,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  runServerCommand,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioCommand,
			},
		},
	}
}

// main loads .env, then runs the selected command.
func main() {
	// Loaded before flag parsing so .env values feed flag sources
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		Host:          cmd.String("host"),
		Port:          int(cmd.Int("port")),
		ConfigDir:     cmd.String("config-dir"),
		SessionsDir:   cmd.String("sessions-dir"),
		Store:         cmd.String("store"),
		SQLitePath:    cmd.String("sqlite-path"),
		LocaleDir:     cmd.String("locale-dir"),
		Lang:          cmd.String("lang"),
		Debug:         cmd.Bool("debug"),
		Ngrok:         cmd.Bool("ngrok"),
		NgrokAuth:     cmd.String("ngrok-auth"),
		NgrokDomain:   cmd.String("ngrok-domain"),
		SolverBudget:  int(cmd.Int("solver-budget")),
		SweepInterval: cmd.Duration("sweep-interval"),
	}
}

// setup configures logging and message translations before any command runs.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	if dir := cmd.String("locale-dir"); dir != "" {
		if _, err := os.Stat(dir); err == nil {
			engine.ConfigureLocale(dir, cmd.String("lang"))
		}
	}
	return ctx, nil
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	log.Printf("Starting %s v%s (mode: server)", AppName, Version)

	svc, err := initializeServices(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.Close()

	return runHTTPServer(ctx, opts, svc)
}

func runStdioCommand(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	log.Printf("Starting %s v%s (mode: stdio-mcp)", AppName, Version)

	svc, err := initializeServices(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.Close()

	return runStdioMCPWithInternalServer(ctx, opts, svc)
}

// services holds everything the HTTP layer and the background routines share
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
	sqlite      *session.SQLitePersistence
}

// Close releases the session store
func (s *services) Close() error {
	if s.sqlite != nil {
		return s.sqlite.Close()
	}
	return nil
}

// initializeServices wires the level manager, the session store and the game service.
func initializeServices(opts options) (*services, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	svc := &services{}
	var serviceOpts []service.Option
	if opts.SolverBudget > 0 {
		serviceOpts = append(serviceOpts, service.WithSolverBudget(opts.SolverBudget))
	}

	switch opts.Store {
	case StoreSQLite:
		sqlite, err := session.NewSQLitePersistence(opts.SQLitePath, configManager)
		if err != nil {
			return nil, fmt.Errorf("failed to open session database: %w", err)
		}
		svc.sqlite = sqlite
		svc.persistence = sqlite
		serviceOpts = append(serviceOpts, service.WithEventLog(sqlite))
	case StoreFile, "":
		persistence, err := session.NewFilePersistence(opts.SessionsDir, configManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		svc.persistence = persistence
	default:
		return nil, fmt.Errorf("unknown session store %q (use %s or %s)", opts.Store, StoreFile, StoreSQLite)
	}

	svc.sessions = session.NewManagerWithPersistence(svc.persistence)
	if err := svc.sessions.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}

	svc.game = service.NewGameService(svc.sessions, configManager, serviceOpts...)
	return svc, nil
}

// startBackground launches the maintenance routines; they stop with ctx.
func startBackground(ctx context.Context, opts options, svc *services, hub *websocket.Hub) {
	go hub.Run(ctx)
	go expirySweeper(ctx, svc.game, hub, opts.SweepInterval)
	go sessionCleanupRoutine(ctx, svc.sessions)
	if opts.Store != StoreSQLite {
		go filesystemSyncRoutine(ctx, svc.sessions, svc.persistence)
	}
}

// newMainRouter combines the REST API with the /mcp JSON-RPC endpoint.
func newMainRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runHTTPServer serves the REST API, WebSocket hub, and /mcp endpoint until
// an interrupt. If ngrok is enabled it also provisions a public tunnel.
func runHTTPServer(parent context.Context, opts options, svc *services) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	hub := websocket.NewHub()
	startBackground(ctx, opts, svc, hub)

	addr := opts.addr()
	apiServer := api.NewServer(svc.game, hub)
	mainRouter := newMainRouter(apiServer, mcp.NewClient(fmt.Sprintf("http://%s", addr)))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if opts.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, opts, mainRouter)
		}()
	}

	var err error
	select {
	case sig := <-stop:
		log.Printf("Received signal: %v. Shutting down...", sig)
	case err = <-serveErr:
	case <-parent.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("HTTP server shutdown error: %v", shutdownErr)
	}

	wg.Wait()
	if saveErr := svc.sessions.SaveAllSessions(); saveErr != nil {
		log.Printf("Warning: Failed to save sessions on shutdown: %v", saveErr)
	}
	log.Println("Server stopped")
	return err
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx ends.
func runNgrokTunnel(ctx context.Context, opts options, handler http.Handler) {
	if opts.NgrokAuth == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
		log.Printf("Using custom ngrok domain: %s", opts.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokAuth))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// expirySweeper ends timed levels whose deadline has passed and pushes the
// loss to spectators.
func expirySweeper(ctx context.Context, gameService service.GameService, hub *websocket.Hub, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sweepExpired(ctx, gameService, hub, now)
		}
	}
}

// sweepExpired runs one expiry pass and returns the expired session ids.
func sweepExpired(ctx context.Context, gameService service.GameService, hub *websocket.Hub, now time.Time) []string {
	expired := gameService.ExpireOverdue(ctx, now)
	for _, id := range expired {
		log.Printf("[EXPIRE] session=%s timer expired", id)
		if hub == nil {
			continue
		}
		if state, err := gameService.GetGameState(ctx, id); err == nil {
			hub.BroadcastState(id, state)
		}
	}
	return expired
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(24 * time.Hour); removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// filesystemSyncRoutine drops sessions from memory when their files are deleted.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := pruneDeletedSessions(manager, persistence); pruned > 0 {
				log.Printf("Filesystem sync: pruned %d orphaned sessions from memory", pruned)
			}
		}
	}
}

func pruneDeletedSessions(manager *session.Manager, persistence session.SessionPersistence) int {
	if persistence == nil {
		return 0
	}
	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.Printf("Pruned session %s from memory (file deleted)", sess.ID)
		}
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses an API
// already listening on the configured address, otherwise it starts an
// internal one on a random loopback port.
func runStdioMCPWithInternalServer(parent context.Context, opts options, svc *services) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	externalURL := fmt.Sprintf("http://%s", opts.addr())
	log.Printf("Checking for external API server at %s...", externalURL)

	baseURL := externalURL
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", externalURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		hub := websocket.NewHub()
		startBackground(ctx, opts, svc, hub)

		httpServer := &http.Server{Handler: api.NewServer(svc.game, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Printf("MCP stdio server ready (API at %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
