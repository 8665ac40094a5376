package server

import (
	"context"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/surrealdb/surrealdb.go"

	"github.com/anypay/events-server/internal/config"
	"github.com/anypay/events-server/internal/database"
	"github.com/anypay/events-server/internal/dispatcher"
	"github.com/anypay/events-server/internal/logging"
	"github.com/anypay/events-server/internal/pubsub"
	"github.com/anypay/events-server/internal/session"
	"github.com/anypay/events-server/internal/ws"
)

// Server holds the dependencies for the events server.
type Server struct {
	E   *echo.Echo
	DB  *surrealdb.DB
	Cfg *config.Config

	bus      *pubsub.WatermillBridge
	sessions *session.Manager
	bridge   *ws.Bridge
	watcher  *database.Watcher
}

// New creates a new Server instance with all collaborators wired.
func New() *Server {
	logging.New() // Initialize the structured logger
	cfg := config.New()

	db, err := database.NewDB(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	bus := pubsub.NewWatermillBridge()
	sessions := session.NewManager()
	d := dispatcher.New(sessions)
	store := database.NewSurrealInvoiceStore(db)
	bridge := ws.NewBridge(sessions, d, store)
	watcher := database.NewWatcher(db, bus)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	return &Server{
		E:        e,
		DB:       db,
		Cfg:      cfg,
		bus:      bus,
		sessions: sessions,
		bridge:   bridge,
		watcher:  watcher,
	}
}

// Sessions is a getter for the server's session table, useful for testing.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}
