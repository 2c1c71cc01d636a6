package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"slideshow-server/config"
	"slideshow-server/deck"
	"slideshow-server/generator"
	"slideshow-server/handlers/api/slides"
	"slideshow-server/handlers/api/viewer"
	"slideshow-server/handlers/auth"
	"slideshow-server/handlers/websocket"
	authMiddleware "slideshow-server/middleware"
	"slideshow-server/stores"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

func setupRouter(d *deck.Deck, authenticator *auth.Authenticator) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Origin", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/session", authenticator.HandleSession())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.AuthJWT(authenticator))

		r.Route("/deck", func(r chi.Router) {
			r.Get("/", viewer.HandleGetDeck(d))
			r.Post("/next", viewer.HandleNext(d))
			r.Post("/previous", viewer.HandlePrevious(d))
			r.Put("/current", viewer.HandleSelect(d))
		})

		r.Route("/slides", func(r chi.Router) {
			r.Use(authMiddleware.RequireAdmin)
			r.Post("/", slides.HandleAddSlides(d))
			r.Post("/reorder", slides.HandleReorder(d))
			r.Route("/{index}", func(r chi.Router) {
				r.Patch("/", slides.HandleUpdateSlide(d))
				r.Delete("/", slides.HandleDeleteSlide(d))
				r.Post("/regenerate", slides.HandleRegenerate(d))
			})
		})
	})

	return r
}

// openStore falls back to the in-memory store when the configured one cannot be used.
func openStore(ctx context.Context, cfg config.AppConfig) stores.Store {
	store, err := stores.Open(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Warn("Falling back to in-memory storage, slides will not survive a restart")
		return stores.OpenMemory()
	}
	return store
}

func waitForShutdown(server *http.Server, ioo *socketio.Server, d *deck.Deck, store stores.Store, cancel context.CancelFunc) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	s := <-signalC
	logrus.WithField("signal", s.String()).Info("Shutting down...")

	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	ioo.Close(nil)

	// Let queued saves finish before the store goes away.
	d.Wait()
	cancel()
	if err := store.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close store")
	}
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())

	store := openStore(ctx, cfg)
	initial := deck.Bootstrap(ctx, store)

	gen, err := generator.New(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Invalid generator configuration: %v", err)
	}

	d := deck.New(ctx, store, gen, initial)
	authenticator := auth.New(cfg.JWTSecret, cfg.AdminPasscodes)

	r := setupRouter(d, authenticator)
	ioo := websocket.SetupSocketIO(d)
	r.Mount("/socket.io/", ioo.ServeHandler(nil))

	server := &http.Server{Addr: *listenAddress, Handler: r}
	logrus.WithFields(logrus.Fields{
		"addr":        *listenAddress,
		"slide_count": len(initial),
	}).Info("starting server")
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(server, ioo, d, store, cancel)
}
