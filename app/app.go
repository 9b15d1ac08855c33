package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fedkit/tesserae/federation"
	"github.com/fedkit/tesserae/store"
	"github.com/fedkit/tesserae/util"
	"github.com/fedkit/tesserae/web"
)

// retrySweepInterval is how often the outbound delivery queue is drained
// (spec.md §5 C8: "a periodic sweep retries pending deliveries").
const retrySweepInterval = 30 * time.Second

// retrySweepBatchSize bounds how many pending deliveries one sweep attempts.
const retrySweepBatchSize = 50

// App wires the store, federation subsystems, and HTTP server together and
// owns their startup/shutdown sequencing. Grounded on the donor's
// App/Initialize/Start/Shutdown lifecycle, with the SSH/TUI server removed
// (spec.md Non-goals: no client-facing UI) and the delivery worker
// generalized from one global goroutine to the per-signer-domain FIFO in
// federation.DeliveryWorker.
type App struct {
	config     *util.AppConfig
	db         *store.DB
	deliverer  *federation.Deliverer
	httpServer *http.Server
	done       chan os.Signal
	stopSweep  chan struct{}
}

// New creates a new App instance with the given configuration.
func New(conf *util.AppConfig) (*App, error) {
	return &App{
		config:    conf,
		done:      make(chan os.Signal, 1),
		stopSweep: make(chan struct{}),
	}, nil
}

// Initialize opens the store, provisions the instance actor, and builds the
// HTTP server (without starting it).
func (a *App) Initialize() error {
	db, err := store.Open(a.config.Conf.DatabasePath, a.config.Conf.InstanceDomain)
	if err != nil {
		return err
	}
	a.db = db

	log.Println("Ensuring instance actor exists...")
	if err := a.db.EnsureInstanceActor(); err != nil {
		return err
	}
	instance, err := a.db.GetInstanceActor()
	if err != nil {
		return err
	}

	keyCache := federation.NewKeyCache()
	fetcher := federation.NewFetcher(federation.DefaultHTTPTransport, instance, keyCache)
	dispatcher := federation.NewInboxDispatcher(a.db, fetcher)
	worker := federation.NewDeliveryWorker(dispatcher, 0)
	a.deliverer = federation.NewDeliverer(federation.DefaultHTTPTransport, instance, a.db, keyCache)

	deps := &web.Deps{
		Conf:       a.config,
		Store:      a.db,
		Dispatcher: dispatcher,
		Worker:     worker,
		Instance:   instance,
	}

	a.httpServer = &http.Server{
		Addr:    web.Addr(a.config),
		Handler: web.NewRouter(deps),
	}

	return nil
}

// Start runs the HTTP server and the outbound-delivery retry sweep, blocking
// until a shutdown signal arrives.
func (a *App) Start() error {
	signal.Notify(a.done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go a.runRetrySweep()

	log.Printf("Starting HTTP server on %s", a.httpServer.Addr)
	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-a.done
	log.Println("Shutdown signal received")

	return a.Shutdown()
}

func (a *App) runRetrySweep() {
	ticker := time.NewTicker(retrySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := a.deliverer.ProcessPendingDeliveries(retrySweepBatchSize); err != nil {
				log.Printf("delivery retry sweep: %v", err)
			}
		case <-a.stopSweep:
			return
		}
	}
}

// Shutdown gracefully stops the HTTP server and retry sweep with a 30 second
// timeout.
func (a *App) Shutdown() error {
	log.Println("Initiating graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	close(a.stopSweep)

	if err := a.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		return err
	}
	log.Println("HTTP server stopped gracefully")
	return nil
}
