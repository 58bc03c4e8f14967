package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/handoff-wait/internal/config"
	"github.com/iliyamo/handoff-wait/internal/database"
	"github.com/iliyamo/handoff-wait/internal/handler"
	"github.com/iliyamo/handoff-wait/internal/model"
	"github.com/iliyamo/handoff-wait/internal/queue"
	"github.com/iliyamo/handoff-wait/internal/repository"
	"github.com/iliyamo/handoff-wait/internal/router"
	"github.com/iliyamo/handoff-wait/internal/service"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database: %v", err)
	}

	rdb := config.NewRedisClient(ctx)
	if rdb != nil {
		defer rdb.Close()
	}

	handoffs := repository.NewHandoffRepo(db)
	settingsRepo := repository.NewSettingsRepo(db)

	refresher := service.NewRefresher(settingsRepo, handoffs, cfg.Display)

	// Local writes refresh this instance's display straight away; the
	// broker carries them to every other instance.
	notifiers := service.Notifiers{refresher.NotifyChange()}
	var publisher *queue.Publisher
	if cfg.Changes.Enabled {
		publisher = queue.NewPublisher(cfg.Changes, "server-"+uuid.NewString()[:8])
		notifiers = append(notifiers, publisher)
	}

	ledger := service.NewLedger(handoffs, notifiers)
	status := service.NewStatusResolver(service.AtomicStatus{Store: handoffs}, service.TwoStepStatus{Store: handoffs})
	settings := service.NewSettingsService(settingsRepo, notifiers)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		refresher.Run(ctx)
	}()
	if publisher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			publisher.Run(ctx)
		}()
	}
	if cfg.Changes.Enabled {
		consumer := queue.NewConsumer(cfg.Changes, func(model.Change) { refresher.Notify() })
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("changes-consumer: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("http: %s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	router.Register(e, router.Handlers{
		Display:  &handler.DisplayHandler{Display: refresher},
		Settings: &handler.SettingsHandler{Settings: settings},
		Scans:    &handler.ScanHandler{Ledger: ledger},
		Tickets:  &handler.TicketHandler{Status: status},
		DB:       db,
	}, config.LoadCacheConfig(), config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	wg.Wait()
	log.Println("stopped cleanly")
}
