// jobmate-interview-service — Phase 5
//
// Interview scheduling engine for the hiring pipeline.
// Exposes a REST API used by the Gateway to implement:
//   - autoSchedule(applicationId, stageId)   — allocate the next free slot
//   - manual scheduling / reschedule / cancel / no-show
//   - interview status updates and interviewer feedback
//   - feedback progression query for stage advancement
//
// Double-booking is prevented inside the scheduling transaction; cancel and
// no-show can cascade into a fresh auto-schedule per stage policy.
// Publishes EVENT_INTERVIEW_* to Redis for Gateway SSE/email forward.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobmate/interview-service/internal/config"
	"jobmate/interview-service/internal/db"
	"jobmate/interview-service/internal/gateway"
	"jobmate/interview-service/internal/interview"
	"jobmate/interview-service/internal/reminder"
	"jobmate/interview-service/internal/store"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[interview-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[interview-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[interview-service] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[interview-service] PostgreSQL connected ✓")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[interview-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[interview-service] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[interview-service] Redis connected ✓")

	// ── Engine wiring ────────────────────────────────────────────────────────
	st := store.New(pool)
	svc := interview.NewService(interview.Deps{
		Store:    st,
		Configs:  store.NewConfigProvider(pool),
		Dir:      store.NewDirectory(pool),
		Calendar: gateway.NewCalendarClient(cfg.CalendarServiceURL, cfg.CalendarAPIKey),
		Notify:   gateway.NewRedisNotifier(rdb),
	})
	if cfg.CalendarServiceURL == "" {
		log.Println("[interview-service] CALENDAR_SERVICE_URL not set — scheduling without meeting links")
	}

	// ── Reminder cron ────────────────────────────────────────────────────────
	rem := reminder.New(pool, rdb, cfg.ReminderIntervalMinutes)
	if err := rem.Start(ctx); err != nil {
		log.Fatalf("[interview-service] Reminder scheduler: %v", err)
	}
	defer rem.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	h := interview.NewHandler(svc)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[interview-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[interview-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[interview-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[interview-service] Shutdown error: %v", err)
	}
	log.Println("[interview-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "interview-service",
		"version": version,
	})
}
