// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the demo user (demo-user-001) already has sessions.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"presence-tracker/internal/config"
	"presence-tracker/internal/db"
	"presence-tracker/internal/db/migrate"
	trackingrepo "presence-tracker/internal/tracking/repository"
	trackingservice "presence-tracker/internal/tracking/service"

	"github.com/rs/zerolog"
)

const (
	demoUser1 = "demo-user-001"
	demoUser2 = "demo-user-002"
	demoUser3 = "demo-user-003"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var existing int
	if err := conn.GetContext(ctx, &existing, `SELECT COUNT(*) FROM sessions WHERE user_id = $1`, demoUser1); err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing > 0 {
		log.Println("seed: demo data already present, skipping")
		return
	}

	repo := trackingrepo.NewPostgresRepository(conn)
	svc := trackingservice.NewTrackingService(repo, nil, cfg.Location(), zerolog.Nop())

	logins := []struct {
		userID, deviceHint, ip string
	}{
		{demoUser1, "iPhone 15", "203.0.113.10"},
		{demoUser2, "Chrome on Windows", "203.0.113.11"},
		{demoUser3, "Android tablet", "203.0.113.12"},
	}
	for _, l := range logins {
		if _, err := svc.RecordLogin(ctx, l.userID, l.deviceHint, l.ip); err != nil {
			log.Fatalf("seed login %s: %v", l.userID, err)
		}
	}
	// One closed session so the snapshot and the rollup differ.
	if err := svc.RecordLogout(ctx, demoUser3); err != nil {
		log.Fatalf("seed logout %s: %v", demoUser3, err)
	}

	log.Println("seed: inserted demo sessions for", demoUser1, demoUser2, demoUser3)
}
