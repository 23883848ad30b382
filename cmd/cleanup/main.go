// Command cleanup runs one stale-route cleanup pass and exits. It takes no
// arguments; DATABASE_DRIVER and DATABASE_DSN select the database. A failed
// deletion exits with status 1 so the scheduler running it can alert.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"poholowani/internal/cleanup"
	"poholowani/internal/config"
	"poholowani/internal/db"
	"poholowani/internal/repository/gormrepo"
)

func run(ctx context.Context, driver, dsn string) error {
	conn, err := db.Connect(driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	repos := gormrepo.New(conn)
	job := &cleanup.Job{Routes: repos.Routes, Sessions: repos.Sessions}
	report, err := job.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("[CLEANUP] Done: %d routes, %d sessions (cutoff %s)", report.Routes, report.Sessions, report.Cutoff)
	return nil
}

func main() {
	config.LoadDotEnv()
	defaults := config.NewDefaultConfig().Database

	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = defaults.Driver
	}
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = defaults.DSN
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := run(ctx, driver, dsn); err != nil {
		log.Printf("[CLEANUP] Failed: %v", err)
		os.Exit(1)
	}
}
