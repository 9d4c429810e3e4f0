package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/hackgods/treatment-booking/internal/db"
	"github.com/hackgods/treatment-booking/internal/logging"
)

func main() {
	_ = godotenv.Load()

	dsn := flag.String("dsn", os.Getenv("POSTGRES_DSN"), "postgres DSN")
	down := flag.Bool("down", false, "revert the latest migration instead of applying")
	flag.Parse()

	log := logging.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

	if *dsn == "" {
		log.Fatal("no DSN: pass -dsn or set POSTGRES_DSN")
	}

	if *down {
		if err := db.Rollback(*dsn); err != nil {
			log.Fatalf("rollback error: %v", err)
		}
		log.Info("latest migration reverted")
		return
	}

	if err := db.Migrate(*dsn); err != nil {
		log.Fatalf("migration error: %v", err)
	}
	log.Info("migrations applied")
}
