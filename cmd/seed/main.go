package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/treatment-booking/internal/catalog"
	"github.com/hackgods/treatment-booking/internal/db"
	"github.com/hackgods/treatment-booking/internal/logging"
	"github.com/hackgods/treatment-booking/internal/user"
)

var treatments = []struct {
	name  string
	price float64
}{
	{"Teeth Orthodontics", 150},
	{"Cosmetic Dentistry", 200},
	{"Teeth Cleaning", 90},
	{"Cavity Protection", 120},
	{"Pediatric Dental", 110},
	{"Oral Surgery", 350},
}

func main() {
	_ = godotenv.Load()

	adminEmail := flag.String("admin", os.Getenv("ADMIN_EMAIL"), "email to promote to admin")
	patients := flag.Int("patients", 200, "number of fake patient profiles")
	flag.Parse()

	log := logging.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	log.Info("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, db.DefaultPoolOptions())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	faker := gofakeit.New(0)

	if err := seedTreatments(context.Background(), catalog.NewPgRepository(pool), log); err != nil {
		log.Fatalf("seed treatments: %v", err)
	}
	if *adminEmail != "" {
		if err := seedAdmin(context.Background(), user.NewPgRepository(pool), *adminEmail); err != nil {
			log.Fatalf("seed admin: %v", err)
		}
		log.WithField("email", *adminEmail).Info("admin seeded")
	}
	if err := seedPatients(context.Background(), pool, faker, *patients, log); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Info("seed complete")
}

// slotGrid returns half-hour slots from 08.00 AM, skipping the lunch hour.
func slotGrid() []string {
	var slots []string
	start := time.Date(0, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 18; i++ {
		from := start.Add(time.Duration(i) * 30 * time.Minute)
		if from.Hour() == 12 {
			continue
		}
		to := from.Add(30 * time.Minute)
		slots = append(slots, fmt.Sprintf("%s - %s", from.Format("03.04 PM"), to.Format("03.04 PM")))
	}
	return slots
}

func seedTreatments(ctx context.Context, repo catalog.Repository, log logrus.FieldLogger) error {
	slots := slotGrid()
	for _, t := range treatments {
		saved, created, err := repo.UpsertTreatment(ctx, catalog.Treatment{
			Name:  t.name,
			Price: t.price,
			Slots: slots,
		})
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"treatment": saved.Name, "created": created}).Info("treatment seeded")
	}
	return nil
}

func seedAdmin(ctx context.Context, repo user.Repository, email string) error {
	if _, err := repo.UpsertUser(ctx, email, map[string]any{"name": "Clinic Admin"}); err != nil {
		return err
	}
	return repo.SetRole(ctx, email, user.RoleAdmin)
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int, log logrus.FieldLogger) error {
	log.Infof("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			profile := map[string]any{
				"name":  faker.Name(),
				"phone": faker.Phone(),
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO users (email, profile, created_at, updated_at)
				VALUES ($1, $2, now(), now())
				ON CONFLICT (email) DO NOTHING
			`, faker.Email(), profile)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Infof("patients seeded: %d/%d", end, count)
	}

	return nil
}
