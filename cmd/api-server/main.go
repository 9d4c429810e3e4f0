package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/treatment-booking/internal/access"
	"github.com/hackgods/treatment-booking/internal/api"
	"github.com/hackgods/treatment-booking/internal/auth"
	"github.com/hackgods/treatment-booking/internal/availability"
	"github.com/hackgods/treatment-booking/internal/booking"
	"github.com/hackgods/treatment-booking/internal/catalog"
	"github.com/hackgods/treatment-booking/internal/config"
	"github.com/hackgods/treatment-booking/internal/db"
	"github.com/hackgods/treatment-booking/internal/logging"
	"github.com/hackgods/treatment-booking/internal/memstore"
	"github.com/hackgods/treatment-booking/internal/metrics"
	"github.com/hackgods/treatment-booking/internal/notify"
	"github.com/hackgods/treatment-booking/internal/payment"
	redisclient "github.com/hackgods/treatment-booking/internal/redis"
	"github.com/hackgods/treatment-booking/internal/user"
)

const version = "1.0.0"

type stores struct {
	catalog  catalog.Repository
	bookings booking.Repository
	users    user.Repository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config load error: %v", err)
	}

	log := logging.New(cfg.Env, cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"env":          cfg.Env,
		"http_port":    cfg.HTTPPort,
		"store_driver": cfg.StoreDriver,
	}).Info("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	var deps []api.Dependency
	var repos stores

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		if cfg.MigrateOnStart {
			if err := db.Migrate(cfg.PostgresDSN); err != nil {
				log.Fatalf("migration error: %v", err)
			}
			log.Info("migrations applied")
		}

		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{
			MaxConns:        cfg.PgMaxConns,
			MinConns:        cfg.PgMinConns,
			MaxConnLifetime: cfg.PgConnLifetime,
		})
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()
		log.Info("connected to Postgres")

		repos = stores{
			catalog:  catalog.NewPgRepository(pgPool),
			bookings: booking.NewPgRepository(pgPool),
			users:    user.NewPgRepository(pgPool),
		}
		deps = append(deps, api.Dependency{Name: "postgres", Ping: pgPool.Ping, Critical: true})
	default:
		store := memstore.New()
		repos = stores{catalog: store, bookings: store, users: store}
		log.Warn("using in-memory store, data is lost on restart")
	}

	locker := redisclient.NewLocalLocker()
	if cfg.RedisAddr != "" {
		rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis connection error: %v", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Errorf("error closing redis: %v", err)
			}
		}()
		log.Info("connected to Redis")

		locker = redisclient.NewRedisKeyLocker(rdb, cfg.LockTTL)
		deps = append(deps, api.Dependency{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	} else {
		log.Warn("REDIS_ADDR not set, booking locks are process local")
	}

	var notifier booking.Notifier = notify.NewLogNotifier(log)
	var async *notify.AsyncNotifier
	if cfg.AMQPURL != "" {
		pub, err := notify.NewPublisher(cfg.AMQPURL, cfg.NotifyExchange)
		if err != nil {
			log.Fatalf("rabbitmq connection error: %v", err)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				log.Errorf("error closing rabbitmq: %v", err)
			}
		}()
		log.Info("connected to RabbitMQ")

		async = notify.NewAsyncNotifier(pub, cfg.NotifyTimeout, func(n booking.Notice, err error) {
			m.RecordNoticeFailure(string(n.Kind))
			log.WithFields(logrus.Fields{
				"kind":       n.Kind,
				"booking_id": n.Booking.ID,
			}).Errorf("publish notice: %v", err)
		})
		notifier = async
		deps = append(deps, api.Dependency{Name: "rabbitmq", Ping: pub.Ping})
	}

	var intents payment.IntentCreator = payment.Unconfigured{}
	if cfg.StripeSecretKey != "" {
		intents = payment.NewStripeIntents(cfg.StripeSecretKey, cfg.PaymentCurrency)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, payment intents are disabled")
	}

	signer := auth.NewSigner(cfg.JWTSecret, cfg.TokenTTL)
	catalogSvc := catalog.NewService(repos.catalog, log)
	bookingSvc := booking.NewService(repos.bookings, catalogSvc, locker, notifier, log)
	userSvc := user.NewService(repos.users, signer, log)

	limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	limiter.StartCleanup(time.Minute, rootCtx.Done())

	router := api.NewRouter(api.RouterConfig{
		Catalog:        catalogSvc,
		Availability:   availability.NewEngine(catalogSvc, bookingSvc),
		Bookings:       bookingSvc,
		Users:          userSvc,
		Payments:       intents,
		Gate:           access.NewGate(signer, userSvc),
		Metrics:        m,
		Health:         api.NewHealthHandler(cfg.Env, version, deps...),
		Limiter:        limiter,
		Logger:         log,
		CORSOrigin:     cfg.CORSOrigin,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http shutdown error: %v", err)
	}
	if async != nil {
		async.Wait()
	}
}
