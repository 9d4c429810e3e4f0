package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/treatment-booking/internal/api"
	"github.com/hackgods/treatment-booking/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	Patients     int
	Days         int
	BookingRatio float64
	ConfirmRatio float64
	ReadRatio    float64
}

type patient struct {
	email string
	name  string
	token string
}

// DataPool holds the fixtures workers draw from. Patients, treatments and
// dates are fixed after setup; bookings grow as workers create them.
type DataPool struct {
	Patients   []patient
	Treatments []string
	Slots      map[string][]string
	Dates      []string

	mu       sync.RWMutex
	bookings []bookingRef
}

type bookingRef struct {
	id    uuid.UUID
	token string
}

func (dp *DataPool) AddBooking(ref bookingRef) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.bookings = append(dp.bookings, ref)
}

func (dp *DataPool) RandomBooking(rng *rand.Rand) (bookingRef, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.bookings) == 0 {
		return bookingRef{}, false
	}
	return dp.bookings[rng.Intn(len(dp.bookings))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Duplicate int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success, duplicate bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case duplicate:
		atomic.AddInt64(&om.Duplicate, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	pick := func(pct int) time.Duration {
		idx := len(latencies) * pct / 100
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}
	return sum / time.Duration(len(latencies)), pick(50), pick(95), latencies[len(latencies)-1]
}

type Metrics struct {
	Booking       OperationMetrics
	Confirm       OperationMetrics
	Available     OperationMetrics
	ListByPatient OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	log     logrus.FieldLogger
}

func main() {
	_ = godotenv.Load()
	log := logging.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	log.WithFields(logrus.Fields{
		"duration": cfg.Duration,
		"workers":  cfg.Workers,
		"patients": cfg.Patients,
	}).Info("simulator starting")

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	pool, err := sim.setup(ctx)
	cancel()
	if err != nil {
		log.Fatalf("setup: %v", err)
	}
	sim.pool = pool
	log.Infof("loaded: %d patients, %d treatments, %d dates", len(pool.Patients), len(pool.Treatments), len(pool.Dates))

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		Patients:     getInt("SIM_PATIENTS", 50),
		Days:         getInt("SIM_DAYS", 7),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		ConfirmRatio: getFloat("SIM_CONFIRM_RATIO", 0.2),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
	}

	total := cfg.BookingRatio + cfg.ConfirmRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ConfirmRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Patients <= 0 || cfg.Days <= 0 {
		return fmt.Errorf("SIM_PATIENTS and SIM_DAYS must be > 0")
	}
	return nil
}

// setup registers fake patients through the public user endpoint and reads
// the catalog from the availability endpoint.
func (s *Simulator) setup(ctx context.Context) (*DataPool, error) {
	faker := gofakeit.New(0)
	pool := &DataPool{Slots: make(map[string][]string)}

	for i := 0; i < s.config.Patients; i++ {
		p := patient{email: faker.Email(), name: faker.Name()}

		var resp api.UpsertUserResponse
		status, err := s.call(ctx, http.MethodPut, "/user/"+url.PathEscape(p.email), "", map[string]any{"name": p.name}, &resp)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", p.email, err)
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("register %s: status %d", p.email, status)
		}
		p.token = resp.Token
		pool.Patients = append(pool.Patients, p)
	}

	today := time.Now()
	for d := 1; d <= s.config.Days; d++ {
		pool.Dates = append(pool.Dates, today.AddDate(0, 0, d).Format("2006-01-02"))
	}

	var options []api.AvailabilityResponse
	if _, err := s.call(ctx, http.MethodGet, "/available?date="+pool.Dates[0], "", nil, &options); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	for _, o := range options {
		if len(o.Slots) == 0 {
			continue
		}
		pool.Treatments = append(pool.Treatments, o.Name)
		pool.Slots[o.Name] = o.Slots
	}
	if len(pool.Treatments) == 0 {
		return nil, fmt.Errorf("no treatments with slots, run seed first")
	}
	return pool, nil
}

func (s *Simulator) call(ctx context.Context, method, path, token string, in, out any) (int, error) {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.ConfirmRatio:
			s.doConfirm(ctx, rng)
		case rng.Intn(2) == 0:
			s.doAvailable(ctx, rng)
		default:
			s.doListByPatient(ctx, rng)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	p := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	treatment := s.pool.Treatments[rng.Intn(len(s.pool.Treatments))]
	slots := s.pool.Slots[treatment]

	start := time.Now()
	var resp api.CreateBookingResponse
	status, err := s.call(ctx, http.MethodPost, "/booking", "", api.CreateBookingRequest{
		Treatment:   treatment,
		Date:        s.pool.Dates[rng.Intn(len(s.pool.Dates))],
		Slot:        slots[rng.Intn(len(slots))],
		Patient:     p.email,
		PatientName: p.name,
	}, &resp)
	latency := time.Since(start)

	success := err == nil && status == http.StatusCreated
	duplicate := err == nil && status == http.StatusOK && !resp.Success
	if success {
		s.pool.AddBooking(bookingRef{id: resp.Booking.ID, token: p.token})
	}
	s.metrics.Booking.Record(latency, success, duplicate)
}

func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	ref, ok := s.pool.RandomBooking(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, err := s.call(ctx, http.MethodPatch, "/booking/"+ref.id.String(), ref.token,
		api.ConfirmPaymentRequest{TransactionID: "sim_" + uuid.NewString()}, nil)
	s.metrics.Confirm.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doAvailable(ctx context.Context, rng *rand.Rand) {
	start := time.Now()
	status, err := s.call(ctx, http.MethodGet, "/available?date="+s.pool.Dates[rng.Intn(len(s.pool.Dates))], "", nil, nil)
	s.metrics.Available.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doListByPatient(ctx context.Context, rng *rand.Rand) {
	p := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	start := time.Now()
	status, err := s.call(ctx, http.MethodGet, "/booking?patient="+url.QueryEscape(p.email), p.token, nil, nil)
	s.metrics.ListByPatient.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n\n", s.config.Workers)

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Confirm payment", &s.metrics.Confirm)
	printOperationReport("Availability", &s.metrics.Available)
	printOperationReport("List by patient", &s.metrics.ListByPatient)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }
	success := atomic.LoadInt64(&om.Success)
	duplicate := atomic.LoadInt64(&om.Duplicate)
	failed := atomic.LoadInt64(&om.Error)
	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, pct(success))
	if duplicate > 0 {
		fmt.Printf("  Duplicates: %d (%.1f%%)\n", duplicate, pct(duplicate))
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, pct(failed))
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
