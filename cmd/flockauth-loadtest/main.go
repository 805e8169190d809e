// Command flockauth-loadtest seeds an in-memory user population and drives
// concurrent Login and Authenticate load against a locally built engine,
// reporting throughput and latency percentiles per phase.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	flockauth "github.com/flockhq/flockauth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const seedPassword = "load-test-password"

func main() {
	var (
		users       = flag.Int("users", 10000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (login + authenticate)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := buildEngine(client, *ops)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d accounts...\n", *users)
	startSeed := time.Now()
	emails, tokens, err := seedAccounts(ctx, engine, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loginStats := runLoginPhase(ctx, engine, emails, *ops, *concurrency)
	authStats := runAuthenticatePhase(ctx, engine, tokens, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("authenticate", authStats)

	snapshot := engine.MetricsSnapshot()
	fmt.Printf("metrics: login_success=%d authenticate_success=%d rate_limited=%d\n",
		snapshot.Counters[flockauth.MetricLoginSuccess],
		snapshot.Counters[flockauth.MetricAuthenticateSuccess],
		snapshot.Counters[flockauth.MetricLoginRateLimited],
	)
}

func buildEngine(client redis.UniversalClient, ops int) (*flockauth.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// Cheap Argon2 parameters and a generous login budget so the run
	// measures engine overhead, not deliberate slowdowns.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Security.MaxLoginAttempts = ops * 2
	cfg.Security.LoginCooldown = time.Hour

	return flockauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithStore(newLoadStore()).
		WithMetricsEnabled(true).
		Build()
}

func loadConfig() (flockauth.Config, error) {
	if os.Getenv("FLOCKAUTH_ACCESS_SECRET") == "" {
		_ = os.Setenv("FLOCKAUTH_ACCESS_SECRET", "loadtest-access-secret-0123456789ab")
		_ = os.Setenv("FLOCKAUTH_REFRESH_SECRET", "loadtest-refresh-secret-0123456789a")
	}
	return flockauth.ConfigFromEnv()
}

func seedAccounts(ctx context.Context, engine *flockauth.Engine, n int) ([]string, []string, error) {
	emails := make([]string, n)
	tokens := make([]string, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("user-%d@load.test", i)
		res, err := engine.Register(ctx, flockauth.RegisterRequest{
			Email:    email,
			Name:     fmt.Sprintf("User %d", i),
			Password: seedPassword,
		})
		if err != nil {
			return nil, nil, err
		}
		emails[i] = email
		tokens[i] = res.AccessToken
	}
	return emails, tokens, nil
}

func runLoginPhase(ctx context.Context, engine *flockauth.Engine, emails []string, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, func(r *rand.Rand) error {
		email := emails[r.Intn(len(emails))]
		_, err := engine.Login(ctx, email, seedPassword)
		return err
	})
}

func runAuthenticatePhase(ctx context.Context, engine *flockauth.Engine, tokens []string, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, func(r *rand.Rand) error {
		token := tokens[r.Intn(len(tokens))]
		_, err := engine.Authenticate(ctx, token)
		return err
	})
}

func runPhase(ops, concurrency int, op func(*rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// loadStore is an RWMutex-guarded in-memory UserStore for load runs.
type loadStore struct {
	mu      sync.RWMutex
	users   map[string]flockauth.UserRecord
	byEmail map[string]string
	nextID  int64
}

func newLoadStore() *loadStore {
	return &loadStore{
		users:   make(map[string]flockauth.UserRecord),
		byEmail: make(map[string]string),
	}
}

func (s *loadStore) GetByEmail(_ context.Context, email string) (flockauth.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return flockauth.UserRecord{}, flockauth.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *loadStore) GetByID(_ context.Context, userID string) (flockauth.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return flockauth.UserRecord{}, flockauth.ErrUserNotFound
	}
	return u, nil
}

func (s *loadStore) Create(_ context.Context, input flockauth.CreateUserInput) (flockauth.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[input.Email]; exists {
		return flockauth.UserRecord{}, flockauth.ErrEmailTaken
	}
	s.nextID++
	u := flockauth.UserRecord{
		ID:           fmt.Sprintf("u%d", s.nextID),
		Email:        input.Email,
		Name:         input.Name,
		Phone:        input.Phone,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		CreatedAt:    time.Now(),
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u, nil
}

func (s *loadStore) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return flockauth.ErrUserNotFound
	}
	u.PasswordHash = newHash
	s.users[userID] = u
	return nil
}

func (s *loadStore) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return flockauth.ErrUserNotFound
	}
	u.LastLoginAt = at
	s.users[userID] = u
	return nil
}

func (s *loadStore) SetTwoFactorSecret(_ context.Context, userID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return flockauth.ErrUserNotFound
	}
	u.TwoFactorSecret = secret
	u.TwoFactorEnabled = false
	s.users[userID] = u
	return nil
}

func (s *loadStore) EnableTwoFactor(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return flockauth.ErrUserNotFound
	}
	u.TwoFactorEnabled = true
	s.users[userID] = u
	return nil
}

func (s *loadStore) DisableTwoFactor(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return flockauth.ErrUserNotFound
	}
	u.TwoFactorEnabled = false
	u.TwoFactorSecret = ""
	s.users[userID] = u
	return nil
}

func (s *loadStore) GetByResetFingerprint(_ context.Context, fingerprint string) (flockauth.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ResetFingerprint != "" && u.ResetFingerprint == fingerprint {
			return u, nil
		}
	}
	return flockauth.UserRecord{}, flockauth.ErrUserNotFound
}

func (s *loadStore) SetResetFingerprint(_ context.Context, userID, fingerprint string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return flockauth.ErrUserNotFound
	}
	u.ResetFingerprint = fingerprint
	u.ResetExpiresAt = expiresAt
	s.users[userID] = u
	return nil
}

func (s *loadStore) ClearResetFingerprint(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return flockauth.ErrUserNotFound
	}
	u.ResetFingerprint = ""
	u.ResetExpiresAt = time.Time{}
	s.users[userID] = u
	return nil
}
