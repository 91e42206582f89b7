// README: Relay smoke cases: env checks, alert lifecycle through the agent's API client, and a location perf run.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"secureher/internal/apiclient"
)

type staticToken string

func (t staticToken) Token() string { return string(t) }

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	runID     string
	user      *apiclient.Client
	responder *apiclient.Client
	alertID   string
	winner    string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	runID := uuid.NewString()[:8]
	api := cfg.BaseURL + "/api"
	return &Runner{
		cfg:       cfg,
		httpc:     &http.Client{Timeout: 10 * time.Second},
		runID:     runID,
		user:      apiclient.New(api, 10*time.Second, staticToken(userID(runID))),
		responder: apiclient.New(api, 10*time.Second, staticToken(responderID(runID, 0)+":responder")),
	}
}

func userID(runID string) string { return "bench_user_" + runID }

func responderID(runID string, i int) string { return fmt.Sprintf("bench_responder_%s_%d", runID, i) }

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		start := time.Now()
		res := tc.Run(ctx, r)
		if res.Latency == 0 {
			res.Latency = time.Since(start).Round(time.Millisecond)
		}
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s (%s)", res.Status, tc.Name, res.Latency)
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func pass(note string) Result { return Result{Status: "PASS", Note: note} }

func fail(err error) Result { return Result{Status: "FAIL", Note: err.Error()} }

func skip(note string) Result { return Result{Status: "SKIP", Note: note} }

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return skip("db not configured")
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return fail(err)
				}
				return pass("")
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return skip("redis not configured")
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return fail(err)
				}
				return pass("")
			},
		},
		{
			Name: "HTTP: health",
			Run: func(ctx context.Context, r *Runner) Result {
				status, err := r.raw(ctx, http.MethodGet, "/health", "", nil)
				if err != nil {
					return fail(err)
				}
				if status != http.StatusOK {
					return fail(fmt.Errorf("status %d", status))
				}
				return pass("")
			},
		},
		{
			Name: "Location: user push",
			Run: func(ctx context.Context, r *Runner) Result {
				if err := r.user.UpdateLocation(ctx, 23.80, 90.40); err != nil {
					return fail(err)
				}
				return pass("")
			},
		},
		{
			Name: "Redis: latest entry has ttl",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return skip("redis not configured")
				}
				ttl, err := r.redis.TTL(ctx, "location:latest:"+userID(r.runID)).Result()
				if err != nil {
					return fail(err)
				}
				if ttl <= 0 {
					return fail(fmt.Errorf("ttl=%s", ttl))
				}
				return pass("ttl=" + ttl.String())
			},
		},
		{
			Name: "Alert: create",
			Run: func(ctx context.Context, r *Runner) Result {
				a, err := r.user.CreateAlert(ctx, 23.81, 90.41, "bench")
				if err != nil {
					return fail(err)
				}
				r.alertID = a.AlertID
				return pass("id=" + a.AlertID)
			},
		},
		{
			Name: "Alert: participant location before accept is null",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.alertID == "" {
					return skip("no alert")
				}
				loc, err := r.user.GetAlertParticipantLocation(ctx, r.alertID)
				if err != nil {
					return fail(err)
				}
				if loc.Shared() {
					return fail(fmt.Errorf("expected nulls, got %v,%v", *loc.Latitude, *loc.Longitude))
				}
				return pass("")
			},
		},
		{
			Name: "Alert: concurrent accept has one winner",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.alertID == "" {
					return skip("no alert")
				}
				return concurrentAccept(ctx, r)
			},
		},
		{
			Name: "Alert: participant location after responder push",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.winner == "" {
					return skip("no accepted responder")
				}
				status, err := r.raw(ctx, http.MethodPut, "/api/location", r.winner+":responder",
					map[string]float64{"latitude": 23.805, "longitude": 90.405})
				if err != nil {
					return fail(err)
				}
				if status != http.StatusOK {
					return fail(fmt.Errorf("responder push status %d", status))
				}
				loc, err := r.user.GetAlertParticipantLocation(ctx, r.alertID)
				if err != nil {
					return fail(err)
				}
				if !loc.Shared() {
					return fail(fmt.Errorf("participant still not shared"))
				}
				return pass(fmt.Sprintf("%.3f,%.3f", *loc.Latitude, *loc.Longitude))
			},
		},
		{
			Name: "DB: location snapshots recorded",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return skip("db not configured")
				}
				var n int
				err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM location_snapshots WHERE user_id = $1`, userID(r.runID)).Scan(&n)
				if err != nil {
					return fail(err)
				}
				if n == 0 {
					return fail(fmt.Errorf("no snapshots for %s", userID(r.runID)))
				}
				return pass(fmt.Sprintf("rows=%d", n))
			},
		},
		{
			Name: "Alert: resolve",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.alertID == "" {
					return skip("no alert")
				}
				status, err := r.raw(ctx, http.MethodPost, "/api/alert/"+r.alertID+"/resolve", userID(r.runID), nil)
				if err != nil {
					return fail(err)
				}
				if status != http.StatusOK {
					return fail(fmt.Errorf("status %d", status))
				}
				return pass("")
			},
		},
		{
			Name: "Perf: location update throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r)
			},
		},
	}
}

// raw sends a JSON request with a dev bearer token and discards the body.
func (r *Runner) raw(ctx context.Context, method, path, token string, payload any) (int, error) {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode, nil
}

func concurrentAccept(ctx context.Context, r *Runner) Result {
	var (
		mu     sync.Mutex
		succ   int
		errs   int
		winner string
		wg     sync.WaitGroup
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := responderID(r.runID, i)
			status, err := r.raw(ctx, http.MethodPost, "/api/alert/"+r.alertID+"/accept", id+":responder", nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				errs++
			case status == http.StatusOK:
				succ++
				winner = id
			}
		}(i)
	}
	wg.Wait()

	r.winner = winner
	if succ == 1 {
		return pass(fmt.Sprintf("winner=%s errors=%d", winner, errs))
	}
	return Result{Status: "FAIL", Note: fmt.Sprintf("success=%d errors=%d", succ, errs)}
}

func perfLoad(ctx context.Context, r *Runner) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("bench_perf_%s_%d", r.runID, i)
			payload := map[string]float64{"latitude": 23.8 + float64(i)*0.0001, "longitude": 90.4}
			for time.Now().Before(end) && ctx.Err() == nil {
				status, err := r.raw(ctx, http.MethodPut, "/api/location", token, payload)
				mu.Lock()
				if err != nil || status != http.StatusOK {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: "FAIL", Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Latency: r.cfg.Duration, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}
