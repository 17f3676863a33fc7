package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type sport struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Capacity     int    `json:"capacity"`
	CurrentCount int    `json:"current_count"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type tally struct {
	mu        sync.Mutex
	byOutcome map[string]int
	latencies []time.Duration
}

func (t *tally) add(outcome string, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byOutcome[outcome]++
	t.latencies = append(t.latencies, latency)
}

func main() {
	var (
		base        string
		sportID     string
		attempts    int
		concurrency int
		year        string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL including prefix")
	flag.StringVar(&sportID, "sport", "", "Sport ID to register against")
	flag.IntVar(&attempts, "attempts", 50, "Number of registrations to submit")
	flag.IntVar(&concurrency, "concurrency", 10, "Requests in flight at once")
	flag.StringVar(&year, "year", "8", "Year level submitted with each registration")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	if sportID == "" {
		log.Fatal("-sport is required")
	}

	client := &http.Client{Timeout: timeout}
	ctx := context.Background()

	before, err := fetchSport(ctx, client, base, sportID)
	if err != nil {
		log.Fatalf("failed to load sport: %v", err)
	}

	results := &tally{byOutcome: map[string]int{}}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			outcome, latency, err := enroll(gctx, client, base, sportID, year, i)
			if err != nil {
				outcome = "TRANSPORT_ERROR"
			}
			results.add(outcome, latency)
			return nil
		})
	}
	_ = g.Wait()

	after, err := fetchSport(ctx, client, base, sportID)
	if err != nil {
		log.Fatalf("failed to reload sport: %v", err)
	}

	printReport(before, after, results)
	if after.CurrentCount > after.Capacity {
		fmt.Printf("Capacity exceeded: %d registered, capacity %d\n", after.CurrentCount, after.Capacity)
		os.Exit(1)
	}
	if admitted := results.byOutcome["ADMITTED"]; before.CurrentCount+admitted != after.CurrentCount {
		fmt.Printf("Count drift: %d before + %d admitted != %d after\n", before.CurrentCount, admitted, after.CurrentCount)
		os.Exit(1)
	}
}

func fetchSport(ctx context.Context, client *http.Client, base, id string) (*sport, error) {
	resp, _, err := do(ctx, client, http.MethodGet, base+"/sports/"+id, nil)
	if err != nil {
		return nil, err
	}
	env, err := decode(resp)
	if err != nil {
		return nil, err
	}
	if env.Error != nil {
		return nil, fmt.Errorf("%s: %s", env.Error.Code, env.Error.Message)
	}
	var s sport
	if err := json.Unmarshal(env.Data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func enroll(ctx context.Context, client *http.Client, base, sportID, year string, n int) (string, time.Duration, error) {
	payload := map[string]string{
		"name":     fmt.Sprintf("Probe Student%d", n),
		"email":    fmt.Sprintf("probe-%s@example.test", uuid.NewString()[:8]),
		"phone":    "0400000000",
		"year":     year,
		"sport_id": sportID,
	}
	resp, latency, err := do(ctx, client, http.MethodPost, base+"/registrations", payload)
	if err != nil {
		return "", latency, err
	}
	env, err := decode(resp)
	if err != nil {
		return "", latency, err
	}
	if env.Error != nil {
		return env.Error.Code, latency, nil
	}
	var result struct {
		Outcome string `json:"outcome"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return "", latency, err
	}
	return result.Outcome, latency, nil
}

func do(ctx context.Context, client *http.Client, method, url string, body interface{}) (*http.Response, time.Duration, error) {
	if client == nil {
		return nil, 0, errors.New("nil client")
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	return resp, time.Since(start), nil
}

func decode(resp *http.Response) (*envelope, error) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %d response: %w", resp.StatusCode, err)
	}
	return &env, nil
}

func printReport(before, after *sport, results *tally) {
	fmt.Println("Admission Probe Report")
	fmt.Println("======================")
	fmt.Printf("Sport: %s (%s)\n", before.Name, before.ID)
	fmt.Printf("  Before: %d/%d\n", before.CurrentCount, before.Capacity)
	fmt.Printf("  After:  %d/%d\n", after.CurrentCount, after.Capacity)

	outcomes := make([]string, 0, len(results.byOutcome))
	for outcome := range results.byOutcome {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		fmt.Printf("  %-18s %d\n", outcome, results.byOutcome[outcome])
	}

	if len(results.latencies) == 0 {
		return
	}
	sort.Slice(results.latencies, func(i, j int) bool { return results.latencies[i] < results.latencies[j] })
	p50 := results.latencies[len(results.latencies)/2]
	p99 := results.latencies[(len(results.latencies)*99)/100]
	fmt.Printf("  Latency p50: %s | p99: %s\n", p50, p99)
}
