package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	workload    string
	donors      int
	firstDonor  int64
	creatorID   int64
	beneficiary int64
	campaigns   int
	unit        int64
)

// Metrics
var (
	totalRequests uint64
	success200    uint64 // Idempotent replays
	success201    uint64 // Created
	fail409       uint64 // Conflicts (state or duplicate)
	fail422       uint64 // Rejected (exhaustion or validation)
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.StringVar(&workload, "workload", "hotspot", "Workload type: hotspot (one campaign) | uniform (spread over -campaigns)")
	flag.IntVar(&donors, "donors", 1000, "Number of donor accounts, ids starting at -first-donor")
	flag.Int64Var(&firstDonor, "first-donor", 3, "Account id of the first seeded donor")
	flag.Int64Var(&creatorID, "creator", 1, "Account id that creates and pays for campaigns")
	flag.Int64Var(&beneficiary, "beneficiary", 2, "Account id that receives withdrawals")
	flag.IntVar(&campaigns, "campaigns", 10, "Campaign count for the uniform workload")
	flag.Int64Var(&unit, "unit", 100, "Donation unit")
}

type campaignResponse struct {
	Campaign struct {
		ID string `json:"id"`
	} `json:"campaign"`
}

type statusView struct {
	Raised int64  `json:"raised"`
	Status string `json:"status"`
}

func main() {
	flag.Parse()
	if workload == "hotspot" {
		campaigns = 1
	}
	log.Printf("Starting Benchmark: %s | Workers: %d | Donors: %d | Campaigns: %d", workload, concurrency, donors, campaigns)

	client := &http.Client{Timeout: 5 * time.Second}
	ctx := context.Background()

	ids := make([]string, campaigns)
	for i := range ids {
		id, err := createCampaign(ctx, client, i)
		if err != nil {
			log.Fatalf("create campaign: %v", err)
		}
		ids[i] = id
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := 0; i < donors; i++ {
		donor := firstDonor + int64(i)
		campaign := ids[i%len(ids)]
		g.Go(func() error {
			donate(gctx, client, donor, campaign)
			return nil
		})
	}
	g.Wait()
	elapsed := time.Since(start)

	var raised int64
	for _, id := range ids {
		var v statusView
		if _, err := call(ctx, client, "GET", "/api/v1/campaigns/"+id, 0, nil, &v); err != nil {
			log.Printf("status %s: %v", id, err)
			continue
		}
		raised += v.Raised
	}
	printResults(elapsed, raised)
}

func createCampaign(ctx context.Context, client *http.Client, n int) (string, error) {
	goal := unit * int64(donors/campaigns+1)
	payload := map[string]any{
		"beneficiary":   beneficiary,
		"title":         fmt.Sprintf("benchmark %d", n),
		"goal":          goal,
		"donation_unit": unit,
		"end_date":      time.Now().Add(24 * time.Hour).UTC(),
	}
	var out campaignResponse
	code, err := call(ctx, client, "POST", "/api/v1/campaigns", creatorID, payload, &out)
	if err != nil {
		return "", err
	}
	if code != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", code)
	}
	return out.Campaign.ID, nil
}

// donate opens the donor's record and donates one unit under an
// Idempotency-Key, retrying once to exercise replay.
func donate(ctx context.Context, client *http.Client, donor int64, campaign string) {
	base := "/api/v1/campaigns/" + campaign
	if code, err := call(ctx, client, "POST", base+"/donations", donor, nil, nil); err != nil || (code != http.StatusCreated && code != http.StatusConflict) {
		atomic.AddUint64(&failOther, 1)
		return
	}

	key := fmt.Sprintf("bench-%s-%d", campaign, donor)
	body := map[string]int64{"amount": unit}
	for attempt := 0; attempt < 2; attempt++ {
		code, err := callWithKey(ctx, client, base+"/donate", donor, key, body)
		if attempt == 1 && code == http.StatusCreated {
			code = http.StatusOK
		}
		record(code, err)
	}
}

func record(code int, err error) {
	if err != nil {
		atomic.AddUint64(&failOther, 1)
		return
	}
	atomic.AddUint64(&totalRequests, 1)
	switch code {
	case 201:
		atomic.AddUint64(&success201, 1)
	case 200:
		atomic.AddUint64(&success200, 1)
	case 409:
		atomic.AddUint64(&fail409, 1)
	case 422:
		atomic.AddUint64(&fail422, 1)
	default:
		atomic.AddUint64(&failOther, 1)
	}
}

func call(ctx context.Context, client *http.Client, method, path string, who int64, payload, out any) (int, error) {
	return do(ctx, client, method, path, who, "", payload, out)
}

func callWithKey(ctx context.Context, client *http.Client, path string, who int64, key string, payload any) (int, error) {
	return do(ctx, client, "POST", path, who, key, payload, nil)
}

func do(ctx context.Context, client *http.Client, method, path string, who int64, key string, payload, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, targetURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if who != 0 {
		req.Header.Set("X-Account-ID", strconv.FormatInt(who, 10))
	}
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

func printResults(d time.Duration, raised int64) {
	total := atomic.LoadUint64(&totalRequests)
	s201 := atomic.LoadUint64(&success201)
	s200 := atomic.LoadUint64(&success200)
	f409 := atomic.LoadUint64(&fail409)
	f422 := atomic.LoadUint64(&fail422)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	var abortRate float64
	if total > 0 {
		abortRate = float64(f409) / float64(total) * 100
	}

	results := map[string]any{
		"workload":        workload,
		"duration_sec":    d.Seconds(),
		"total_requests":  total,
		"throughput_tps":  tps,
		"success_created": s201,
		"success_replay":  s200,
		"aborts_conflict": f409,
		"rejected":        f422,
		"abort_rate_pct":  abortRate,
		"errors":          fErr,
		"raised_total":    raised,
		"consistent":      raised == int64(s201)*unit,
	}

	// Print JSON for the python plotter to consume
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	// Also save to file
	filename := fmt.Sprintf("results_%s.json", workload)
	file, err := os.Create(filename)
	if err != nil {
		log.Printf("write results: %v", err)
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
