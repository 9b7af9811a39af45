// Replay script: posts every application in a CSV file to a running server
// and prints the decision distribution.
// Run with: go run ./scripts/replay.go -csv applications.csv
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

type result struct {
	row      int
	ref      string
	decision domain.Decision
	passed   int
	latency  time.Duration
	err      error
}

func main() {
	envFile := os.Getenv("LOANCOUNCIL_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	csvPath := flag.String("csv", "applications.csv", "CSV file of applications")
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	workers := flag.Int("workers", 2, "concurrent requests")
	timeout := flag.Duration("timeout", 5*time.Minute, "per-request timeout")
	flag.Parse()

	apps, err := loadApplications(*csvPath)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *csvPath, err)
	}
	fmt.Printf("Loaded %d applications from %s\n", len(apps), *csvPath)

	client := &http.Client{Timeout: *timeout}
	apiKey := os.Getenv("API_KEY")

	results := make([]result, len(apps))
	var mu sync.Mutex
	done := 0

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*workers)
	for i, app := range apps {
		g.Go(func() error {
			ref := fmt.Sprintf("%s#%d", *csvPath, i+1)
			r := post(ctx, client, *baseURL, apiKey, ref, app)
			r.row = i + 1

			mu.Lock()
			results[i] = r
			done++
			if r.err != nil {
				fmt.Printf("[%d/%d] row %d: error: %v\n", done, len(apps), r.row, r.err)
			} else {
				fmt.Printf("[%d/%d] row %d: %s (passed %d/7) in %s\n", done, len(apps), r.row, r.decision, r.passed, r.latency.Round(time.Millisecond))
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	summarize(results)
}

func post(ctx context.Context, client *http.Client, baseURL, apiKey, ref string, app domain.Application) result {
	body, err := json.Marshal(map[string]any{"application": app, "external_ref": ref})
	if err != nil {
		return result{ref: ref, err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/v1/deliberations", bytes.NewReader(body))
	if err != nil {
		return result{ref: ref, err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return result{ref: ref, err: err}
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return result{ref: ref, latency: latency, err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))}
	}

	var d domain.Deliberation
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return result{ref: ref, latency: latency, err: err}
	}
	return result{ref: ref, decision: d.Record.Decision, passed: d.Record.PassedCount, latency: latency}
}

func summarize(results []result) {
	var ok, failed, approved, rejected int
	var total time.Duration
	for _, r := range results {
		if r.err != nil {
			failed++
			continue
		}
		ok++
		total += r.latency
		if r.decision == domain.DecisionApprove {
			approved++
		} else {
			rejected++
		}
	}

	fmt.Println()
	fmt.Printf("Requests:  %d ok, %d failed\n", ok, failed)
	if ok == 0 {
		return
	}
	fmt.Printf("Approved:  %d (%.1f%%)\n", approved, 100*float64(approved)/float64(ok))
	fmt.Printf("Rejected:  %d (%.1f%%)\n", rejected, 100*float64(rejected)/float64(ok))
	fmt.Printf("Avg time:  %s\n", (total / time.Duration(ok)).Round(time.Millisecond))
}

func loadApplications(path string) ([]domain.Application, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		header[strings.TrimSpace(strings.ToLower(h))] = i
	}

	apps := make([]domain.Application, 0, len(rows)-1)
	for n, row := range rows[1:] {
		get := func(col string) string {
			if i, ok := header[col]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		app := domain.Application{
			AgeGroup:            get("age_group"),
			Age:                 atoi(get("age")),
			Gender:              get("gender"),
			ProvinceRegion:      get("province_region"),
			UniversityTier:      atoi(get("university_tier")),
			PublicUniversity:    parseBool(get("public_university")),
			MajorCategory:       get("major_category"),
			GPANormalized:       atof(get("gpa_normalized")),
			StudyYear:           atoi(get("study_year")),
			Club:                get("club"),
			FamilyIncome:        int64(atof(get("family_income"))),
			HasPartTimeJob:      parseBool(get("has_part_time_job")),
			ExistingDebt:        parseBool(get("existing_debt")),
			Guarantor:           get("guarantor"),
			LoanAmountRequested: int64(atof(get("loan_amount_requested"))),
			LoanPurpose:         get("loan_purpose"),
		}
		if err := app.Validate(); err != nil {
			log.Printf("skipping row %d: %v", n+2, err)
			continue
		}
		apps = append(apps, app)
	}
	return apps, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return f
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "có", "co":
		return true
	}
	return false
}
