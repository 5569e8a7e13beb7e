package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// simulate drives concurrent booking requests at a running api-server and
// reports how many contenders for the same slot won. With a healthy server
// every round ends with exactly one success.

type SimConfig struct {
	APIBaseURL string
	Workers    int
	Rounds     int
}

type Metrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	Latencies []time.Duration
}

func (m *Metrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}

	m.mu.Lock()
	m.Latencies = append(m.Latencies, latency)
	m.mu.Unlock()
}

func (m *Metrics) Stats() (avg, p50, p95 time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(m.Latencies))
	copy(latencies, m.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95idx := len(latencies) * 95 / 100
	if p95idx >= len(latencies) {
		p95idx = len(latencies) - 1
	}
	p95 = latencies[p95idx]
	return avg, p50, p95
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := SimConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		Workers:    getEnvInt("SIM_WORKERS", 20),
		Rounds:     getEnvInt("SIM_ROUNDS", 10),
	}

	log.Printf("simulate starting: base_url=%s workers=%d rounds=%d",
		cfg.APIBaseURL, cfg.Workers, cfg.Rounds)

	gofakeit.Seed(time.Now().UnixNano())
	client := &http.Client{Timeout: 10 * time.Second}

	tokens, err := registerPatients(client, cfg.APIBaseURL, cfg.Workers)
	if err != nil {
		log.Fatalf("register patients: %v", err)
	}

	doctorID, err := pickDoctor(client, cfg.APIBaseURL, tokens[0])
	if err != nil {
		log.Fatalf("pick doctor: %v", err)
	}
	log.Printf("booking against doctor %s", doctorID)

	metrics := &Metrics{}

	for round := 0; round < cfg.Rounds; round++ {
		date := time.Now().AddDate(0, 0, round+1).Format(time.DateOnly)
		slot := fmt.Sprintf("%02d:00 AM", 9+round%3)

		var wg sync.WaitGroup
		var roundSuccess int64

		for w := 0; w < cfg.Workers; w++ {
			wg.Add(1)
			go func(token string) {
				defer wg.Done()

				start := time.Now()
				status := book(client, cfg.APIBaseURL, token, doctorID, date, slot)
				metrics.Record(time.Since(start), status)

				if status == http.StatusCreated {
					atomic.AddInt64(&roundSuccess, 1)
				}
			}(tokens[w])
		}
		wg.Wait()

		log.Printf("round %d: key=(%s %s) successes=%d", round+1, date, slot, roundSuccess)
		if roundSuccess != 1 {
			log.Printf("WARNING: expected exactly 1 success for round %d, got %d", round+1, roundSuccess)
		}
	}

	avg, p50, p95 := metrics.Stats()
	log.Printf("done: total=%d success=%d conflict=%d error=%d avg=%s p50=%s p95=%s",
		metrics.Total, metrics.Success, metrics.Conflict, metrics.Error, avg, p50, p95)
}

func registerPatients(client *http.Client, baseURL string, count int) ([]string, error) {
	tokens := make([]string, 0, count)

	for i := 0; i < count; i++ {
		body, _ := json.Marshal(map[string]string{
			"name":     gofakeit.Name(),
			"email":    fmt.Sprintf("sim-%d-%d@example.com", time.Now().UnixNano(), i),
			"password": "password123",
			"role":     "patient",
		})

		resp, err := client.Post(baseURL+"/api/auth/register", "application/json", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		var out struct {
			Token string `json:"token"`
		}
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusCreated || out.Token == "" {
			return nil, fmt.Errorf("register returned status %d", resp.StatusCode)
		}

		tokens = append(tokens, out.Token)
	}

	return tokens, nil
}

func pickDoctor(client *http.Client, baseURL, token string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/appointments/doctors/list", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("doctors list returned status %d", resp.StatusCode)
	}

	var doctors []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doctors); err != nil {
		return "", err
	}
	if len(doctors) == 0 {
		return "", fmt.Errorf("no doctors available, run cmd/seed first")
	}

	return doctors[gofakeit.Number(0, len(doctors)-1)].ID, nil
}

func book(client *http.Client, baseURL, token, doctorID, date, slot string) int {
	body, _ := json.Marshal(map[string]string{
		"doctor_id": doctorID,
		"date":      date,
		"time_slot": slot,
		"reason":    "load simulation checkup",
	})

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/appointments", bytes.NewReader(body))
	if err != nil {
		return 0
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
