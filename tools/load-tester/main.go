package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// payloads cycles through the three intake endpoints so that a run exercises
// every file the logger writes.
var payloads = []struct {
	path   string
	format string
}{
	{"/v1/log", `{"level":"info","message":"load test event from worker %d","metadata":{"seq":"%s"}}`},
	{"/v1/log", `{"level":"error","message":"load test failure from worker %d","metadata":{"seq":"%s","token":"t0k3n"}}`},
	{"/v1/user-action", `{"user_id":"worker-%d","action":"click","metadata":{"seq":"%s","ip":"10.0.0.7"}}`},
	{"/v1/security-event", `{"event":"load_test_probe_%d","metadata":{"seq":"%s"}}`},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the intake server")
	apiKey := flag.String("api-key", "supersecretkey", "API Key for authentication")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 1000, "Requests per second limit")
	flag.Parse()

	target := strings.TrimRight(*baseURL, "/")
	log.Printf("Starting load test on %s", target)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var successCount, throttledCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}

			for n := 0; ; n++ {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				p := payloads[n%len(payloads)]
				body := fmt.Sprintf(p.format, workerID, uuid.NewString())

				req, err := http.NewRequestWithContext(ctx, http.MethodPost, target+p.path, bytes.NewBufferString(body))
				if err != nil {
					continue // Should not happen
				}
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("X-API-Key", *apiKey)
				req.Header.Set("X-Request-ID", uuid.NewString())

				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					errorCount.Add(1)
					continue
				}

				switch resp.StatusCode {
				case http.StatusAccepted:
					successCount.Add(1)
				case http.StatusTooManyRequests:
					throttledCount.Add(1)
				default:
					errorCount.Add(1)
				}
				resp.Body.Close()
			}
		}(i)
	}

	wg.Wait()

	totalRequests := successCount.Load() + throttledCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful (202 Accepted): %d", successCount.Load())
	log.Printf("Throttled (429): %d", throttledCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}
