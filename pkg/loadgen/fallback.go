package loadgen

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/GssMahadevan/gvthread/pkg/metrics"
)

// perRequestTimeout bounds a single fallback request so that one stuck
// connection can never hang the run past the drive window.
const perRequestTimeout = 10 * time.Second

// Fallback is an in-process HTTP client used when neither wrkr nor wrk
// is installed. One goroutine per connection issues sequential requests
// until the drive deadline; latencies feed percentile computation.
type Fallback struct{}

// NewFallback returns the in-process generator.
func NewFallback() *Fallback {
	return &Fallback{}
}

func (f *Fallback) Name() string {
	return "fallback"
}

type fallbackWorker struct {
	latenciesUs []float64
	requests    int64
	non2xx      int64
	connectErrs int
	timeoutErrs int
	readErrs    int
}

func (f *Fallback) Drive(params DriveParams) (*metrics.Metrics, string, error) {
	log.Debugf("[%s] driving load in-process: %d connections for %s",
		params.CellTag, params.Connections, params.Duration)

	url := params.URL()
	deadline := time.Now().Add(params.Duration)

	workers := make([]*fallbackWorker, params.Connections)
	var wg sync.WaitGroup
	for i := range workers {
		workers[i] = &fallbackWorker{}
		wg.Add(1)
		go func(w *fallbackWorker) {
			defer wg.Done()
			w.run(url, deadline, params.KeepAlive)
		}(workers[i])
	}

	// The per-request timeout guarantees every worker observes the
	// deadline; the slack is a backstop against a wedged runtime.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(params.Duration + driveTimeoutSlack):
		return nil, "", &TimeoutError{Generator: f.Name(), Timeout: params.Duration + driveTimeoutSlack}
	}

	if params.Warmup {
		return &metrics.Metrics{}, "", nil
	}

	result, raw := f.aggregate(workers, params.Duration)
	if result.TotalRequests == 0 {
		return nil, raw, errors.Errorf("no request completed against %s", url)
	}

	return result, raw, nil
}

func (w *fallbackWorker) run(url string, deadline time.Time, keepAlive bool) {
	transport := &http.Transport{DisableKeepAlives: !keepAlive}
	client := &http.Client{Transport: transport, Timeout: perRequestTimeout}
	defer transport.CloseIdleConnections()

	for time.Now().Before(deadline) {
		started := time.Now()
		resp, err := client.Get(url)
		if err != nil {
			w.classify(err)
			continue
		}

		w.requests++
		w.latenciesUs = append(w.latenciesUs, float64(time.Since(started).Microseconds()))
		if resp.StatusCode < 200 || resp.StatusCode >= 400 {
			w.non2xx++
		}
		resp.Body.Close()
	}
}

func (w *fallbackWorker) classify(err error) {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		w.timeoutErrs++
		return
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		w.connectErrs++
		return
	}
	w.readErrs++
}

func (f *Fallback) aggregate(workers []*fallbackWorker, duration time.Duration) (*metrics.Metrics, string) {
	var latencies []float64
	result := &metrics.Metrics{}
	errs := metrics.SocketErrors{}

	for _, w := range workers {
		result.TotalRequests += w.requests
		result.Non2xx += w.non2xx
		errs.Connect += w.connectErrs
		errs.Timeout += w.timeoutErrs
		errs.Read += w.readErrs
		latencies = append(latencies, w.latenciesUs...)
	}

	result.RequestsPerSec = float64(result.TotalRequests) / duration.Seconds()
	if errs != (metrics.SocketErrors{}) {
		result.Errors = &errs
	}

	if len(latencies) > 0 {
		result.AvgLatencyUs, _ = stats.Mean(latencies)
		result.P50LatencyUs, _ = stats.Percentile(latencies, 50)
		result.P75LatencyUs, _ = stats.Percentile(latencies, 75)
		result.P90LatencyUs, _ = stats.Percentile(latencies, 90)
		result.P99LatencyUs, _ = stats.Percentile(latencies, 99)
		result.P999LatencyUs, _ = stats.Percentile(latencies, 99.9)
	}

	raw := fmt.Sprintf("fallback: %d requests in %s, %.2f req/s, errors %+v",
		result.TotalRequests, duration, result.RequestsPerSec, errs)

	return result, raw
}
