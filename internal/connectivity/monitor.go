package connectivity

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Defaults for the probing monitor.
const (
	// DefaultHealthyInterval is the probe cadence while online.
	DefaultHealthyInterval = 30 * time.Second

	// DefaultDegradedInterval is the probe cadence while offline, so
	// reconnection is noticed quickly.
	DefaultDegradedInterval = 5 * time.Second

	// DefaultFailureThreshold is how many consecutive failures flip the
	// monitor to offline. A single blip should not strand the editor.
	DefaultFailureThreshold = 2

	// probeTimeout bounds each individual probe request.
	probeTimeout = 5 * time.Second
)

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// ProbeURL is requested with HEAD to check reachability.
	ProbeURL string

	// Client is the HTTP client for probes. Defaults to a client with
	// probeTimeout.
	Client *http.Client

	// HealthyInterval is the probe cadence while online.
	HealthyInterval time.Duration

	// DegradedInterval is the probe cadence while offline.
	DegradedInterval time.Duration

	// FailureThreshold is the consecutive failure count that flips to offline.
	FailureThreshold int
}

// Monitor is an Observer that combines active HEAD probes with passive
// signals reported by the API client. It starts optimistic (online) and
// flips to offline after FailureThreshold consecutive failures; any single
// success flips it back.
type Monitor struct {
	probeURL  string
	client    *http.Client
	healthy   time.Duration
	degraded  time.Duration
	threshold int

	mu       sync.Mutex
	online   bool
	failures int
	nextID   int
	subs     map[int]func(bool)

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
	kick      chan struct{}
}

// NewMonitor creates a Monitor with defaults applied for zero values.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: probeTimeout}
	}
	if cfg.HealthyInterval <= 0 {
		cfg.HealthyInterval = DefaultHealthyInterval
	}
	if cfg.DegradedInterval <= 0 {
		cfg.DegradedInterval = DefaultDegradedInterval
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}

	return &Monitor{
		probeURL:  cfg.ProbeURL,
		client:    cfg.Client,
		healthy:   cfg.HealthyInterval,
		degraded:  cfg.DegradedInterval,
		threshold: cfg.FailureThreshold,
		online:    true,
		subs:      make(map[int]func(bool)),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		kick:      make(chan struct{}, 1),
	}
}

// Start launches the probe loop. Stop must be called to release the goroutine.
func (m *Monitor) Start() {
	m.startOnce.Do(func() {
		m.started.Store(true)
		go m.run()
	})
}

// Stop terminates the probe loop and waits for it to exit.
// Safe to call without Start and safe to call repeatedly.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	if m.started.Load() {
		<-m.doneCh
	}
}

// Online implements Observer.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe implements Observer.
func (m *Monitor) Subscribe(fn func(online bool)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// ReportSuccess feeds a passive success signal, e.g. an API call that
// completed. Marks the monitor online immediately.
func (m *Monitor) ReportSuccess() {
	m.recordSuccess()
}

// ReportFailure feeds a passive failure signal, e.g. an API call that hit a
// network error. After FailureThreshold consecutive failures the monitor
// flips offline and the probe loop switches to the degraded cadence.
func (m *Monitor) ReportFailure() {
	if m.recordFailure() {
		// Wake the loop so it reschedules at the degraded interval
		select {
		case m.kick <- struct{}{}:
		default:
		}
	}
}

// run is the probe loop. One lap per interval; kick wakes it early when the
// cadence needs to change.
func (m *Monitor) run() {
	defer close(m.doneCh)

	for {
		timer := time.NewTimer(m.interval())
		select {
		case <-m.stopCh:
			timer.Stop()
			return
		case <-m.kick:
			timer.Stop()
		case <-timer.C:
			m.probe()
		}
	}
}

// interval returns the current probe cadence.
func (m *Monitor) interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online {
		return m.healthy
	}
	return m.degraded
}

// probe performs one reachability check.
func (m *Monitor) probe() {
	if m.probeURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		m.recordFailure()
		return
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.recordFailure()
		return
	}
	_ = resp.Body.Close()

	// Any response means the network path works, even a 4xx. Server errors
	// count as failures since saves will not succeed against them either.
	if resp.StatusCode >= 500 {
		m.recordFailure()
		return
	}

	m.recordSuccess()
}

// recordSuccess resets the failure streak and transitions online if needed.
func (m *Monitor) recordSuccess() {
	m.mu.Lock()
	m.failures = 0
	changed := !m.online
	m.online = true
	fns := m.snapshotSubsLocked(changed)
	m.mu.Unlock()

	for _, fn := range fns {
		fn(true)
	}
}

// recordFailure extends the failure streak. Returns true when the state
// flipped to offline.
func (m *Monitor) recordFailure() bool {
	m.mu.Lock()
	m.failures++
	changed := m.online && m.failures >= m.threshold
	if changed {
		m.online = false
	}
	fns := m.snapshotSubsLocked(changed)
	m.mu.Unlock()

	for _, fn := range fns {
		fn(false)
	}
	return changed
}

// snapshotSubsLocked copies subscriber callbacks when notify is true.
// Caller must hold mu.
func (m *Monitor) snapshotSubsLocked(notify bool) []func(bool) {
	if !notify {
		return nil
	}
	fns := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	return fns
}
