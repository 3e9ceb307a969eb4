// Package observability provides metrics collection and tracing for CLI operations.
package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RequestInfo identifies an HTTP request for hooks and tracing.
type RequestInfo struct {
	Method  string
	URL     string
	Attempt int
}

// RequestResult holds the outcome of an HTTP request.
type RequestResult struct {
	StatusCode int
	Duration   time.Duration
	FromCache  bool
	Retryable  bool
	Error      error
}

// OperationInfo identifies a high-level API operation.
type OperationInfo struct {
	Operation  string // e.g., "documents.update", "documents.list"
	DocumentID string
	IsMutation bool
}

// RequestMetrics holds timing and status information for a single HTTP request.
type RequestMetrics struct {
	Method     string
	URL        string
	Attempt    int
	StatusCode int
	Duration   time.Duration
	FromCache  bool
	Retryable  bool
	Error      error
}

// OperationMetrics holds timing information for a high-level operation.
type OperationMetrics struct {
	Operation  string
	DocumentID string
	IsMutation bool
	Duration   time.Duration
	Error      error
}

// RetryMetrics records a retry event.
type RetryMetrics struct {
	Method  string
	URL     string
	Attempt int
	Error   error
}

// SaveMetrics records a single save attempt from the autosave pipeline.
type SaveMetrics struct {
	DocumentID string
	Forced     bool
	Conflict   bool
	Offline    bool
	Duration   time.Duration
	Error      error
}

// DraftMetrics records a local draft write.
type DraftMetrics struct {
	Key   string
	Bytes int
	Error error
}

// SessionMetrics aggregates metrics for an entire CLI session.
type SessionMetrics struct {
	SessionID       string
	StartTime       time.Time
	EndTime         time.Time
	TotalRequests   int
	CacheHits       int
	CacheMisses     int
	TotalOperations int
	FailedOps       int
	TotalRetries    int
	TotalLatency    time.Duration
	SavesAttempted  int
	SavesCompleted  int
	SaveConflicts   int
	OfflineSkips    int
	DraftsWritten   int
}

// SessionCollector accumulates metrics across a CLI session.
// It is safe for concurrent use and uses counters instead of unbounded slices.
type SessionCollector struct {
	mu sync.Mutex

	sessionID       string
	startTime       time.Time
	totalRequests   int
	cacheHits       int
	cacheMisses     int
	totalOperations int
	failedOps       int
	totalRetries    int
	totalLatency    time.Duration
	savesAttempted  int
	savesCompleted  int
	saveConflicts   int
	offlineSkips    int
	draftsWritten   int
}

// NewSessionCollector creates a new SessionCollector.
func NewSessionCollector() *SessionCollector {
	return &SessionCollector{
		sessionID: uuid.NewString(),
		startTime: time.Now(),
	}
}

// RecordRequest records metrics for an HTTP request.
func (c *SessionCollector) RecordRequest(m RequestMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	c.totalLatency += m.Duration
	if m.FromCache {
		c.cacheHits++
	} else {
		c.cacheMisses++
	}
}

// RecordOperation records metrics for a high-level operation.
func (c *SessionCollector) RecordOperation(m OperationMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalOperations++
	if m.Error != nil {
		c.failedOps++
	}
}

// RecordRetry records a retry event.
func (c *SessionCollector) RecordRetry(_ RetryMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

// RecordSave records a save attempt from the autosave pipeline.
func (c *SessionCollector) RecordSave(m SaveMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.Offline {
		c.offlineSkips++
		return
	}
	c.savesAttempted++
	switch {
	case m.Conflict:
		c.saveConflicts++
	case m.Error == nil:
		c.savesCompleted++
	}
}

// RecordDraft records a local draft write.
func (c *SessionCollector) RecordDraft(m DraftMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.Error == nil {
		c.draftsWritten++
	}
}

// Summary returns aggregated metrics for the session.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SessionMetrics{
		SessionID:       c.sessionID,
		StartTime:       c.startTime,
		EndTime:         time.Now(),
		TotalRequests:   c.totalRequests,
		CacheHits:       c.cacheHits,
		CacheMisses:     c.cacheMisses,
		TotalOperations: c.totalOperations,
		FailedOps:       c.failedOps,
		TotalRetries:    c.totalRetries,
		TotalLatency:    c.totalLatency,
		SavesAttempted:  c.savesAttempted,
		SavesCompleted:  c.savesCompleted,
		SaveConflicts:   c.saveConflicts,
		OfflineSkips:    c.offlineSkips,
		DraftsWritten:   c.draftsWritten,
	}
}

// Reset clears all collected metrics and resets the start time.
func (c *SessionCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.totalRequests = 0
	c.cacheHits = 0
	c.cacheMisses = 0
	c.totalOperations = 0
	c.failedOps = 0
	c.totalRetries = 0
	c.totalLatency = 0
	c.savesAttempted = 0
	c.savesCompleted = 0
	c.saveConflicts = 0
	c.offlineSkips = 0
	c.draftsWritten = 0
}

// ToMap converts session metrics to a plain map for response metadata.
func (m SessionMetrics) ToMap() map[string]any {
	return map[string]any{
		"session_id":      m.SessionID,
		"requests":        m.TotalRequests,
		"cache_hits":      m.CacheHits,
		"cache_misses":    m.CacheMisses,
		"operations":      m.TotalOperations,
		"failed_ops":      m.FailedOps,
		"retries":         m.TotalRetries,
		"latency_ms":      m.TotalLatency.Milliseconds(),
		"saves_attempted": m.SavesAttempted,
		"saves_completed": m.SavesCompleted,
		"save_conflicts":  m.SaveConflicts,
		"offline_skips":   m.OfflineSkips,
		"drafts_written":  m.DraftsWritten,
	}
}

// SessionMetricsFromMap rebuilds session metrics from response metadata.
// Numeric values may arrive as int, int64, or float64 after a JSON round trip.
func SessionMetricsFromMap(stats map[string]any) SessionMetrics {
	return SessionMetrics{
		SessionID:       stringFrom(stats, "session_id"),
		TotalRequests:   intFrom(stats, "requests"),
		CacheHits:       intFrom(stats, "cache_hits"),
		CacheMisses:     intFrom(stats, "cache_misses"),
		TotalOperations: intFrom(stats, "operations"),
		FailedOps:       intFrom(stats, "failed_ops"),
		TotalRetries:    intFrom(stats, "retries"),
		TotalLatency:    time.Duration(intFrom(stats, "latency_ms")) * time.Millisecond,
		SavesAttempted:  intFrom(stats, "saves_attempted"),
		SavesCompleted:  intFrom(stats, "saves_completed"),
		SaveConflicts:   intFrom(stats, "save_conflicts"),
		OfflineSkips:    intFrom(stats, "offline_skips"),
		DraftsWritten:   intFrom(stats, "drafts_written"),
	}
}

func stringFrom(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func intFrom(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// FormatParts returns compact human-readable metric fragments for display,
// skipping zero-valued counters. Example: ["3 requests", "1 cached", "2 saves"].
func (m SessionMetrics) FormatParts() []string {
	var parts []string

	if m.TotalRequests > 0 {
		parts = append(parts, countOf(m.TotalRequests, "request"))
	}
	if m.CacheHits > 0 {
		parts = append(parts, fmt.Sprintf("%d cached", m.CacheHits))
	}
	if m.SavesAttempted > 0 {
		parts = append(parts, countOf(m.SavesAttempted, "save"))
	}
	if m.SaveConflicts > 0 {
		parts = append(parts, countOf(m.SaveConflicts, "conflict"))
	}
	if m.DraftsWritten > 0 {
		parts = append(parts, countOf(m.DraftsWritten, "draft"))
	}
	if m.TotalRetries > 0 {
		parts = append(parts, fmt.Sprintf("%d retries", m.TotalRetries))
	}
	if m.FailedOps > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", m.FailedOps))
	}
	if m.TotalLatency > 0 {
		parts = append(parts, fmt.Sprintf("%dms", m.TotalLatency.Milliseconds()))
	}

	return parts
}

func countOf(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
