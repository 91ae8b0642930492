package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for engine runs and HTTP traffic.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	deliveryCount map[string]int64
	runCount      int64
	lastRunAt     time.Time
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		deliveryCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordDelivery counts an outbound send per stage and outcome.
func (m *Metrics) RecordDelivery(stage int, outcome string) {
	if m == nil {
		return
	}
	key := "stage_" + strconv.Itoa(stage) + "|" + outcome
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveryCount[key]++
}

// RecordEngineRun marks a completed funnel engine run.
func (m *Metrics) RecordEngineRun(at time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runCount++
	m.lastRunAt = at
}

// EngineRuns returns the number of completed runs and the last run time.
func (m *Metrics) EngineRuns() (int64, time.Time) {
	if m == nil {
		return 0, time.Time{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runCount, m.lastRunAt
}

// DeliveryCount returns the counter for a stage and outcome.
func (m *Metrics) DeliveryCount(stage int, outcome string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deliveryCount["stage_"+strconv.Itoa(stage)+"|"+outcome]
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
