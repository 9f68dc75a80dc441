package metrics

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Report metrics
	ReportsGeneratedTotal int64
	ReportsEmptyTotal     int64
	RecordsProcessedTotal int64
	RecordsInvalidTotal   int64
	reportErrors          map[string]int64 // kind -> count
	lastReportDuration    time.Duration

	// Fetch metrics
	FetchRetriesTotal int64
	FetchErrorsTotal  int64

	// Sync metrics
	SyncRunsTotal      int64
	SyncRecordsTotal   int64
	SyncErrorsTotal    int64
	lastSyncCompletion time.Time

	// WebSocket metrics
	WebSocketConnectionsTotal    int64
	WebSocketDisconnectionsTotal int64
	WebSocketMessagesTotal       int64
	WebSocketErrorsTotal         int64
	activeConnections            int64

	// HTTP metrics
	httpRequestsTotal    map[string]map[int]int64 // endpoint -> status -> count
	httpRequestDurations map[string][]float64     // endpoint -> durations

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates an independent metrics instance
func New() *Metrics {
	return &Metrics{
		reportErrors:         make(map[string]int64),
		httpRequestsTotal:    make(map[string]map[int]int64),
		httpRequestDurations: make(map[string][]float64),
		startTime:            time.Now(),
	}
}

// RecordReport records a completed report computation
func (m *Metrics) RecordReport(duration time.Duration, records, invalid int) {
	m.mu.Lock()
	m.ReportsGeneratedTotal++
	m.RecordsProcessedTotal += int64(records)
	m.RecordsInvalidTotal += int64(invalid)
	m.lastReportDuration = duration
	m.mu.Unlock()
}

// RecordEmptyReport increments the counter of reports with no call history
func (m *Metrics) RecordEmptyReport() {
	m.mu.Lock()
	m.ReportsEmptyTotal++
	m.mu.Unlock()
}

// RecordReportError increments the error counter for the given error kind
func (m *Metrics) RecordReportError(kind string) {
	m.mu.Lock()
	m.reportErrors[kind]++
	m.mu.Unlock()
}

// ReportErrors returns the error count for a kind
func (m *Metrics) ReportErrors(kind string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reportErrors[kind]
}

// RecordFetchRetry increments the call history fetch retry counter
func (m *Metrics) RecordFetchRetry() {
	m.mu.Lock()
	m.FetchRetriesTotal++
	m.mu.Unlock()
}

// RecordFetchError increments the call history fetch failure counter
func (m *Metrics) RecordFetchError() {
	m.mu.Lock()
	m.FetchErrorsTotal++
	m.mu.Unlock()
}

// RecordSync records a finished sync run
func (m *Metrics) RecordSync(records int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SyncRunsTotal++
	m.SyncRecordsTotal += int64(records)
	if err != nil {
		m.SyncErrorsTotal++
		return
	}
	m.lastSyncCompletion = time.Now()
}

// RecordWebSocketConnect increments connection counters
func (m *Metrics) RecordWebSocketConnect() {
	m.mu.Lock()
	m.WebSocketConnectionsTotal++
	m.activeConnections++
	m.mu.Unlock()
}

// RecordWebSocketDisconnect increments disconnection counter
func (m *Metrics) RecordWebSocketDisconnect() {
	m.mu.Lock()
	m.WebSocketDisconnectionsTotal++
	m.activeConnections--
	m.mu.Unlock()
}

// RecordWebSocketMessage increments message counter
func (m *Metrics) RecordWebSocketMessage() {
	m.mu.Lock()
	m.WebSocketMessagesTotal++
	m.mu.Unlock()
}

// RecordWebSocketError increments WebSocket error counter
func (m *Metrics) RecordWebSocketError() {
	m.mu.Lock()
	m.WebSocketErrorsTotal++
	m.mu.Unlock()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++

	// Keep last 100 durations for percentile calculation
	if len(m.httpRequestDurations[endpoint]) >= 100 {
		m.httpRequestDurations[endpoint] = m.httpRequestDurations[endpoint][1:]
	}
	m.httpRequestDurations[endpoint] = append(m.httpRequestDurations[endpoint], duration.Seconds())
}

// GetActiveConnections returns current WebSocket connections
func (m *Metrics) GetActiveConnections() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeConnections
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Helper to write metric
		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		// System metrics
		write("bert_uptime_seconds", time.Since(m.startTime).Seconds())

		// Report metrics
		write("bert_reports_generated_total", m.ReportsGeneratedTotal)
		write("bert_reports_empty_total", m.ReportsEmptyTotal)
		write("bert_records_processed_total", m.RecordsProcessedTotal)
		write("bert_records_invalid_total", m.RecordsInvalidTotal)
		write("bert_report_duration_seconds", m.lastReportDuration.Seconds())

		kinds := make([]string, 0, len(m.reportErrors))
		for kind := range m.reportErrors {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			write("bert_report_errors_total", m.reportErrors[kind], "kind", kind)
		}

		// Fetch metrics
		write("bert_fetch_retries_total", m.FetchRetriesTotal)
		write("bert_fetch_errors_total", m.FetchErrorsTotal)

		// Sync metrics
		write("bert_sync_runs_total", m.SyncRunsTotal)
		write("bert_sync_records_total", m.SyncRecordsTotal)
		write("bert_sync_errors_total", m.SyncErrorsTotal)
		if !m.lastSyncCompletion.IsZero() {
			write("bert_sync_last_success_timestamp_seconds", float64(m.lastSyncCompletion.Unix()))
		}

		// WebSocket metrics
		write("bert_websocket_connections_total", m.WebSocketConnectionsTotal)
		write("bert_websocket_disconnections_total", m.WebSocketDisconnectionsTotal)
		write("bert_websocket_active_connections", m.activeConnections)
		write("bert_websocket_messages_total", m.WebSocketMessagesTotal)
		write("bert_websocket_errors_total", m.WebSocketErrorsTotal)

		// HTTP metrics
		for endpoint, statusCodes := range m.httpRequestsTotal {
			for status, count := range statusCodes {
				write("bert_http_requests_total", count, "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}
	}
}
