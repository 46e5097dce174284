package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Webhook metrics
	WebhooksReceivedTotal int64
	WebhookErrorsTotal    int64

	// Hub metrics
	ConnectionsTotal    int64
	DisconnectionsTotal int64
	RegistrationsTotal  int64
	BroadcastsTotal     int64
	DeliveriesDropped   int64
	activeConnections   int64

	// Call log metrics
	CallLogsWrittenTotal int64

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			startTime: time.Now(),
		}
	})
	return instance
}

// RecordWebhook increments the webhooks received counter
func (m *Metrics) RecordWebhook() {
	m.mu.Lock()
	m.WebhooksReceivedTotal++
	m.mu.Unlock()
}

// RecordWebhookError increments the webhook error counter
func (m *Metrics) RecordWebhookError() {
	m.mu.Lock()
	m.WebhookErrorsTotal++
	m.mu.Unlock()
}

// RecordConnect increments connection counters
func (m *Metrics) RecordConnect() {
	m.mu.Lock()
	m.ConnectionsTotal++
	m.activeConnections++
	m.mu.Unlock()
}

// RecordDisconnect increments the disconnection counter
func (m *Metrics) RecordDisconnect() {
	m.mu.Lock()
	m.DisconnectionsTotal++
	m.activeConnections--
	m.mu.Unlock()
}

// RecordRegister increments the agent registration counter
func (m *Metrics) RecordRegister() {
	m.mu.Lock()
	m.RegistrationsTotal++
	m.mu.Unlock()
}

// RecordBroadcast increments the broadcast counter
func (m *Metrics) RecordBroadcast() {
	m.mu.Lock()
	m.BroadcastsTotal++
	m.mu.Unlock()
}

// RecordDeliveryDropped increments the dropped delivery counter
func (m *Metrics) RecordDeliveryDropped() {
	m.mu.Lock()
	m.DeliveriesDropped++
	m.mu.Unlock()
}

// RecordCallLogWritten increments the call log counter
func (m *Metrics) RecordCallLogWritten() {
	m.mu.Lock()
	m.CallLogsWrittenTotal++
	m.mu.Unlock()
}

// ActiveConnections returns the current websocket connection count
func (m *Metrics) ActiveConnections() int64 {
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

		write := func(name string, value int64) {
			fmt.Fprintf(w, "%s %d\n", name, value)
		}

		write("webhooks_received_total", m.WebhooksReceivedTotal)
		write("webhook_errors_total", m.WebhookErrorsTotal)
		write("ws_connections_total", m.ConnectionsTotal)
		write("ws_disconnections_total", m.DisconnectionsTotal)
		write("ws_active_connections", m.activeConnections)
		write("agent_registrations_total", m.RegistrationsTotal)
		write("hub_broadcasts_total", m.BroadcastsTotal)
		write("hub_deliveries_dropped_total", m.DeliveriesDropped)
		write("call_logs_written_total", m.CallLogsWrittenTotal)
		fmt.Fprintf(w, "uptime_seconds %d\n", int64(time.Since(m.startTime).Seconds()))
	}
}
