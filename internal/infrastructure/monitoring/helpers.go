package monitoring

import "time"

// Snapshot holds current counter values for the JSON stats endpoint.
type Snapshot struct {
	Generated              uint64  `json:"generated"`
	Collected              uint64  `json:"collected"`
	Drained                uint64  `json:"drained"`
	Republished            uint64  `json:"republished"`
	Exchanges              uint64  `json:"exchanges"`
	ExchangeFailures       uint64  `json:"exchange_failures"`
	ExchangeSeconds        float64 `json:"-"` // sum, for averaging
	AvgExchangeMillis      float64 `json:"avg_exchange_ms"`
	NotificationsDelivered uint64  `json:"notifications_delivered"`
	NotificationsDropped   uint64  `json:"notifications_dropped"`
	Requests               uint64  `json:"requests"`
	UptimeSeconds          float64 `json:"uptime_seconds"`
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()

	if s.Exchanges > 0 {
		s.AvgExchangeMillis = s.ExchangeSeconds / float64(s.Exchanges) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
