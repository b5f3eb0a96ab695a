// Package link owns the vehicle serial link: port transport, the inbound
// line reader, and the heartbeat-driven health monitor.
package link

import (
	"math"
	"sync"
	"time"
)

// txWindow is the trailing span used for the outbound rate average.
const txWindow = 3 * time.Second

// Monitor tracks heartbeat recency and the outbound message rate.
// MarkHeartbeat has exactly one writer (the RX reader) and MarkSend exactly
// one writer (the command sender); readers accept eventually-consistent
// views with no cross-field atomicity.
type Monitor struct {
	mu            sync.Mutex
	lastHeartbeat time.Time
	txTimes       []time.Time
	hbTimeout     time.Duration
	now           func() time.Time
}

// NewMonitor creates a monitor. The heartbeat clock starts at "now", so the
// link counts as alive until the first timeout elapses without a heartbeat.
func NewMonitor(hbTimeout time.Duration) *Monitor {
	m := &Monitor{hbTimeout: hbTimeout, now: time.Now}
	m.lastHeartbeat = m.now()
	return m
}

// MarkHeartbeat records a heartbeat received at the current time.
func (m *Monitor) MarkHeartbeat() {
	m.mu.Lock()
	m.lastHeartbeat = m.now()
	m.mu.Unlock()
}

// HeartbeatAge returns the time since the last heartbeat.
func (m *Monitor) HeartbeatAge() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.lastHeartbeat)
}

// Connected reports whether a heartbeat arrived within the timeout.
func (m *Monitor) Connected() bool {
	return m.HeartbeatAge() < m.hbTimeout
}

// Quality maps heartbeat age onto 0..100: full marks while the age is within
// 20% of the timeout, zero at the timeout, linear in between.
func (m *Monitor) Quality() int {
	age := m.HeartbeatAge().Seconds()
	limit := m.hbTimeout.Seconds()
	switch {
	case age <= 0.2*limit:
		return 100
	case age >= limit:
		return 0
	}
	frac := (age - 0.2*limit) / (0.8 * limit)
	q := int(math.Round(100 * (1 - frac)))
	if q < 0 {
		q = 0
	} else if q > 100 {
		q = 100
	}
	return q
}

// MarkSend records one outbound message at the current time.
func (m *Monitor) MarkSend() {
	m.mu.Lock()
	m.txTimes = append(m.txTimes, m.now())
	m.mu.Unlock()
}

// TxRateHz returns the trailing-window send rate, rounded to two decimals.
// Expired entries are pruned lazily here rather than on every MarkSend.
func (m *Monitor) TxRateHz() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-txWindow)
	i := 0
	for i < len(m.txTimes) && m.txTimes[i].Before(cutoff) {
		i++
	}
	m.txTimes = m.txTimes[i:]
	rate := float64(len(m.txTimes)) / txWindow.Seconds()
	return math.Round(rate*100) / 100
}
