// Package metrics provides application-level metrics collection.
// This is a lightweight metrics foundation using atomic counters.
package metrics

import (
	"sync/atomic"
	"time"
)

// Connection win signals.
const (
	SignalResult   = "result"
	SignalEvent    = "event"
	SignalPoll     = "poll"
	SignalExisting = "existing"
)

// Connection failure classes.
const (
	FailureTimeout     = "timeout"
	FailureRejected    = "rejected"
	FailureNoAccount   = "no_account"
	FailureCancelled   = "cancelled"
	FailureUnavailable = "unavailable"
	FailureOther       = "other"
)

// Transfer dispatch paths.
const (
	PathBackend  = "backend"
	PathDemo     = "demo"
	PathWallet   = "wallet"
	PathFallback = "fallback"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// Backend HTTP metrics
	backendCallsTotal   atomic.Int64
	backendErrorsTotal  atomic.Int64
	backendLatencyNanos atomic.Int64

	// Connection metrics
	connectAttempts atomic.Int64
	winsResult      atomic.Int64
	winsEvent       atomic.Int64
	winsPoll        atomic.Int64
	winsExisting    atomic.Int64
	failTimeout     atomic.Int64
	failRejected    atomic.Int64
	failNoAccount   atomic.Int64
	failCancelled   atomic.Int64
	failUnavailable atomic.Int64
	failOther       atomic.Int64

	// Transfer metrics
	transfersBackend  atomic.Int64
	transfersDemo     atomic.Int64
	transfersWallet   atomic.Int64
	transfersFallback atomic.Int64
	transferErrors    atomic.Int64
}

// Global is the global metrics instance.
// Use this for recording metrics throughout the application.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordBackendCall records a backend call with its duration and success status.
func (m *Metrics) RecordBackendCall(duration time.Duration, err error) {
	m.backendCallsTotal.Add(1)
	m.backendLatencyNanos.Add(duration.Nanoseconds())

	if err != nil {
		m.backendErrorsTotal.Add(1)
	}
}

// RecordConnectAttempt records the start of a connection attempt.
func (m *Metrics) RecordConnectAttempt() {
	m.connectAttempts.Add(1)
}

// RecordConnectWin records which signal resolved a connection.
func (m *Metrics) RecordConnectWin(signal string) {
	switch signal {
	case SignalResult:
		m.winsResult.Add(1)
	case SignalEvent:
		m.winsEvent.Add(1)
	case SignalPoll:
		m.winsPoll.Add(1)
	case SignalExisting:
		m.winsExisting.Add(1)
	}
}

// RecordConnectFailure records a failed or cancelled connection.
func (m *Metrics) RecordConnectFailure(class string) {
	switch class {
	case FailureTimeout:
		m.failTimeout.Add(1)
	case FailureRejected:
		m.failRejected.Add(1)
	case FailureNoAccount:
		m.failNoAccount.Add(1)
	case FailureCancelled:
		m.failCancelled.Add(1)
	case FailureUnavailable:
		m.failUnavailable.Add(1)
	default:
		m.failOther.Add(1)
	}
}

// RecordTransfer records a transfer submission on the given path.
func (m *Metrics) RecordTransfer(path string, err error) {
	switch path {
	case PathBackend:
		m.transfersBackend.Add(1)
	case PathDemo:
		m.transfersDemo.Add(1)
	case PathWallet:
		m.transfersWallet.Add(1)
	case PathFallback:
		m.transfersFallback.Add(1)
	}
	if err != nil {
		m.transferErrors.Add(1)
	}
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	BackendCallsTotal   int64 `json:"backend_calls_total"`
	BackendErrorsTotal  int64 `json:"backend_errors_total"`
	BackendLatencyNanos int64 `json:"backend_latency_nanos"`

	ConnectAttempts int64            `json:"connect_attempts"`
	ConnectWins     map[string]int64 `json:"connect_wins"`
	ConnectFailures map[string]int64 `json:"connect_failures"`

	Transfers      map[string]int64 `json:"transfers"`
	TransferErrors int64            `json:"transfer_errors"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		BackendCallsTotal:   m.backendCallsTotal.Load(),
		BackendErrorsTotal:  m.backendErrorsTotal.Load(),
		BackendLatencyNanos: m.backendLatencyNanos.Load(),
		ConnectAttempts:     m.connectAttempts.Load(),
		ConnectWins: map[string]int64{
			SignalResult:   m.winsResult.Load(),
			SignalEvent:    m.winsEvent.Load(),
			SignalPoll:     m.winsPoll.Load(),
			SignalExisting: m.winsExisting.Load(),
		},
		ConnectFailures: map[string]int64{
			FailureTimeout:     m.failTimeout.Load(),
			FailureRejected:    m.failRejected.Load(),
			FailureNoAccount:   m.failNoAccount.Load(),
			FailureCancelled:   m.failCancelled.Load(),
			FailureUnavailable: m.failUnavailable.Load(),
			FailureOther:       m.failOther.Load(),
		},
		Transfers: map[string]int64{
			PathBackend:  m.transfersBackend.Load(),
			PathDemo:     m.transfersDemo.Load(),
			PathWallet:   m.transfersWallet.Load(),
			PathFallback: m.transfersFallback.Load(),
		},
		TransferErrors: m.transferErrors.Load(),
	}
}

// BackendCallsTotal returns the total number of backend calls made.
func (m *Metrics) BackendCallsTotal() int64 {
	return m.backendCallsTotal.Load()
}

// BackendErrorsTotal returns the total number of failed backend calls.
func (m *Metrics) BackendErrorsTotal() int64 {
	return m.backendErrorsTotal.Load()
}

// BackendLatencyAvgMs returns the average backend latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) BackendLatencyAvgMs() float64 {
	calls := m.backendCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	nanos := m.backendLatencyNanos.Load()
	return float64(nanos) / float64(calls) / 1e6
}

// ConnectSuccessRate returns resolved connections as a percentage (0-100)
// of attempts. Returns 0 if no attempts were made.
func (m *Metrics) ConnectSuccessRate() float64 {
	attempts := m.connectAttempts.Load()
	if attempts == 0 {
		return 0
	}
	wins := m.winsResult.Load() + m.winsEvent.Load() + m.winsPoll.Load() + m.winsExisting.Load()
	return float64(wins) / float64(attempts) * 100
}

// Reset resets all metrics to zero.
// Useful for testing.
func (m *Metrics) Reset() {
	for _, c := range []*atomic.Int64{
		&m.backendCallsTotal, &m.backendErrorsTotal, &m.backendLatencyNanos,
		&m.connectAttempts,
		&m.winsResult, &m.winsEvent, &m.winsPoll, &m.winsExisting,
		&m.failTimeout, &m.failRejected, &m.failNoAccount, &m.failCancelled, &m.failUnavailable, &m.failOther,
		&m.transfersBackend, &m.transfersDemo, &m.transfersWallet, &m.transfersFallback, &m.transferErrors,
	} {
		c.Store(0)
	}
}
