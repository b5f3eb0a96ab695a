// Package telemetry defines the observer-facing status snapshot and its
// builder. Snapshots are immutable values computed on demand; nothing here
// is persisted.
package telemetry

import (
	"encoding/json"
	"math"
	"time"
)

// Placeholder sensor readings until the vehicle reports real ones.
const (
	PlaceholderBatteryPct   = 100
	PlaceholderTemperatureC = 25
	PlaceholderAirQuality   = 95
)

// Snapshot is one status message on the telemetry route. The field set and
// JSON keys are the wire contract with observer clients.
type Snapshot struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds

	// Modes
	Sleep     bool `json:"sleep"`
	SpeedPlus bool `json:"speed_plus"`

	// Link
	LoraConnected bool    `json:"lora_connected"`
	LinkQuality   int     `json:"link_quality"` // 0..100
	TxRateHz      float64 `json:"tx_rate_hz"`   // trailing 3s average
	RxHBAgeS      float64 `json:"rx_hb_age_s"`

	// Motion (what the sender is emitting, or would emit)
	V float64 `json:"v"`
	W float64 `json:"w"`

	// Static placeholders, no sensors wired yet
	BatteryPct   int `json:"battery_pct"`
	TemperatureC int `json:"temperature_c"`
	AirQuality   int `json:"air_quality"`
}

// MarshalJSONLine renders the snapshot as a single compact JSON message.
func (s Snapshot) MarshalJSONLine() ([]byte, error) {
	return json.Marshal(s)
}

// LinkStatus is the link-health slice the builder reads.
type LinkStatus interface {
	Connected() bool
	Quality() int
	TxRateHz() float64
	HeartbeatAge() time.Duration
}

// ModeStatus is the mode slice the builder reads.
type ModeStatus interface {
	Sleep() bool
	SpeedBoost() bool
}

// MotionStatus is the command-sender slice the builder reads.
type MotionStatus interface {
	Effective() (v, w float64)
}

// Builder assembles snapshots from the live components. Each source has its
// own single writer; the builder only takes point-in-time reads.
type Builder struct {
	link   LinkStatus
	modes  ModeStatus
	motion MotionStatus
	now    func() time.Time
}

// NewBuilder wires a builder to its sources.
func NewBuilder(link LinkStatus, modes ModeStatus, motion MotionStatus) *Builder {
	return &Builder{link: link, modes: modes, motion: motion, now: time.Now}
}

// Snapshot computes one immutable status value.
func (b *Builder) Snapshot() Snapshot {
	v, w := b.motion.Effective()
	return Snapshot{
		Type:          "telemetry",
		Timestamp:     b.now().UnixMilli(),
		Sleep:         b.modes.Sleep(),
		SpeedPlus:     b.modes.SpeedBoost(),
		LoraConnected: b.link.Connected(),
		LinkQuality:   b.link.Quality(),
		TxRateHz:      b.link.TxRateHz(),
		RxHBAgeS:      round3(b.link.HeartbeatAge().Seconds()),
		V:             v,
		W:             w,
		BatteryPct:    PlaceholderBatteryPct,
		TemperatureC:  PlaceholderTemperatureC,
		AirQuality:    PlaceholderAirQuality,
	}
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
