// Package control runs the fixed-rate command loop that turns stick state
// into outbound serial lines.
package control

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"teleop-bridge/internal/logging"
)

// AxisSource yields the current normalized axis pair in [-1, 1].
type AxisSource interface {
	Axes() (v, w float64)
}

// ModeSource is the slice of the mode machine the sender depends on.
type ModeSource interface {
	Update(now time.Time)
	Sleep() bool
	SpeedBoost() bool
}

// LinkState is the slice of the link monitor the sender depends on.
type LinkState interface {
	HeartbeatAge() time.Duration
	MarkSend()
}

// LineWriter sends one line-terminated message to the vehicle.
type LineWriter interface {
	WriteLine(line string) error
}

// Config holds the sender's tuning.
type Config struct {
	Period       time.Duration // 1 / max command rate
	HBTimeout    time.Duration // stale-link gate
	DefaultScale float64       // forward scale, boost off
	BoostScale   float64       // forward scale, boost on
}

// Sender computes and transmits the control line each tick. The effective
// v/w pair is always updated, even on gated ticks, so telemetry keeps
// showing operator intent while commands are withheld.
type Sender struct {
	axes  AxisSource
	modes ModeSource
	link  LinkState
	out   LineWriter
	cfg   Config

	mu   sync.Mutex
	vEff float64
	wEff float64

	now func() time.Time
}

// NewSender wires a sender to its collaborators.
func NewSender(axes AxisSource, modes ModeSource, link LinkState, out LineWriter, cfg Config) *Sender {
	return &Sender{axes: axes, modes: modes, link: link, out: out, cfg: cfg, now: time.Now}
}

// Run ticks at the configured period until the context is done.
func (s *Sender) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting command sender", "period", s.cfg.Period, "hb_timeout", s.cfg.HBTimeout)
	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			log.Info("stopping command sender")
			return
		}
	}
}

// tick performs one cycle: poll modes, compute effective motion, then gate
// and transmit. Sleep wins over the stale-link check; both are send-time
// gates so the computed v/w is published either way.
func (s *Sender) tick(ctx context.Context) {
	now := s.now()
	s.modes.Update(now)

	rawV, rawW := s.axes.Axes()
	scale := s.cfg.DefaultScale
	if s.modes.SpeedBoost() {
		scale = s.cfg.BoostScale
	}
	v := round3(rawV * scale)
	w := round3(rawW)

	s.mu.Lock()
	s.vEff, s.wEff = v, w
	s.mu.Unlock()

	if s.modes.Sleep() {
		return
	}
	if s.link.HeartbeatAge() > s.cfg.HBTimeout {
		return
	}

	if err := s.out.WriteLine(FormatLine(v, w)); err != nil {
		logging.FromContext(ctx).Error("command write failed", "err", err)
		return
	}
	s.link.MarkSend()
}

// Effective returns the last computed effective v/w pair.
func (s *Sender) Effective() (v, w float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vEff, s.wEff
}

// FormatLine renders the wire form "<v>,<w>" with up to three decimals.
func FormatLine(v, w float64) string {
	return fmt.Sprintf("%s,%s", formatValue(v), formatValue(w))
}

func formatValue(x float64) string {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if s == "0" || s == "-0" {
		return "0.0"
	}
	return s
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
