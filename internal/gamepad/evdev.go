package gamepad

import (
	"context"
	"errors"
	"fmt"

	"github.com/holoplot/go-evdev"

	"teleop-bridge/internal/logging"
)

// turnAxisCodes maps the configurable candidate names onto evdev codes.
var turnAxisCodes = map[string]evdev.EvCode{
	"ABS_RX": evdev.ABS_RX,
	"ABS_RY": evdev.ABS_RY,
	"ABS_RZ": evdev.ABS_RZ,
	"ABS_X":  evdev.ABS_X,
	"ABS_Z":  evdev.ABS_Z,
}

// Options configure the device reader.
type Options struct {
	Device             string   // event device path, or "auto"
	DeadZone           float64
	InvertV, InvertW   bool
	TurnAxisCandidates []string // preferred turn-axis names, priority order
}

// Reader pumps evdev events into a State.
type Reader struct {
	dev   *evdev.InputDevice
	path  string
	state *State
	opts  Options

	turnCode evdev.EvCode
	absInfo  map[evdev.EvCode]evdev.AbsInfo
}

// Open opens the configured device, or probes for the first one exposing
// ABS_Y plus a turn-axis candidate when the path is "auto". Failure is fatal
// to the caller; the bridge is useless without operator input.
func Open(opts Options) (*Reader, error) {
	path := opts.Device
	if path == "" || path == "auto" {
		p, err := probe(opts.TurnAxisCandidates)
		if err != nil {
			return nil, err
		}
		path = p
	}
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gamepad: open %s: %w", path, err)
	}
	abs, err := dev.AbsInfos()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("gamepad: abs capabilities of %s: %w", path, err)
	}
	if _, ok := abs[evdev.ABS_Y]; !ok {
		dev.Close()
		return nil, fmt.Errorf("gamepad: %s has no ABS_Y axis", path)
	}
	turn, ok := pickTurnAxis(abs, opts.TurnAxisCandidates)
	if !ok {
		dev.Close()
		return nil, fmt.Errorf("gamepad: %s has no turn axis among %v", path, opts.TurnAxisCandidates)
	}
	return &Reader{
		dev:      dev,
		path:     path,
		state:    NewState(),
		opts:     opts,
		turnCode: turn,
		absInfo:  abs,
	}, nil
}

// State returns the shared input state fed by Run.
func (r *Reader) State() *State { return r.state }

// Path returns the opened device node.
func (r *Reader) Path() string { return r.path }

// Run pumps device events until the context ends or the device goes away.
// Close unblocks a pending read.
func (r *Reader) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	if name, err := r.dev.Name(); err == nil {
		log.Info("gamepad ready", "name", name, "path", r.path,
			"turn_axis", evdev.CodeName(evdev.EV_ABS, r.turnCode))
	}
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ev, err := r.dev.ReadOne()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("gamepad: read: %w", err)
		}
		r.handle(ev)
	}
}

func (r *Reader) handle(ev *evdev.InputEvent) {
	switch ev.Type {
	case evdev.EV_ABS:
		switch ev.Code {
		case evdev.ABS_Y:
			v := r.normalize(ev.Code, ev.Value)
			if r.opts.InvertV {
				v = -v
			}
			r.state.SetAxis(AxisForward, v)
		case r.turnCode:
			w := r.normalize(ev.Code, ev.Value)
			if r.opts.InvertW {
				w = -w
			}
			r.state.SetAxis(AxisTurn, w)
		}
	case evdev.EV_KEY:
		r.state.SetButton(evdev.CodeName(evdev.EV_KEY, ev.Code), ev.Value != 0)
	}
}

func (r *Reader) normalize(code evdev.EvCode, value int32) float64 {
	info, ok := r.absInfo[code]
	if !ok {
		return 0
	}
	return Normalize(value, info.Minimum, info.Maximum, r.opts.DeadZone)
}

// Close releases the device.
func (r *Reader) Close() error { return r.dev.Close() }

func pickTurnAxis(abs map[evdev.EvCode]evdev.AbsInfo, candidates []string) (evdev.EvCode, bool) {
	for _, name := range candidates {
		code, known := turnAxisCodes[name]
		if !known {
			continue
		}
		if _, ok := abs[code]; ok {
			return code, true
		}
	}
	// Last resort: the historical fixed order.
	for _, code := range []evdev.EvCode{evdev.ABS_RX, evdev.ABS_Z, evdev.ABS_RY} {
		if _, ok := abs[code]; ok {
			return code, true
		}
	}
	return 0, false
}

func probe(candidates []string) (string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return "", fmt.Errorf("gamepad: list devices: %w", err)
	}
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}
		abs, err := dev.AbsInfos()
		dev.Close()
		if err != nil {
			continue
		}
		if _, ok := abs[evdev.ABS_Y]; !ok {
			continue
		}
		if _, ok := pickTurnAxis(abs, candidates); ok {
			return p.Path, nil
		}
	}
	return "", errors.New("gamepad: no suitable input device found")
}
