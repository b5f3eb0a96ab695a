package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"teleop-bridge/internal/camera"
	"teleop-bridge/internal/config"
	"teleop-bridge/internal/control"
	"teleop-bridge/internal/gamepad"
	"teleop-bridge/internal/hub"
	"teleop-bridge/internal/link"
	"teleop-bridge/internal/logging"
	"teleop-bridge/internal/modes"
	"teleop-bridge/internal/server"
	"teleop-bridge/internal/telemetry"
)

var (
	runPrintOnly  bool
	runConfigPath string
	runSchemaPath string
	runLogFile    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the teleoperation bridge",
	Long:  "run connects the gamepad and serial radio, starts the command loop, and serves telemetry and camera frames over websockets.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.New()

		cfg, err := config.Load(runConfigPath, runSchemaPath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, logger)

		sessionID := uuid.NewString()
		recorder, cleanup, err := newRecorder(runPrintOnly, runLogFile, sessionID)
		if err != nil {
			return err
		}
		defer cleanup()

		port, portPath, err := link.OpenPort(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return err
		}
		defer port.Close()
		logger.Info("serial port open", "path", portPath, "baud", cfg.Serial.Baud)

		mon := link.NewMonitor(cfg.TX.HBTimeout())
		reader := link.NewReader(port, link.Tokens{
			Heartbeat:    cfg.Protocol.HBMsg,
			Timeout:      cfg.Protocol.TimeoutMsg,
			TimeoutClear: cfg.Protocol.TimeoutClearMsg,
		}, mon)
		wire := link.NewWriter(port)

		pad, err := gamepad.Open(gamepad.Options{
			Device:             cfg.Joystick.Device,
			DeadZone:           cfg.Joystick.DeadZone,
			InvertV:            cfg.Joystick.InvertV,
			InvertW:            cfg.Joystick.InvertW,
			TurnAxisCandidates: cfg.Joystick.TurnAxisCandidates,
		})
		if err != nil {
			return err
		}
		defer pad.Close()
		logger.Info("gamepad open", "path", pad.Path())

		state := pad.State()
		machine := modes.New(state, cfg.Modes.ComboHold(), cfg.Modes.StartSleep, modes.Combo{}, modes.Combo{})
		sender := control.NewSender(state, machine, mon, wire, control.Config{
			Period:       cfg.TX.Period(),
			HBTimeout:    cfg.TX.HBTimeout(),
			DefaultScale: cfg.Modes.SpeedDefaultScale,
			BoostScale:   cfg.Modes.SpeedPlusScale,
		})

		frames := hub.New()
		builder := telemetry.NewBuilder(mon, machine, sender)
		srv := server.New(frames, builder, server.Config{
			PublishPeriod: cfg.WS.PublishPeriod(),
			FramePeriod:   cfg.Camera.FramePeriod(),
		})
		srv.Recorder = recorder

		go reader.Run(ctx)
		go func() {
			if err := pad.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("gamepad reader stopped", "error", err)
			}
		}()
		go sender.Run(ctx)
		go srv.Broadcast(ctx)

		if cfg.Camera.StreamURL != "" {
			go func() {
				src, err := camera.OpenMJPEG(ctx, cfg.Camera.StreamURL)
				if err != nil {
					logger.Error("camera source unavailable", "url", cfg.Camera.StreamURL, "error", err)
					return
				}
				defer src.Close()
				if err := camera.NewProducer(src, frames).Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error("camera producer stopped", "error", err)
				}
			}()
		}

		logger.Info("bridge started", "session", sessionID)
		if err := srv.Start(ctx, cfg.WS.Addr()); err != nil && err != http.ErrServerClosed {
			return err
		}
		logger.Info("bridge stopped")
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	runCmd.Flags().StringVar(&runConfigPath, "config", "config/bridge.yaml", "Path to bridge configuration YAML")
	runCmd.Flags().StringVar(&runSchemaPath, "schema", "schemas/bridge.cue", "Path to CUE schema file")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Path to export telemetry snapshots (JSONL)")
}
