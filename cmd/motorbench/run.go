package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gwillem/motorbench/pkg/device"
	"github.com/gwillem/motorbench/pkg/record"
	"github.com/gwillem/motorbench/pkg/steptest"
)

type RunCommand struct {
	Output        string        `short:"o" long:"output" default:"data.csv" description:"Location to store output CSV file"`
	SQLite        string        `long:"sqlite" description:"Also record samples to this SQLite database"`
	StepTime      time.Duration `long:"step-time" default:"2s" description:"Duration of each position plateau"`
	Divisions     int           `long:"divisions" default:"6" description:"Position steps per revolution"`
	AccelLimit    float64       `long:"accel-limit" default:"2.0" description:"Acceleration limit (rev/s²)"`
	VelocityLimit float64       `long:"velocity-limit" default:"5.0" description:"Velocity limit (rev/s)"`
	Hz            int           `long:"hz" default:"100" description:"Control loop frequency"`
	Sim           bool          `long:"sim" description:"Run against a simulated controller (no hardware)"`
	TUI           bool          `long:"tui" description:"Show a live telemetry chart"`
	Port          string        `long:"port" description:"Serial port (overrides saved config)"`
	ID            int           `long:"id" description:"Servo ID (overrides saved config)"`
}

func (c *RunCommand) Execute(args []string) error {
	ctx := context.Background()

	ctrl, err := c.controller(ctx)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	recorder, err := c.recorder()
	if err != nil {
		return err
	}

	runner := steptest.NewRunner(ctrl, recorder, steptest.Config{
		StepTime:      c.StepTime,
		Divisions:     c.Divisions,
		AccelLimit:    c.AccelLimit,
		VelocityLimit: c.VelocityLimit,
		Hz:            c.Hz,
	})

	if c.TUI {
		err = runTUI(ctx, runner)
	} else {
		err = runPlain(ctx, runner)
	}

	closeErr := recorder.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}

	if !c.TUI {
		fmt.Printf("Wrote %s\n", c.Output)
	}
	return nil
}

func (c *RunCommand) controller(ctx context.Context) (device.Controller, error) {
	if c.Sim {
		// Start the simulated shaft away from zero so the re-zero step
		// is visible in the recorded data.
		return device.NewSim(device.SimConfig{StartPosition: 0.25}), nil
	}

	cfg := &device.Config{ID: 1}
	if device.ConfigExists() {
		loaded, err := device.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if c.Port != "" {
		cfg.Port = c.Port
	}
	if c.ID != 0 {
		cfg.ID = c.ID
	}
	if cfg.Port == "" {
		fmt.Fprintln(os.Stderr, "No controller configured. Run 'motorbench setup' first, or pass --port.")
		os.Exit(1)
	}

	ctrl, err := device.NewFeetech(ctx, device.FeetechConfig{
		Port:         cfg.Port,
		ID:           cfg.ID,
		BaudRate:     cfg.BaudRate,
		CountsPerRev: cfg.CountsPerRev,
	})
	if err != nil {
		return nil, fmt.Errorf("connect controller: %w", err)
	}
	return ctrl, nil
}

func (c *RunCommand) recorder() (record.Recorder, error) {
	csv, err := record.NewCSV(c.Output)
	if err != nil {
		return nil, err
	}
	if c.SQLite == "" {
		return csv, nil
	}

	db, err := record.NewSQLite(c.SQLite)
	if err != nil {
		csv.Close()
		return nil, err
	}
	return record.Multi{csv, db}, nil
}

func runPlain(ctx context.Context, runner *steptest.Runner) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- runner.Start(ctx)
	}()

	for {
		select {
		case s := <-runner.States():
			fmt.Printf("\r%0.2f desired=%.3f pos=%.3f vel=%5.2f torque=%5.2f",
				s.Time, s.Desired, s.Position, s.Velocity, s.Torque)
		case msg := <-runner.Logs():
			fmt.Fprintln(os.Stderr, msg)
		case err := <-errCh:
			fmt.Println()
			return err
		}
	}
}
