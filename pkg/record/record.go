// Package record persists step-test telemetry samples.
package record

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Sample is one control-loop iteration's worth of telemetry.
type Sample struct {
	Time     float64 // seconds since test start
	Desired  float64 // commanded position, revolutions
	Position float64 // measured position, revolutions
	Velocity float64 // measured velocity, rev/s
	Torque   float64 // measured torque, N·m
	Mode     int
	Fault    int
}

// Recorder receives one sample per control iteration.
type Recorder interface {
	Add(Sample) error
	Close() error
}

// Header is the fixed CSV column order.
var Header = []string{
	"time",
	"desired_position",
	"position",
	"velocity",
	"torque",
	"mode",
	"fault",
}

// CSV writes samples to a CSV file, one row per sample.
type CSV struct {
	file *os.File
	w    *csv.Writer
}

// NewCSV creates (or truncates) path and writes the header row.
func NewCSV(path string) (*CSV, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(Header); err != nil {
		file.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	return &CSV{file: file, w: w}, nil
}

// Add appends one row.
func (c *CSV) Add(s Sample) error {
	row := []string{
		ftoa(s.Time),
		ftoa(s.Desired),
		ftoa(s.Position),
		ftoa(s.Velocity),
		ftoa(s.Torque),
		strconv.Itoa(s.Mode),
		strconv.Itoa(s.Fault),
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	return nil
}

// Close flushes buffered rows and closes the file.
func (c *CSV) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.file.Close()
		return fmt.Errorf("flush output: %w", err)
	}
	if err := c.file.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Memory keeps samples in a slice. It is the recorder tests use.
type Memory struct {
	Samples []Sample
}

func (m *Memory) Add(s Sample) error { m.Samples = append(m.Samples, s); return nil }
func (m *Memory) Close() error       { return nil }

// Multi fans samples out to several recorders.
type Multi []Recorder

// Add forwards the sample to every recorder, stopping at the first error.
func (m Multi) Add(s Sample) error {
	for _, r := range m {
		if err := r.Add(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every recorder and returns the first error seen.
func (m Multi) Close() error {
	var first error
	for _, r := range m {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
