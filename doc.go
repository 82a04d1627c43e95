// Package motorbench drives a servo controller through a scripted
// step-position test and records the resulting telemetry.
//
// The test issues discrete position setpoints covering one motor
// revolution, polls the controller after each command, and writes time,
// commanded position, and measured position/velocity/torque plus status
// flags to a CSV file (and optionally a SQLite database).
//
// # Installation
//
//	go install github.com/gwillem/motorbench/cmd/motorbench@latest
//
// # Usage
//
// First, run setup to detect the controller and save its port:
//
//	motorbench setup
//
// Then run the step test:
//
//	motorbench run -o data.csv
//
// Use --sim to run against a simulated controller without hardware, and
// --tui for a live telemetry chart.
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/motorbench: CLI with setup and run commands
//   - pkg/device: controller abstraction, Feetech driver, simulator
//   - pkg/steptest: the step-position test loop
//   - pkg/record: CSV and SQLite telemetry recorders
package motorbench
