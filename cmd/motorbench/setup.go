package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/motorbench/pkg/device"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct{}

// candidate is one servo found during the port scan.
type candidate struct {
	port  string
	servo feetech.FoundServo
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Motorbench Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━"))
	fmt.Println()

	fmt.Println("Scanning serial ports for servos...")
	fmt.Println()

	candidates := findServos()
	if len(candidates) == 0 {
		fmt.Println("No servos found.")
		fmt.Println("Make sure the controller is connected and powered on.")
		os.Exit(1)
	}

	printCandidates(candidates)
	fmt.Println()

	chosen := chooseServo(candidates)

	cfg := device.Config{
		Port: chosen.port,
		ID:   chosen.servo.ID,
	}
	if chosen.servo.Model != nil {
		cfg.CountsPerRev = chosen.servo.Model.Resolution
	}

	if err := cfg.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", device.DefaultConfigFile)
	fmt.Println()
	fmt.Println("Run the step test with: " + headerStyle.Render("motorbench run"))

	return nil
}

func findServos() []candidate {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var candidates []candidate

	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

		bus, err := feetech.NewBus(feetech.BusConfig{
			Port:     port,
			BaudRate: 1_000_000,
			Protocol: feetech.ProtocolSTS,
			Timeout:  100 * time.Millisecond,
		})
		if err != nil {
			cancel()
			continue
		}

		// Broadcast discovery is fast; it only works on the STS protocol
		servos, err := bus.Discover(ctx)
		cancel()
		bus.Close()
		if err != nil {
			continue
		}

		for _, s := range servos {
			fmt.Printf("  Found servo ID %d on %s\n", s.ID, port)
			candidates = append(candidates, candidate{port: port, servo: s})
		}
	}

	return candidates
}

func printCandidates(candidates []candidate) {
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		model := "unknown"
		resolution := "-"
		if c.servo.Model != nil {
			model = c.servo.Model.Name
			resolution = fmt.Sprintf("%d", c.servo.Model.Resolution)
		}
		rows = append(rows, []string{
			c.port,
			fmt.Sprintf("%d", c.servo.ID),
			model,
			resolution,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Port", "ID", "Model", "Resolution").
		Rows(rows...)

	fmt.Println(t.Render())
}

func chooseServo(candidates []candidate) candidate {
	if len(candidates) == 1 {
		return candidates[0]
	}

	options := make([]huh.Option[int], 0, len(candidates))
	for i, c := range candidates {
		label := fmt.Sprintf("%s - servo ID %d", c.port, c.servo.ID)
		options = append(options, huh.NewOption(label, i))
	}

	var picked int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Which servo should motorbench drive?").
				Options(options...).
				Value(&picked),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	return candidates[picked]
}
