package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Setup SetupCommand `command:"setup" description:"Scan serial ports for a controller and save its port"`
	Run   RunCommand   `command:"run" description:"Run the step-position test and record telemetry"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "motorbench - scripted step-position test bench for servo controllers"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
