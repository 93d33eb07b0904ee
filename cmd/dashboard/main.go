package main

import (
	"os"

	"archops-sim/internal/dashboard"
	"archops-sim/internal/logging"
)

// dashboard renders the Grafana JSON into the directory named by the first
// argument, or ./build.
func main() {
	log := logging.New()
	out := "build"
	if len(os.Args) > 1 {
		out = os.Args[1]
	}
	if err := dashboard.Render(out); err != nil {
		log.Error("render dashboards", "err", err)
		os.Exit(1)
	}
	log.Info("dashboards written", "dir", out)
}
