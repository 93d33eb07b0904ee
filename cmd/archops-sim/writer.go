package main

import (
	"archops-sim/internal/config"
	"archops-sim/internal/sink"
)

// newWriters sets up the sink fan-out for a run. Interactive runs get a
// terminal sink (the TUI, or STDOUT when no remote store is configured);
// headless runs only write the log file and the remote sinks.
// Closing the returned writer releases every sink.
func newWriters(cfg *config.SimulationConfig, interactive bool) (*sink.MultiWriter, error) {
	out := cfg.Outputs
	remote := !out.PrintOnly
	mw := sink.NewMultiWriter()

	if interactive {
		switch {
		case out.TUI:
			mw.Add(sink.NewTUIWriter(cfg))
		case !remote || out.Greptime.Endpoint == "":
			mw.Add(sink.NewStdoutWriter(cfg))
		}
	}
	if remote && out.Greptime.Endpoint != "" {
		gw, err := sink.NewGreptimeDBWriter(out.Greptime.Endpoint, out.Greptime.Database)
		if err != nil {
			mw.Close()
			return nil, err
		}
		mw.Add(gw)
	}
	if remote && len(out.Kafka.Brokers) > 0 {
		kw, err := sink.NewKafkaWriter(out.Kafka.Brokers, out.Kafka.Topic)
		if err != nil {
			mw.Close()
			return nil, err
		}
		mw.Add(kw)
	}
	if out.LogFile != "" {
		fw, err := sink.NewFileWriterFromBase(out.LogFile)
		if err != nil {
			mw.Close()
			return nil, err
		}
		mw.Add(fw)
	}
	return mw, nil
}

// newReplayWriter chooses where replayed state rows go. The log file is
// never reopened so the input cannot be truncated by its own replay.
func newReplayWriter(cfg *config.SimulationConfig, printOnly bool) (*sink.MultiWriter, error) {
	c := *cfg
	c.Outputs.PrintOnly = c.Outputs.PrintOnly || printOnly
	c.Outputs.TUI = false
	c.Outputs.LogFile = ""
	return newWriters(&c, true)
}
