// Package logging provides structured logging for trafficward.
//
// # Overview
//
// The logging package wraps log/slog with configuration-driven level and
// format selection. All components receive a *slog.Logger scoped with a
// "component" attribute so log lines can be traced back to the accounting
// engine, threshold evaluator, firewall controller, and so on.
//
// # Formats
//
//   - json: machine-readable, one JSON object per line (default for services)
//   - text: slog's logfmt-style key=value output
//   - console: human-readable output for interactive CLI use
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "console",
//	})
//	if err != nil {
//	    return err
//	}
//	log := logger.With("component", "accounting")
//	log.Info("cycle usage computed", "billable_bytes", total.Billable)
package logging
