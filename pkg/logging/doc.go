// Package logging configures the structured loggers used across stubd.
//
// It wraps log/slog. Components accept a *slog.Logger through an option and
// fall back to Nop when none is given:
//
//	log := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatJSON,
//	})
//	log.Info("stubs loaded", "stubs", 12)
package logging
