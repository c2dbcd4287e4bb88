// Package logging provides structured logging for the device hub.
//
// It wraps log/slog: JSON output for deployments, text output for bench work,
// level filtering, and default service/version fields on every entry.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Components take a child logger tagged with their name:
//
//	log := logging.New(cfg.Logging, version)
//	monLog := log.Component("monitor")
//	monLog.Info("monitor started", "key", key)
//
// Never log broker passwords or tokens.
package logging
