// Package logging builds the daemon's log/slog logger from the logging
// config section. Entries are JSON (or text) and carry service and version
// attributes; file output is rotated with lumberjack.
//
//	logging:
//	  level: info        # debug adds source positions
//	  format: json       # or text
//	  output: file       # stdout, stderr, file
//	  file:
//	    path: /var/log/autobrightness/autobrightness.log
//	    max_size: 10     # MB
//	    max_backups: 3
//	    max_age: 28      # days
//
// Components take a child logger:
//
//	log := logging.New(cfg.Logging, version).With("component", "scheduler")
package logging
