/*
Package log provides structured logging for zerocon using zerolog.

A single global Logger is configured once by Init from the config file and
command line flags. Packages derive child loggers that carry a component
field, and the stores and resources add the resource they mirror:

	logger := log.WithResource("store", "check")
	logger.Debug().Int("page", 2).Msg("Traversed")

	{"level":"debug","component":"store","resource":"check","page":2,
	 "time":"2024-05-01T12:30:05Z","message":"Traversed"}

# Output

Logs go to stderr so that list commands can be piped. The console writer
is used unless log_json is set:

	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})

ParseLevel accepts trace, debug, info, warn and error, and falls back to
info for anything else.

# Levels

	trace  loader and dispatch details, every push frame
	debug  syncs, reconnect scheduling, ignored actions
	info   completed mutations, event channel connects
	warn   dropped frames, unreadable view state
	error  failed requests, expired sessions, callback panics

Child loggers are created when a component is built. Init must run before
that, which the CLI does in its persistent pre-run hook.
*/
package log
