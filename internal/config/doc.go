// Package config loads and validates the signalslot configuration.
//
// Configuration is resolved in three layers, higher layers overriding lower:
//
//  1. Built-in defaults (Default)
//  2. The configuration file, TOML or YAML by extension
//  3. Environment variables prefixed with SIGNALSLOT_
//
// A missing configuration file is not an error; the defaults and the
// environment still apply.
//
// # Basic Usage
//
//	cfg, err := config.Load("signalslot.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Logging.Level)
//
// # Environment Variables
//
// Every setting can be overridden as SIGNALSLOT_<SECTION>_<KEY>, for example
// SIGNALSLOT_DISPATCHER_QUEUE_WARN_THRESHOLD=64. A few settings also have a
// shorthand:
//
//	SIGNALSLOT_LOG_LEVEL     logging.level
//	SIGNALSLOT_LOG_FORMAT    logging.format
//	SIGNALSLOT_LOG_OUTPUT    logging.output
//	SIGNALSLOT_SCRIPT        script.path
//
// # Live Reload
//
// The watcher sub-package reloads the file when it changes and emits the
// result on signals, so configuration consumers are ordinary slots.
package config
