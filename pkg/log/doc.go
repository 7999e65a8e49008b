/*
Package log wraps zerolog with the component-scoped child loggers the
reconciliation core's components use for structured, grep-able output.

# Initialization

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true, // PULLPIRI_ENV=production selects this via pkg/config
	})

# Component Loggers

Each component constructs its own child logger once, at startup, and
reuses it:

	logger := log.WithComponent("statemachine")
	logger.Info().Str("resource_key", key).Msg("transition committed")

Narrower helpers exist for the identifiers that recur across a single
operation's log lines:

	log.WithNodeID(nodeID)
	log.WithResourceKey(resourceKey)
	log.WithTransitionID(transitionID)

# Operation Helpers

OperationStart/OperationSuccess/OperationError bracket a unit of work
with a consistent message shape, so the same operation name greps
cleanly across its start, success, and failure lines:

	log.OperationStart(logger, "apply_transition")
	if err != nil {
		log.OperationError(logger, "apply_transition", err)
		return err
	}
	log.OperationSuccess(logger, "apply_transition")

# Package-Level Shortcuts

Info/Debug/Warn/Error/Fatal write to the global Logger without a
component tag — reserved for main()'s own startup/shutdown lines; every
other call site should go through a component logger instead.
*/
package log
