// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go — cold-path logging helper
//
// Purpose:
//   - Logs infrequent events (startup, shard completion, shutdown, failures)
//     without pulling fmt into the callers.
//
// Notes:
//   - Builds the line by concatenation and writes it in one call.
//
// ⚠️ Never invoke inside the point filter loop — cold paths only.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import "bealsearch/utils"

// DropError logs an error with a prefix tag. A nil error logs the prefix
// alone, which the callers use for tagged state transitions.
//
//go:inline
func DropError(prefix string, err error) {
	if err != nil {
		utils.PrintWarning(prefix + ": " + err.Error() + "\n")
	} else {
		utils.PrintWarning(prefix + "\n")
	}
}

// DropMessage logs a tagged message.
//
//go:inline
func DropMessage(prefix, message string) {
	utils.PrintWarning(prefix + ": " + message + "\n")
}
