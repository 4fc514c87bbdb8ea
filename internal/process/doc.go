// Package process runs short-lived external commands with a hard time bound.
//
// Every invocation gets its own process group and a deadline. When the
// deadline passes, or the caller's context is cancelled, the whole group is
// killed so a hung helper (and anything it spawned) cannot stall the daemon.
//
// Example usage:
//
//	r := process.NewRunner(5 * time.Second)
//	out, err := r.Run(ctx, "ddcutil", "detect", "--brief")
//	switch {
//	case errors.Is(err, process.ErrNotInstalled):
//	    // tool missing
//	case errors.Is(err, process.ErrTimeout):
//	    // device did not answer in time
//	}
package process
