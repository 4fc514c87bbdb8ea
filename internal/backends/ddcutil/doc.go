// Package ddcutil is the bus-level DDC/CI backend. It drives the ddcutil
// command line tool and parses its text output.
//
// Commands used:
//
//	ddcutil detect --brief
//	ddcutil --bus N capabilities
//	ddcutil --bus N getvcp XX
//	ddcutil --bus N setvcp XX VALUE
//
// Monitor ids are the I2C bus numbers. Every invocation is bounded by the
// runner's timeout and serialised per bus through the shared monitor.BusLocks.
package ddcutil
