// Package monitor is the monitor abstraction and control layer.
//
// Three backends see overlapping subsets of the connected displays:
//
//   - the desktop brightness service sees panels and some externals but only
//     offers brightness
//   - bus-level DDC/CI (ddcutil) offers every VCP feature but cannot see every
//     display
//   - raw I2C DDC/CI recovers displays on buses the bus-level tool cannot map,
//     brightness only
//
// Registry.Detect merges them into one Snapshot of logical monitors and links
// desktop and DDC/CI records that describe the same screen (see Link). Every
// read and write then goes through the Registry, which routes by monitor id:
//
//	┌──────────────┐     ┌──────────────────────────────┐
//	│  Scheduler   │────▶│          Registry            │
//	│  API / MQTT  │     │  Detect → Snapshot (atomic)  │
//	└──────────────┘     │  Get/Set brightness and VCP  │
//	                     └──────┬────────┬────────┬─────┘
//	                            ▼        ▼        ▼
//	                        desktop   ddcutil   raw i2c
//
// Brightness is always exchanged in percent. Non-brightness features require
// a DDC/CI bus; asking for one on a desktop-only monitor yields ErrNoDDC.
//
// Drivers report failures as error values and never panic. A failing display
// does not affect operations on the others.
package monitor
