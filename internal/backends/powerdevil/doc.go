// Package powerdevil controls display brightness through the KDE Plasma
// ScreenBrightness service on the session bus.
//
// The service can see displays DDC/CI cannot (laptop panels, monitors behind
// docks that block DDC), so the registry treats it as the preferred backend
// for brightness. It knows nothing about other VCP features.
//
// Brightness on the bus is in the service's native units (MaxBrightness is
// commonly 10000). The driver converts to and from percent, rounding toward
// zero, so a set followed by a get may read back one point low.
package powerdevil
