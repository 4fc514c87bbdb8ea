// Package rawi2c speaks DDC/CI directly over Linux I2C character devices.
//
// It exists for displays the bus-level tool cannot enumerate, typically on
// GPU drivers that expose I2C adapters without the sysfs link from bus to
// DRM connector. Only adapters whose name matches a vendor filter are probed,
// and only buses no other backend has claimed.
//
// Wire format (VESA DDC/CI):
//
//	Get request  51 82 01 CC chk
//	Set request  51 84 03 CC hi lo chk
//	Get reply    6E 88 02 RC CC TP mh ml ch cl chk
//
// Request checksums XOR every byte with the destination address 0x6E. A
// reply is read after a fixed delay of at least 40ms.
//
// The driver only exposes brightness. All OS errors are converted to error
// values wrapping monitor.ErrNoReply.
package rawi2c
