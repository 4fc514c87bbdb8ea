package rawi2c

import "strings"

const (
	edidLen = 128

	// Detailed timing / display descriptor blocks live at these offsets.
	descriptorStart = 54
	descriptorLen   = 18
	descriptorCount = 4

	tagProductName byte = 0xFC
)

// productName extracts the monitor name display descriptor (tag 0xFC) from a
// base EDID block. It returns "" when none is present.
func productName(edid []byte) string {
	if len(edid) < edidLen {
		return ""
	}
	for i := 0; i < descriptorCount; i++ {
		d := edid[descriptorStart+i*descriptorLen : descriptorStart+(i+1)*descriptorLen]
		// Display descriptors start 00 00 00 TAG; timing descriptors have a
		// non-zero pixel clock in bytes 0-1.
		if d[0] != 0 || d[1] != 0 || d[2] != 0 || d[3] != tagProductName {
			continue
		}
		text := d[5:]
		if idx := strings.IndexByte(string(text), 0x0A); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(string(text))
	}
	return ""
}
