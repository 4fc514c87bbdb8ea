package rawi2c

import (
	"errors"
	"fmt"
)

// DDC/CI constants (VESA DDC/CI standard v1.1).
const (
	// AddrDDC is the 7-bit slave address of the display's DDC/CI endpoint.
	AddrDDC uint16 = 0x37

	// AddrEDID is the 7-bit slave address of the EDID EEPROM.
	AddrEDID uint16 = 0x50

	// hostAddr is the source address byte the host puts in every request.
	hostAddr byte = 0x51

	// destAddr is the display's 8-bit write address (0x37<<1). It is not sent
	// but seeds the request checksum.
	destAddr byte = 0x6E

	// replySeed seeds the checksum of display replies (host 8-bit address 0x50).
	replySeed byte = 0x50

	// lengthFlag marks the length byte of every DDC/CI message.
	lengthFlag byte = 0x80

	opGetVCP      byte = 0x01
	opGetVCPReply byte = 0x02
	opSetVCP      byte = 0x03

	// getReplyLen is the size of a VCP Get reply including its checksum.
	getReplyLen = 11
)

// errBadReply marks a reply whose framing does not match a VCP Get reply.
var errBadReply = errors.New("malformed VCP reply")

// checksum XORs seed with every byte of p.
func checksum(seed byte, p []byte) byte {
	c := seed
	for _, b := range p {
		c ^= b
	}
	return c
}

// getRequest builds the 5-byte VCP Get frame for code.
func getRequest(code byte) []byte {
	frame := []byte{hostAddr, lengthFlag | 2, opGetVCP, code, 0}
	frame[4] = checksum(destAddr, frame[:4])
	return frame
}

// setRequest builds the 7-byte VCP Set frame for code with a big-endian value.
func setRequest(code byte, value uint16) []byte {
	frame := []byte{hostAddr, lengthFlag | 4, opSetVCP, code, byte(value >> 8), byte(value), 0}
	frame[6] = checksum(destAddr, frame[:6])
	return frame
}

// vcpReply is a decoded VCP Get reply.
type vcpReply struct {
	code    byte
	max     uint16
	current uint16
}

// parseGetReply decodes an 11-byte VCP Get reply:
//
//	[src, len, 0x02, result, code, type, maxHi, maxLo, curHi, curLo, chk]
//
// Any framing mismatch (opcode, result code, feature) is an error. The reply
// checksum is reported separately because some displays get it wrong.
func parseGetReply(p []byte, code byte) (vcpReply, bool, error) {
	if len(p) < getReplyLen {
		return vcpReply{}, false, fmt.Errorf("%w: %d bytes", errBadReply, len(p))
	}
	if p[1]&lengthFlag == 0 {
		return vcpReply{}, false, fmt.Errorf("%w: length byte 0x%02X", errBadReply, p[1])
	}
	if p[2] != opGetVCPReply {
		return vcpReply{}, false, fmt.Errorf("%w: opcode 0x%02X", errBadReply, p[2])
	}
	if p[3] != 0x00 {
		return vcpReply{}, false, fmt.Errorf("%w: result code 0x%02X (unsupported feature)", errBadReply, p[3])
	}
	if p[4] != code {
		return vcpReply{}, false, fmt.Errorf("%w: feature 0x%02X, want 0x%02X", errBadReply, p[4], code)
	}

	r := vcpReply{
		code:    p[4],
		max:     uint16(p[6])<<8 | uint16(p[7]),
		current: uint16(p[8])<<8 | uint16(p[9]),
	}
	checksumOK := checksum(replySeed, p[:getReplyLen-1]) == p[getReplyLen-1]
	return r, checksumOK, nil
}
