//go:build !linux

package rawi2c

import "errors"

// DevOpener opens /dev/i2c-N character devices. Only Linux is supported.
type DevOpener struct {
	DevDir string
}

// Open always fails outside Linux.
func (DevOpener) Open(string) (Bus, error) {
	return nil, errors.New("raw i2c access requires linux")
}
