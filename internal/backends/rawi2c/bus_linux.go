//go:build linux

package rawi2c

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// i2cSlave is I2C_SLAVE from linux/i2c-dev.h.
const i2cSlave = 0x0703

// DevOpener opens /dev/i2c-N character devices.
type DevOpener struct {
	DevDir string
}

// Open opens the device node for bus.
func (o DevOpener) Open(bus string) (Bus, error) {
	dir := o.DevDir
	if dir == "" {
		dir = "/dev"
	}
	path := filepath.Join(dir, "i2c-"+bus)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &devBus{file: f, addr: -1}, nil
}

type devBus struct {
	file *os.File
	addr int
}

func (b *devBus) target(addr uint16) error {
	if b.addr == int(addr) {
		return nil
	}
	if err := unix.IoctlSetInt(int(b.file.Fd()), i2cSlave, int(addr)); err != nil {
		return fmt.Errorf("selecting slave 0x%02X: %w", addr, err)
	}
	b.addr = int(addr)
	return nil
}

func (b *devBus) Read(addr uint16, p []byte) error {
	if err := b.target(addr); err != nil {
		return err
	}
	n, err := b.file.Read(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("short read from 0x%02X: %d of %d bytes", addr, n, len(p))
	}
	return nil
}

func (b *devBus) Write(addr uint16, p []byte) error {
	if err := b.target(addr); err != nil {
		return err
	}
	n, err := b.file.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("short write to 0x%02X: %d of %d bytes", addr, n, len(p))
	}
	return nil
}

func (b *devBus) Close() error {
	return b.file.Close()
}
