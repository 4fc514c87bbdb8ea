package rawi2c

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Bus is an open I2C adapter. Read and Write address the given 7-bit slave.
type Bus interface {
	Read(addr uint16, p []byte) error
	Write(addr uint16, p []byte) error
	Close() error
}

// Opener opens an adapter by bus number.
type Opener interface {
	Open(bus string) (Bus, error)
}

// Adapter is one I2C adapter listed by the kernel.
type Adapter struct {
	Bus  string
	Name string
}

// ListAdapters reads the i2c-dev adapters under sysfsRoot
// (normally /sys/class/i2c-dev/i2c-N/name), ordered by bus number.
func ListAdapters(sysfsRoot string) ([]Adapter, error) {
	pattern := filepath.Join(sysfsRoot, "class", "i2c-dev", "i2c-*")
	dirs, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("listing i2c adapters: %w", err)
	}

	adapters := make([]Adapter, 0, len(dirs))
	for _, dir := range dirs {
		bus := strings.TrimPrefix(filepath.Base(dir), "i2c-")
		if _, err := strconv.Atoi(bus); err != nil {
			continue
		}
		name, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			continue
		}
		adapters = append(adapters, Adapter{Bus: bus, Name: strings.TrimSpace(string(name))})
	}

	sort.Slice(adapters, func(i, j int) bool {
		a, _ := strconv.Atoi(adapters[i].Bus)
		b, _ := strconv.Atoi(adapters[j].Bus)
		return a < b
	})
	return adapters, nil
}
