package extendalarm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// MaxLines bounds the hardware description file.
const MaxLines = 64

var (
	ErrUnknownLocation   = errors.New("unknown storage location")
	ErrDuplicateLocation = errors.New("storage location listed twice")
	ErrTooManyLines      = errors.New("hardware description too long")
	ErrMissingDevice     = errors.New("storage line has no device")
)

// Slot is a storage position on the board.
type Slot struct {
	Location string
	Resource string
	// Index is the fault ID reported for this slot.
	Index uint16
}

var slots = []Slot{
	{"PCIE-0", "M.2", 0},
	{"PCIE-1", "HARD_DISK0", 1},
	{"PCIE-2", "HARD_DISK1", 2},
	{"eMMC1", "eMMC", 3},
	{"SDIO1", "SD", 4},
	{"usb0", "USB0", 5},
	{"usb1", "USB1", 6},
	{"usb2", "USB2", 7},
}

func slotFor(location string) (Slot, bool) {
	for _, s := range slots {
		if s.Location == location {
			return s, true
		}
	}
	return Slot{}, false
}

// Storage is one device line of the hardware description.
type Storage struct {
	Platform string
	Device   string
	Name     string
	Slot     Slot
}

// Hardware is the parsed hardware description.
type Hardware struct {
	USBHubID string
	Storage  []Storage
}

// ParseHardware reads lines of comma-separated key=value fields:
//
//	platform=pci0000:00,device=nvme0n1,location=PCIE-0,name=M.2 SSD
//	usb_hub_id=05e3:0610
//
// Unknown keys are ignored. Storage lines need a device and a known location.
func ParseHardware(b []byte) (*Hardware, error) {
	hw := &Hardware{}
	seen := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(b))
	n := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		n++
		if n > MaxLines {
			return nil, ErrTooManyLines
		}

		if v, ok := strings.CutPrefix(line, "usb_hub_id="); ok {
			hw.USBHubID = v
			continue
		}

		var st Storage
		var location string
		for _, field := range strings.Split(line, ",") {
			k, v, ok := strings.Cut(field, "=")
			if !ok || v == "" {
				return nil, fmt.Errorf("line %d: malformed field %q", n, field)
			}
			switch k {
			case "platform":
				st.Platform = v
			case "device":
				st.Device = v
			case "location":
				location = v
			case "name":
				st.Name = v
			}
		}
		if st.Device == "" {
			return nil, fmt.Errorf("line %d: %w", n, ErrMissingDevice)
		}
		slot, ok := slotFor(location)
		if !ok {
			return nil, fmt.Errorf("line %d: %q: %w", n, location, ErrUnknownLocation)
		}
		if seen[location] {
			return nil, fmt.Errorf("line %d: %q: %w", n, location, ErrDuplicateLocation)
		}
		seen[location] = true
		st.Slot = slot
		hw.Storage = append(hw.Storage, st)
	}
	return hw, sc.Err()
}
