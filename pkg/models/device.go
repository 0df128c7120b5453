package models

import (
	"fmt"
)

// DeviceSpec carries the descriptive fields a Device is built from.
type DeviceSpec struct {
	Name         string `json:"name" yaml:"name"`                 // Display name of the device
	IP           string `json:"ip" yaml:"ip"`                     // Address to probe
	MAC          string `json:"mac" yaml:"mac"`                   // MAC address
	Manufacturer string `json:"manufacturer" yaml:"manufacturer"` // Vendor/manufacturer
	Hardware     string `json:"hardware" yaml:"hardware"`         // Hardware model or revision
	Location     string `json:"location" yaml:"location"`         // Room or area, e.g. "Entryway"
}

// Device is one monitored endpoint. It is a comparable value: two devices are
// equal when all six fields are equal, so Device can be used as a map key.
type Device struct {
	name         string
	address      string
	mac          string
	manufacturer string
	hardware     string
	location     string
}

// NewDevice validates spec and returns the Device it describes.
// A device needs at least a name or an address.
func NewDevice(spec DeviceSpec) (Device, error) {
	if spec.Name == "" && spec.IP == "" {
		return Device{}, &ValidationError{
			Field:  "name/ip",
			Index:  -1,
			Reason: "a device must have a name or an IP",
		}
	}

	return Device{
		name:         spec.Name,
		address:      spec.IP,
		mac:          spec.MAC,
		manufacturer: spec.Manufacturer,
		hardware:     spec.Hardware,
		location:     spec.Location,
	}, nil
}

// MustDevice is like NewDevice but panics on invalid input.
func MustDevice(spec DeviceSpec) Device {
	d, err := NewDevice(spec)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the display form, e.g. "Lamp in the Entryway".
func (d Device) String() string {
	return fmt.Sprintf("%s in the %s", d.name, d.location)
}

// GoString is used by %#v.
func (d Device) GoString() string {
	return fmt.Sprintf("Device(%s, %s, %s, %s, %s, %s)",
		d.name, d.address, d.mac, d.manufacturer, d.hardware, d.location)
}
