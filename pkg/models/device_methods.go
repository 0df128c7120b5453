package models

// Name returns the display name of the device
func (d Device) Name() string { return d.name }

// Address returns the network address probed for the device
func (d Device) Address() string { return d.address }

// MAC returns the MAC address, possibly empty
func (d Device) MAC() string { return d.mac }

// Manufacturer returns the vendor, possibly empty
func (d Device) Manufacturer() string { return d.manufacturer }

// Hardware returns the hardware description, possibly empty
func (d Device) Hardware() string { return d.hardware }

// Location returns where the device lives, possibly empty
func (d Device) Location() string { return d.location }

// Spec returns the fields the device was built from.
func (d Device) Spec() DeviceSpec {
	return DeviceSpec{
		Name:         d.name,
		IP:           d.address,
		MAC:          d.mac,
		Manufacturer: d.manufacturer,
		Hardware:     d.hardware,
		Location:     d.location,
	}
}
