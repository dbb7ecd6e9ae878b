// Descriptor structs for the probe's USB identity: one device descriptor,
// one configuration with three interfaces (SPI vendor-class, DAPv1 HID,
// DAPv2 vendor-class with the SWO endpoint) and seven endpoints, plus the
// string and Microsoft
// OS descriptor tables.
//
// Grounded on soc/imx6/usb/descriptor.go's SetDefaults()/Bytes() pattern
// (struct-per-descriptor, encoding/binary for fixed-layout pieces, a
// bytes.Buffer walk for the variable-length ones); descriptor *content*
// (classes, strings, WinUSB GUID) comes from spec.md §4.6/§6 and
// control_endpoint.rs's process_get_configuration_descriptor.
package usb

import (
	"bytes"
	"encoding/binary"
)

// Standard descriptor type codes.
const (
	descDevice             = 1
	descConfiguration      = 2
	descString             = 3
	descInterface           = 4
	descEndpoint           = 5
	descDeviceQualifier    = 6
	descHID                = 0x21
	descHIDReport          = 0x22
)

// Fixed lengths of the simple descriptors.
const (
	lenDevice       = 18
	lenConfiguration = 9
	lenInterface    = 9
	lenEndpoint     = 7
	lenHID          = 9
)

// DeviceDescriptor is the top-level USB device descriptor.
type DeviceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	BCDUSB            uint16
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize     uint8
	VendorID          uint16
	ProductID         uint16
	BCDDevice         uint16
	Manufacturer      uint8
	Product           uint8
	SerialNumber      uint8
	NumConfigurations uint8
}

// SetDefaults fills in the probe's fixed VID/PID/bcdDevice and EP0 size.
func (d *DeviceDescriptor) SetDefaults() {
	d.Length = lenDevice
	d.DescriptorType = descDevice
	d.BCDUSB = 0x0200
	d.MaxPacketSize = 64
	d.VendorID = 0x1209
	d.ProductID = 0xff50
	d.BCDDevice = 0x0001
	d.Manufacturer = 1
	d.Product = 2
	d.SerialNumber = 3
	d.NumConfigurations = 1
}

// Bytes renders the descriptor in USB wire format.
func (d *DeviceDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}

// EndpointDescriptor describes one endpoint's transfer type and size.
type EndpointDescriptor struct {
	Length          uint8
	DescriptorType  uint8
	EndpointAddress uint8
	Attributes      uint8
	MaxPacketSize   uint16
	Interval        uint8
}

const (
	EPIn  = 0x80
	EPOut = 0x00
)

const (
	EPControl   = 0
	EPBulk      = 2
	EPInterrupt = 3
)

// SetDefaults fills in the fixed descriptor length/type.
func (e *EndpointDescriptor) SetDefaults() {
	e.Length = lenEndpoint
	e.DescriptorType = descEndpoint
	e.MaxPacketSize = 64
}

// Bytes renders the descriptor in USB wire format.
func (e *EndpointDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, e)
	return buf.Bytes()
}

// HIDDescriptor is the HID class descriptor carried inside the DAPv1
// interface, pointing at the HID report descriptor that follows it.
type HIDDescriptor struct {
	Length             uint8
	DescriptorType     uint8
	BCDHID             uint16
	CountryCode        uint8
	NumDescriptors     uint8
	ReportDescType     uint8
	ReportDescLength   uint16
}

// SetDefaults fills in the fixed HID 1.11 / one-report-descriptor shape.
func (h *HIDDescriptor) SetDefaults() {
	h.Length = lenHID
	h.DescriptorType = descHID
	h.BCDHID = 0x0111
	h.NumDescriptors = 1
	h.ReportDescType = descHIDReport
}

// Bytes renders the descriptor in USB wire format.
func (h *HIDDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, h)
	return buf.Bytes()
}

// InterfaceDescriptor describes one interface, with its endpoints and any
// class-specific descriptors (the HID descriptor, for interface 1)
// concatenated immediately after it.
type InterfaceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	InterfaceNumber   uint8
	AlternateSetting  uint8
	NumEndpoints      uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
	Interface         uint8

	ClassDescriptors [][]byte
	Endpoints        []*EndpointDescriptor
}

// SetDefaults fills in the fixed descriptor length/type.
func (i *InterfaceDescriptor) SetDefaults() {
	i.Length = lenInterface
	i.DescriptorType = descInterface
}

// Bytes renders the interface descriptor, its class descriptors, and its
// endpoint descriptors back to back.
func (i *InterfaceDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, i.Length)
	binary.Write(buf, binary.LittleEndian, i.DescriptorType)
	binary.Write(buf, binary.LittleEndian, i.InterfaceNumber)
	binary.Write(buf, binary.LittleEndian, i.AlternateSetting)
	binary.Write(buf, binary.LittleEndian, i.NumEndpoints)
	binary.Write(buf, binary.LittleEndian, i.InterfaceClass)
	binary.Write(buf, binary.LittleEndian, i.InterfaceSubClass)
	binary.Write(buf, binary.LittleEndian, i.InterfaceProtocol)
	binary.Write(buf, binary.LittleEndian, i.Interface)

	for _, cd := range i.ClassDescriptors {
		buf.Write(cd)
	}
	for _, ep := range i.Endpoints {
		buf.Write(ep.Bytes())
	}

	return buf.Bytes()
}

// ConfigurationDescriptor is the top-level configuration, concatenating
// every interface (and their endpoints/class descriptors) into one
// contiguous buffer, matching the single runtime-assembled blob
// control_endpoint.rs's process_get_configuration_descriptor produces.
type ConfigurationDescriptor struct {
	Length             uint8
	DescriptorType     uint8
	TotalLength        uint16
	NumInterfaces      uint8
	ConfigurationValue uint8
	Configuration      uint8
	Attributes         uint8
	MaxPower           uint8

	Interfaces []*InterfaceDescriptor
}

// SetDefaults fills in bus-powered, 100mA, single-configuration defaults.
func (c *ConfigurationDescriptor) SetDefaults() {
	c.Length = lenConfiguration
	c.DescriptorType = descConfiguration
	c.ConfigurationValue = 1
	c.Attributes = 0x80 // bus-powered
	c.MaxPower = 50     // 100mA in 2mA units
}

// Bytes renders the configuration descriptor followed by every interface
// descriptor in order, with TotalLength computed over the whole buffer.
func (c *ConfigurationDescriptor) Bytes() []byte {
	var ifaces bytes.Buffer
	for _, iface := range c.Interfaces {
		ifaces.Write(iface.Bytes())
	}

	c.NumInterfaces = uint8(len(c.Interfaces))
	c.TotalLength = uint16(lenConfiguration + ifaces.Len())

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, c.Length)
	binary.Write(buf, binary.LittleEndian, c.DescriptorType)
	binary.Write(buf, binary.LittleEndian, c.TotalLength)
	binary.Write(buf, binary.LittleEndian, c.NumInterfaces)
	binary.Write(buf, binary.LittleEndian, c.ConfigurationValue)
	binary.Write(buf, binary.LittleEndian, c.Configuration)
	binary.Write(buf, binary.LittleEndian, c.Attributes)
	binary.Write(buf, binary.LittleEndian, c.MaxPower)
	buf.Write(ifaces.Bytes())

	return buf.Bytes()
}

// stringToUTF16LE renders a string as its USB string-descriptor bytes:
// length byte, type byte, then UTF-16LE code units.
func stringToUTF16LE(s string) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(0) // length, patched below
	buf.WriteByte(descString)
	for _, r := range s {
		if r > 0xffff {
			r = '?'
		}
		binary.Write(buf, binary.LittleEndian, uint16(r))
	}
	out := buf.Bytes()
	out[0] = uint8(len(out))
	return out
}
