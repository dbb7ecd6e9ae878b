// Assembles the fixed three-interface, seven-endpoint configuration this
// firmware always presents: interface 0 is the raw SPI/JTAG vendor
// bulk pipe, interface 1 is the CMSIS-DAPv1 HID pipe, interface 2 is
// the CMSIS-DAPv2 vendor bulk pipe, whose third endpoint (EP4 IN) carries
// the SWO trace stream.
//
// Grounded on control_endpoint.rs's process_get_configuration_descriptor,
// which assembles the same shape at runtime from the same interface
// list.
package usb

// HID report descriptor: one opaque 64-byte vendor-defined report, the
// same minimal wrapper CMSIS-DAP reference firmware uses to carry its
// command/response bytes over the HID transport.
var hidReportDescriptor = []byte{
	0x06, 0x00, 0xff, // Usage Page (vendor defined)
	0x09, 0x01, // Usage (vendor usage 1)
	0xa1, 0x01, // Collection (Application)
	0x15, 0x00, //   Logical Minimum (0)
	0x26, 0xff, 0x00, //   Logical Maximum (255)
	0x75, 0x08, //   Report Size (8)
	0x95, 0x40, //   Report Count (64)
	0x09, 0x01, //   Usage (vendor usage 1)
	0x81, 0x02, //   Input (Data,Var,Abs)
	0x95, 0x40, //   Report Count (64)
	0x09, 0x01, //   Usage (vendor usage 1)
	0x91, 0x02, //   Output (Data,Var,Abs)
	0xc0, // End Collection
}

// BuildDeviceDescriptor returns the probe's fixed device descriptor.
func BuildDeviceDescriptor() []byte {
	d := &DeviceDescriptor{}
	d.SetDefaults()
	return d.Bytes()
}

// BuildConfigurationDescriptor assembles the full three-interface
// configuration descriptor.
func BuildConfigurationDescriptor() []byte {
	spiIface := &InterfaceDescriptor{InterfaceNumber: 0, NumEndpoints: 2, InterfaceClass: 0xff}
	spiIface.SetDefaults()
	spiOut := &EndpointDescriptor{EndpointAddress: EP1 | EPOut, Attributes: EPBulk}
	spiOut.SetDefaults()
	spiIn := &EndpointDescriptor{EndpointAddress: EP1 | EPIn, Attributes: EPBulk}
	spiIn.SetDefaults()
	spiIface.Endpoints = []*EndpointDescriptor{spiOut, spiIn}

	hid := &HIDDescriptor{ReportDescLength: uint16(len(hidReportDescriptor))}
	hid.SetDefaults()
	dapv1Iface := &InterfaceDescriptor{InterfaceNumber: 1, NumEndpoints: 2, InterfaceClass: 0x03, Interface: 4}
	dapv1Iface.SetDefaults()
	dapv1Iface.ClassDescriptors = [][]byte{hid.Bytes()}
	dapv1Out := &EndpointDescriptor{EndpointAddress: EP2 | EPOut, Attributes: EPInterrupt, Interval: 1}
	dapv1Out.SetDefaults()
	dapv1In := &EndpointDescriptor{EndpointAddress: EP2 | EPIn, Attributes: EPInterrupt, Interval: 1}
	dapv1In.SetDefaults()
	dapv1Iface.Endpoints = []*EndpointDescriptor{dapv1Out, dapv1In}

	dapv2Iface := &InterfaceDescriptor{InterfaceNumber: 2, NumEndpoints: 3, InterfaceClass: 0xff, Interface: 5}
	dapv2Iface.SetDefaults()
	dapv2Out := &EndpointDescriptor{EndpointAddress: EP3 | EPOut, Attributes: EPBulk}
	dapv2Out.SetDefaults()
	dapv2In := &EndpointDescriptor{EndpointAddress: EP3 | EPIn, Attributes: EPBulk}
	dapv2In.SetDefaults()
	swoIn := &EndpointDescriptor{EndpointAddress: EP4 | EPIn, Attributes: EPBulk}
	swoIn.SetDefaults()
	dapv2Iface.Endpoints = []*EndpointDescriptor{dapv2Out, dapv2In, swoIn}

	c := &ConfigurationDescriptor{Interfaces: []*InterfaceDescriptor{spiIface, dapv1Iface, dapv2Iface}}
	c.SetDefaults()
	return c.Bytes()
}

// BuildStringTable renders the fixed string descriptors: language ID,
// manufacturer, product, serial (from the chip's unique ID), the DAPv1
// and DAPv2 interface names (4 and 5), and a "SWO trace" string (6) that
// no descriptor references.
func BuildStringTable(serial string) map[uint8][]byte {
	return map[uint8][]byte{
		0: {4, descString, 0x09, 0x04}, // English (US)
		1: stringToUTF16LE("ffp"),
		2: stringToUTF16LE("Black Magic Debug compatible probe"),
		3: stringToUTF16LE(serial),
		4: stringToUTF16LE("CMSIS-DAP v1"),
		5: stringToUTF16LE("CMSIS-DAP v2"),
		6: stringToUTF16LE("SWO trace"),
	}
}

// HIDReportDescriptor exposes the fixed HID report descriptor bytes for
// GetDescriptor(HID_REPORT) handling.
func HIDReportDescriptor() []byte { return hidReportDescriptor }
