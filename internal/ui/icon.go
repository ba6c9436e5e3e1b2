package ui

// 16x16 PNG tray icon.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x91, 0x68, 0x36, 0x00, 0x00, 0x00,
	0x1a, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x50, 0x00, 0x03, 0xaf,
	0x09, 0x37, 0x09, 0x22, 0x88, 0x4a, 0x86, 0x51, 0x0d, 0xa3, 0x1a, 0x86,
	0xaf, 0x06, 0x00, 0x09, 0x38, 0x5e, 0x50, 0x2a, 0xd1, 0x87, 0x91, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
