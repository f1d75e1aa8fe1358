package eye

// CoreBluetooth reads are not available in this version of the bluetooth
// package; the battery level arrives through notifications only.
func (c btCharacteristic) Read(p []byte) (int, error) {
	return 0, errReadUnsupported
}
