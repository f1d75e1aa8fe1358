package eye

// BlueZ only exposes write commands in this version of the bluetooth package.
func (c btCharacteristic) Write(p []byte) (int, error) {
	return c.WriteWithoutResponse(p)
}
