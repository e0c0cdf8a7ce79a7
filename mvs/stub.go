//go:build !mvs

package mvs

// Native returns a library that reports ErrNotAvailable.  Build with
// -tags mvs to link the vendor SDK.
func Native() Library {
	return stub{}
}

type stub struct{}

func (stub) Initialize() error { return ErrNotAvailable }

func (stub) Finalize() error { return nil }

func (stub) EnumDevices(TransportLayer) ([]DeviceRecord, error) {
	return nil, ErrNotAvailable
}

func (stub) CreateHandle(DeviceRecord) (Device, error) {
	return nil, ErrNotAvailable
}
