//go:build !windows

package driver

// New reports the automation driver as unavailable. The engine targets the
// Windows snap-assist picker; other platforms can still run the scripted
// driver for replay and tests.
func New() (Driver, error) {
	return nil, ErrUnsupported
}
