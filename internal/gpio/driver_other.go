//go:build !linux

package gpio

func newCdevDriver(string) (Driver, error) {
	return nil, ErrNotSupported
}

func newMemDriver() (Driver, error) {
	return nil, ErrNotSupported
}
