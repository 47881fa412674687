//go:build !((linux || freebsd || openbsd || netbsd || dragonfly) || (darwin && cgo) || windows)

package clipboard

func ReadPNG() ([]byte, error) { return nil, ErrUnsupported }

func WritePNG([]byte) error { return ErrUnsupported }

func WriteText(string) error { return ErrUnsupported }

func ReadText() (string, error) { return "", ErrUnsupported }
