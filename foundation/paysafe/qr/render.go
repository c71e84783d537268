package qr

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// Render draws a fragment as a PNG image of size pixels.
func Render(fragment string, size int) ([]byte, error) {
	code, err := qrcode.New(fragment, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("creating qr code: %w", err)
	}

	png, err := code.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("rendering png: %w", err)
	}

	return png, nil
}

// Fragments encodes an envelope and splits it for display.
func Fragments(envelope any) ([]string, error) {
	text, err := Encode(envelope)
	if err != nil {
		return nil, err
	}

	return Split(text), nil
}
