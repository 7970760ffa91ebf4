// Package qr renders enrollment check-in payloads locally, used when the
// server-rendered image is unavailable.
package qr

import (
	"errors"
	"os"

	"github.com/skip2/go-qrcode"
)

// ErrEmptyPayload is returned for an empty payload.
var ErrEmptyPayload = errors.New("qr payload is empty")

// Terminal renders payload as block characters for a terminal.
func Terminal(payload string) (string, error) {
	if payload == "" {
		return "", ErrEmptyPayload
	}
	code, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return code.ToSmallString(false), nil
}

// PNG renders payload as a size x size PNG.
func PNG(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}

// WriteFile writes a PNG to path, owner-readable only.
func WriteFile(path string, png []byte) error {
	return os.WriteFile(path, png, 0o600)
}
