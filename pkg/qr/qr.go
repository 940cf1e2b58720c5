package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// payload is the JSON structure embedded in generated QR images. Scanners
// decode it and submit the token when marking attendance.
type payload struct {
	Token string `json:"t"`
}

// Generator renders attendance tokens into PNG data URLs.
type Generator struct {
	size int
}

// NewGenerator builds a generator producing square PNGs of the given pixel size.
func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = 256
	}
	return &Generator{size: size}
}

// DataURL encodes the token into a QR PNG and returns it as a data URL
// suitable for direct embedding in an <img> tag.
func (g *Generator) DataURL(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token required")
	}
	content, err := json.Marshal(payload{Token: token})
	if err != nil {
		return "", fmt.Errorf("encode qr payload: %w", err)
	}
	png, err := qrcode.Encode(string(content), qrcode.Medium, g.size)
	if err != nil {
		return "", fmt.Errorf("render qr png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// DecodeToken extracts the token from a scanned QR payload. Raw tokens are
// accepted as-is so clients may also paste the token directly.
func DecodeToken(raw string) string {
	if raw == "" {
		return ""
	}
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err == nil && p.Token != "" {
		return p.Token
	}
	return raw
}
