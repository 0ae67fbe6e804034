package otpauth

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"

	"github.com/praxisid/oath-engine/pkg/domain"
)

// QRCode renders the credential's provisioning URI as a QR code image of
// the given dimensions.
func QRCode(c *domain.OathCredential, width, height int) (image.Image, error) {
	raw, err := Format(c)
	if err != nil {
		return nil, err
	}

	code, err := qr.Encode(raw, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	code, err = barcode.Scale(code, width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to scale QR code: %w", err)
	}
	return code, nil
}

// QRCodeDataURI renders the credential's provisioning URI as a PNG QR code
// wrapped in a data:image/png;base64 URI, ready for direct embedding.
func QRCodeDataURI(c *domain.OathCredential, width, height int) (string, error) {
	img, err := QRCode(c, width, height)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode QR code PNG: %w", err)
	}
	return fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}
