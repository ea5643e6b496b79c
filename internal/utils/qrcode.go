package utils

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// JoinURL builds the guest-facing join link for a game. A non-empty
// bypass secret is carried in the query string so scanning the printed
// code skips geo review.
func JoinURL(baseURL, joinCode, bypassSecret string) string {
	link := fmt.Sprintf("%s/join/%s", strings.TrimRight(baseURL, "/"), joinCode)
	if bypassSecret != "" {
		link += "?bypass=" + url.QueryEscape(bypassSecret)
	}
	return link
}

// JoinQRCodePNG renders the join link as a PNG QR code of the given
// pixel size.
func JoinQRCodePNG(baseURL, joinCode, bypassSecret string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(JoinURL(baseURL, joinCode, bypassSecret), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode join QR code: %w", err)
	}
	return png, nil
}
