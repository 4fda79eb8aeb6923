package links

import (
	"context"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	minQRSize     = 64
	maxQRSize     = 1024
	defaultQRSize = 256
)

// QRCode renders the short URL for code as a PNG.
func (s *Service) QRCode(ctx context.Context, code string, size int) ([]byte, error) {
	link, err := s.FindByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if size < minQRSize || size > maxQRSize {
		size = defaultQRSize
	}
	return qrcode.Encode(s.ShortURL(link.ShortCode), qrcode.Medium, size)
}
