package ticket

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"ticket-engine/models"
)

// QRImage renders the ticket URL as a PNG. Only the opaque reference travels
// in the payload.
func (s *Service) QRImage(t *models.IssuedTicket) ([]byte, error) {
	png, err := qrcode.Encode(t.URL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("ticket.QRImage: %w", err)
	}
	return png, nil
}
