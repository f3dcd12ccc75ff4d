// Package notify delivers issued tickets to buyers. Delivery is best-effort
// by design: the payment commit is the source of truth and a failed send
// never invalidates it.
package notify

import (
	"context"
	"encoding/base64"
	"fmt"

	pubnub "github.com/pubnub/go/v7"

	"ticket-engine/models"
)

type Config struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
	UUID         string
}

type PubNubNotifier struct {
	pn *pubnub.PubNub
}

func NewPubNubNotifier(cfg *Config) *PubNubNotifier {
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.UUID))
	pnCfg.PublishKey = cfg.PublishKey
	pnCfg.SubscribeKey = cfg.SubscribeKey
	pnCfg.SecretKey = cfg.SecretKey

	return &PubNubNotifier{pn: pubnub.NewPubNub(pnCfg)}
}

// TicketIssued publishes the ticket reference and its scannable image to the
// buyer's channel.
func (n *PubNubNotifier) TicketIssued(ctx context.Context, userID string, invoice *models.Invoice, t *models.IssuedTicket, qrPNG []byte) error {
	channel := fmt.Sprintf("user-%s", userID)

	_, _, err := n.pn.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":           "ticket_issued",
			"invoice_id":     invoice.ID,
			"event_name":     invoice.EventName,
			"amount":         invoice.Amount.String(),
			"ticket_url":     t.URL,
			"qr_png_base64":  base64.StdEncoding.EncodeToString(qrPNG),
			"transaction_id": t.TransactionID,
		}).
		Execute()
	if err != nil {
		return fmt.Errorf("notify.TicketIssued: publish: %w", err)
	}
	return nil
}
