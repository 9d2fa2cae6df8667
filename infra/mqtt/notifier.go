package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yoldauz/dispatchd/core/notify"
)

// offerEnvelope is the wire form of an extended offer.
type offerEnvelope struct {
	notify.Offer
	Timestamp int64 `json:"timestamp"`
}

// noticeEnvelope is the wire form of a lifecycle notice.
type noticeEnvelope struct {
	notify.Notice
	RecipientID string `json:"recipient_id"`
	Timestamp   int64  `json:"timestamp"`
}

// SendOffer implements notify.Notifier by publishing the offer to the
// recipient's topic.
func (p *PahoClient) SendOffer(recipientID string, offer notify.Offer) error {
	payload, err := json.Marshal(offerEnvelope{Offer: offer, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("driver/%s/offer", recipientID)
	if err := p.publish(topic, "offer", payload); err != nil {
		return err
	}
	p.logger.Infof("sent offer %s to %s", offer.OfferID, topic)
	return nil
}

// SendNotice implements notify.Notifier.
func (p *PahoClient) SendNotice(recipientID string, notice notify.Notice) error {
	payload, err := json.Marshal(noticeEnvelope{Notice: notice, RecipientID: recipientID, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("driver/%s/notice", recipientID)
	return p.publish(topic, "notice", payload)
}
