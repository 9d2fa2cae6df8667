// Package notify delivers cargo offers to ranked candidates, either
// immediately or in referral-priority phases, under a pacing budget that
// keeps the underlying channel from throttling the sender.
package notify

// Offer is the payload extended to a single candidate.
type Offer struct {
	OfferID     string  `json:"offer_id"`
	CargoID     string  `json:"cargo_id"`
	DriverID    string  `json:"driver_id"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	CargoType   string  `json:"cargo_type"`
	WeightTons  float64 `json:"weight_tons"`
	PriceUZS    int64   `json:"price_uzs"`
	Score       float64 `json:"score"`
}

// NoticeKind discriminates lifecycle notices sent outside offers.
type NoticeKind string

const (
	NoticeTaken    NoticeKind = "cargo_taken"
	NoticeWarning  NoticeKind = "contact_warning"
	NoticeReverted NoticeKind = "cargo_reverted"
	NoticeFallback NoticeKind = "fallback_offer"
)

// Notice is a lifecycle message for a driver or dispatcher.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	CargoID string     `json:"cargo_id"`
	Count   int        `json:"count,omitempty"` // warning number for NoticeWarning
}

// Notifier is the messaging channel boundary. The chat frontend sits
// behind it; infra/mqtt provides the production transport and a mock
// for tests. A send error is a DeliveryFailure: the caller counts it
// and moves on.
type Notifier interface {
	SendOffer(recipientID string, offer Offer) error
	SendNotice(recipientID string, notice Notice) error
}
