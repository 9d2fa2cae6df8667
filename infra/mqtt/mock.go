package mqtt

import (
	"fmt"
	"sync"

	"github.com/yoldauz/dispatchd/core/notify"
)

// MockNotifier is a simple notifier used in tests. It records sends and
// can be configured to fail for specific recipients.
type MockNotifier struct {
	Offers  map[string][]notify.Offer
	Notices map[string][]notify.Notice
	FailIDs map[string]bool
	mu      sync.Mutex
}

// NewMockNotifier creates a new MockNotifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		Offers:  make(map[string][]notify.Offer),
		Notices: make(map[string][]notify.Notice),
		FailIDs: make(map[string]bool),
	}
}

// SendOffer records the offer or returns an error if configured to
// fail.
func (m *MockNotifier) SendOffer(recipientID string, offer notify.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[recipientID] {
		return fmt.Errorf("publish failed")
	}
	m.Offers[recipientID] = append(m.Offers[recipientID], offer)
	return nil
}

// SendNotice records the notice or returns an error if configured to
// fail.
func (m *MockNotifier) SendNotice(recipientID string, notice notify.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[recipientID] {
		return fmt.Errorf("publish failed")
	}
	m.Notices[recipientID] = append(m.Notices[recipientID], notice)
	return nil
}

// OfferedTo reports whether the recipient has received any offer.
func (m *MockNotifier) OfferedTo(recipientID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Offers[recipientID]) > 0
}

// OfferCount returns the number of offers sent to the recipient.
func (m *MockNotifier) OfferCount(recipientID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Offers[recipientID])
}

// NoticesFor returns a copy of the notices sent to the recipient.
func (m *MockNotifier) NoticesFor(recipientID string) []notify.Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Notice(nil), m.Notices[recipientID]...)
}
