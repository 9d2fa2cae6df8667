package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/yoldauz/dispatchd/core/dispatch"
	"github.com/yoldauz/dispatchd/core/notify"
	"github.com/yoldauz/dispatchd/infra/logger"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu         sync.Mutex
	published  []published
	failFirst  int // number of leading publishes to fail
	attempts   int
	subscribed []string
	handler    paho.MessageHandler
}

func (f *fakeClient) IsConnected() bool     { return true }
func (f *fakeClient) Connect() paho.Token   { return &fakeToken{} }
func (f *fakeClient) Disconnect(uint)       {}
func (f *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failFirst {
		return &fakeToken{err: errors.New("broker unavailable")}
	}
	f.published = append(f.published, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return &fakeToken{}
}

func (f *fakeClient) Subscribe(topic string, _ byte, cb paho.MessageHandler) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, topic)
	f.handler = cb
	return &fakeToken{}
}

func (f *fakeClient) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.published))
	for i, p := range f.published {
		out[i] = p.topic
	}
	return out
}

func notifyOffer(offerID, cargoID string) notify.Offer {
	return notify.Offer{OfferID: offerID, CargoID: cargoID, DriverID: "drv-7", Score: 82}
}

func notifyNotice() notify.Notice {
	return notify.Notice{Kind: notify.NoticeTaken, CargoID: "c1"}
}

func newTestClient(fake *fakeClient) *PahoClient {
	return &PahoClient{
		cli:        fake,
		cfg:        Config{QoS: map[string]byte{"offer": 1}},
		logger:     logger.NopLogger{},
		maxRetries: 2,
		backoff:    time.Millisecond,
	}
}

func TestSendOfferPublishesToDriverTopic(t *testing.T) {
	fake := &fakeClient{}
	c := newTestClient(fake)

	err := c.SendOffer("drv-7", notifyOffer("offer-1", "cargo-1"))
	if err != nil {
		t.Fatalf("SendOffer: %v", err)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(fake.published))
	}
	p := fake.published[0]
	if p.topic != "driver/drv-7/offer" {
		t.Errorf("topic = %s", p.topic)
	}
	if p.qos != 1 {
		t.Errorf("qos = %d, want configured 1", p.qos)
	}
	var env offerEnvelope
	if err := json.Unmarshal(p.payload, &env); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if env.OfferID != "offer-1" || env.CargoID != "cargo-1" || env.Timestamp == 0 {
		t.Errorf("envelope = %+v", env)
	}
}

func TestPublishRetriesThenSucceeds(t *testing.T) {
	fake := &fakeClient{failFirst: 2}
	c := newTestClient(fake)

	if err := c.SendNotice("drv-1", notifyNotice()); err != nil {
		t.Fatalf("SendNotice after retries: %v", err)
	}
	if fake.attempts != 3 {
		t.Errorf("attempts = %d, want 3", fake.attempts)
	}
}

func TestPublishGivesUpAfterMaxRetries(t *testing.T) {
	fake := &fakeClient{failFirst: 100}
	c := newTestClient(fake)

	if err := c.SendNotice("drv-1", notifyNotice()); err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}
	if fake.attempts != 3 { // initial + maxRetries
		t.Errorf("attempts = %d, want 3", fake.attempts)
	}
}

func TestListenSubscribesToActionTopic(t *testing.T) {
	fake := &fakeClient{}
	c := newTestClient(fake)
	if err := c.Listen(&stubActions{}); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if len(fake.subscribed) != 1 || fake.subscribed[0] != "dispatch/action" {
		t.Errorf("subscribed = %v, want default dispatch/action", fake.subscribed)
	}

	fake2 := &fakeClient{}
	c2 := newTestClient(fake2)
	c2.cfg.ActionTopic = "custom/actions"
	if err := c2.Listen(&stubActions{}); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if fake2.subscribed[0] != "custom/actions" {
		t.Errorf("subscribed = %v, want custom/actions", fake2.subscribed)
	}
}

type stubActions struct {
	mu     sync.Mutex
	calls  []string
	retErr error
}

func (s *stubActions) record(what, cargoID, driverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("%s:%s:%s", what, cargoID, driverID))
	return s.retErr
}

func (s *stubActions) OnDriverAccept(c, d string) error    { return s.record("accept", c, d) }
func (s *stubActions) OnDriverContacted(c, d string) error { return s.record("contact", c, d) }
func (s *stubActions) OnDriverCompleted(c, d string) error { return s.record("complete", c, d) }
func (s *stubActions) CancelByDriver(c, d string) error    { return s.record("cancel", c, d) }

func TestOnActionRoutesToEngine(t *testing.T) {
	fake := &fakeClient{}
	c := newTestClient(fake)
	stub := &stubActions{}

	for _, action := range []string{"accept", "contact", "complete", "cancel"} {
		payload, _ := json.Marshal(actionMessage{Action: action, CargoID: "c1", DriverID: "d1"})
		c.onAction(stub, payload)
	}
	want := []string{"accept:c1:d1", "contact:c1:d1", "complete:c1:d1", "cancel:c1:d1"}
	stub.mu.Lock()
	calls := append([]string(nil), stub.calls...)
	stub.mu.Unlock()
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %s, want %s", i, calls[i], want[i])
		}
	}
	// every action acked on the driver's result topic
	for _, topic := range fake.topics() {
		if topic != "driver/d1/result" {
			t.Errorf("result published to %s", topic)
		}
	}
}

func TestOnActionReportsRejection(t *testing.T) {
	fake := &fakeClient{}
	c := newTestClient(fake)
	stub := &stubActions{retErr: fmt.Errorf("cargo c1: %w", dispatch.ErrAlreadyTaken)}

	payload, _ := json.Marshal(actionMessage{Action: "accept", CargoID: "c1", DriverID: "d1"})
	c.onAction(stub, payload)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(fake.published))
	}
	var res actionResult
	if err := json.Unmarshal(fake.published[0].payload, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.OK || res.Reason != "already_taken" {
		t.Errorf("result = %+v, want rejected with already_taken", res)
	}
}

func TestOnActionIgnoresGarbage(t *testing.T) {
	fake := &fakeClient{}
	c := newTestClient(fake)
	stub := &stubActions{}
	c.onAction(stub, []byte("{not json"))
	c.onAction(stub, []byte(`{"action":"warp","cargo_id":"c1","driver_id":"d1"}`))
	if len(stub.calls) != 0 {
		t.Errorf("calls = %v, want none", stub.calls)
	}
	if len(fake.topics()) != 0 {
		t.Errorf("unexpected publishes: %v", fake.topics())
	}
}

func TestReasonFor(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", dispatch.ErrAlreadyTaken), "already_taken"},
		{fmt.Errorf("x: %w", dispatch.ErrNotFound), "not_found"},
		{fmt.Errorf("x: %w", dispatch.ErrInvalidTransition), "no_longer_active"},
		{&dispatch.IneligibleError{DriverID: "d1", Field: "capacity"}, "driver d1 ineligible: capacity"},
		{errors.New("boom"), "internal"},
	}
	for _, c := range cases {
		if got := reasonFor(c.err); got != c.want {
			t.Errorf("reasonFor(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}
