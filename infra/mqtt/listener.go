package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/yoldauz/dispatchd/core/dispatch"
)

// Actions is the inbound slice of the dispatch engine the listener
// forwards driver messages to. The messaging layer may redeliver a
// message; all handlers are idempotent.
type Actions interface {
	OnDriverAccept(cargoID, driverID string) error
	OnDriverContacted(cargoID, driverID string) error
	OnDriverCompleted(cargoID, driverID string) error
	CancelByDriver(cargoID, driverID string) error
}

// actionMessage is the wire form of a driver action.
type actionMessage struct {
	Action   string `json:"action"` // accept, contact, complete, cancel
	CargoID  string `json:"cargo_id"`
	DriverID string `json:"driver_id"`
}

// actionResult reports the outcome back on the driver's result topic.
type actionResult struct {
	Action  string `json:"action"`
	CargoID string `json:"cargo_id"`
	OK      bool   `json:"ok"`
	Reason  string `json:"reason,omitempty"`
}

// Listen subscribes to the action topic and forwards messages to the
// engine. Call after the client is connected.
func (p *PahoClient) Listen(actions Actions) error {
	topic := p.cfg.ActionTopic
	if topic == "" {
		topic = "dispatch/action"
	}
	qos := byte(0)
	if q, ok := p.cfg.QoS["action"]; ok {
		qos = q
	}
	token := p.cli.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		p.onAction(actions, msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (p *PahoClient) onAction(actions Actions, payload []byte) {
	var m actionMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		p.logger.Errorf("failed to decode action: %v", err)
		return
	}
	var err error
	switch m.Action {
	case "accept":
		err = actions.OnDriverAccept(m.CargoID, m.DriverID)
	case "contact":
		err = actions.OnDriverContacted(m.CargoID, m.DriverID)
	case "complete":
		err = actions.OnDriverCompleted(m.CargoID, m.DriverID)
	case "cancel":
		err = actions.CancelByDriver(m.CargoID, m.DriverID)
	default:
		p.logger.Warnf("unknown action %q from driver %s", m.Action, m.DriverID)
		return
	}

	res := actionResult{Action: m.Action, CargoID: m.CargoID, OK: err == nil}
	if err != nil {
		res.Reason = reasonFor(err)
		p.logger.Infof("action %s by %s on %s rejected: %v", m.Action, m.DriverID, m.CargoID, err)
	}
	out, merr := json.Marshal(res)
	if merr != nil {
		return
	}
	if perr := p.publish(fmt.Sprintf("driver/%s/result", m.DriverID), "result", out); perr != nil {
		p.logger.Errorf("result delivery to %s failed: %v", m.DriverID, perr)
	}
}

// reasonFor maps engine errors to compact wire reasons.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, dispatch.ErrAlreadyTaken):
		return "already_taken"
	case errors.Is(err, dispatch.ErrNotFound):
		return "not_found"
	case errors.Is(err, dispatch.ErrInvalidTransition):
		return "no_longer_active"
	case errors.Is(err, dispatch.ErrIneligibleDriver):
		return err.Error()
	default:
		return "internal"
	}
}
