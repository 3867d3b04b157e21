// Package actuator pushes dispatch decisions to the relay board over MQTT.
package actuator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/types"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/hashicorp/go-multierror"
)

const defaultPublishTimeout = 5 * time.Second

// publisher is the part of mqtt.Client used to send commands.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Command is the payload sent for a single load.
type Command struct {
	LoadID    int64        `json:"loadID"`
	Action    types.Action `json:"action"`
	On        bool         `json:"on"`
	Reason    string       `json:"reason"`
	Timestamp time.Time    `json:"timestamp"`
}

// MQTTActuator publishes one retained command per load to {topic}/{loadID}.
// A nil client makes Publish a no-op.
type MQTTActuator struct {
	client  publisher
	topic   string
	timeout time.Duration
	now     func() time.Time
	close   func()
}

// NewMQTTActuator creates an actuator on an already connected client.
func NewMQTTActuator(client mqtt.Client, topic string) *MQTTActuator {
	a := &MQTTActuator{
		topic:   topic,
		timeout: defaultPublishTimeout,
		now:     time.Now,
	}
	if client != nil {
		a.client = client
		a.close = func() { client.Disconnect(250) }
	}
	return a
}

// Publish sends a command for every decision with a load and waits for the
// broker acknowledgements. A single timeout bounds the whole call. Failures
// are collected and returned together.
func (a *MQTTActuator) Publish(ctx context.Context, decisions []types.Decision) error {
	if a == nil || a.client == nil {
		return nil
	}
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	now := a.now()
	var errs *multierror.Error
	for _, d := range decisions {
		if d.LoadID == 0 {
			continue
		}
		payload, err := json.Marshal(Command{
			LoadID:    d.LoadID,
			Action:    d.Action,
			On:        d.Action != types.ActionCut,
			Reason:    d.Reason,
			Timestamp: now,
		})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to marshal command for load %d: %w", d.LoadID, err))
			continue
		}
		topic := a.topic + "/" + strconv.FormatInt(d.LoadID, 10)
		if err := a.wait(parent, ctx, a.client.Publish(topic, 1, true, payload)); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to publish to %s: %w", topic, err))
			continue
		}
		log.Ctx(ctx).DebugContext(ctx, "published command", slog.String("topic", topic), slog.String("action", string(d.Action)))
	}
	return errs.ErrorOrNil()
}

func (a *MQTTActuator) wait(parent, ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		if parent.Err() == nil {
			return fmt.Errorf("timed out after %s", a.timeout)
		}
		return parent.Err()
	}
}

// Close disconnects from the broker.
func (a *MQTTActuator) Close() {
	if a != nil && a.close != nil {
		a.close()
	}
}
