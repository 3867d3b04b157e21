package actuator

import (
	"context"
	"log/slog"
	"time"

	"github.com/airepert/airepert/pkg/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/levenlabs/go-lflag"
)

// Configured sets up the MQTT actuator from flags. Without a broker the
// actuator publishes nothing.
func Configured() *MQTTActuator {
	broker := lflag.String("mqtt-broker", "", "MQTT broker URL for relay commands, e.g. tcp://localhost:1883 (empty disables)")
	topic := lflag.String("mqtt-topic", "airepert/loads", "Topic prefix for relay commands")
	clientID := lflag.String("mqtt-client-id", "airepert", "MQTT client id")

	a := NewMQTTActuator(nil, "")

	lflag.Do(func() {
		a.topic = *topic
		if *broker == "" {
			return
		}
		opts := mqtt.NewClientOptions().
			AddBroker(*broker).
			SetClientID(*clientID).
			SetAutoReconnect(true).
			SetConnectRetry(true)
		c := mqtt.NewClient(opts)
		if token := c.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
			panic(token.Error())
		}
		if !c.IsConnected() {
			log.Ctx(context.Background()).Warn("mqtt broker not reachable yet, retrying in background", slog.String("broker", *broker))
		}
		a.client = c
		a.close = func() { c.Disconnect(250) }
	})

	return a
}
