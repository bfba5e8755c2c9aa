package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/nitk/air-monitor/internal/fusion"
)

const offlineBufferSize = 64

// RealPublisher publishes to an actual MQTT broker. Readings that cannot
// be delivered while the broker is unreachable are held in a bounded
// ring buffer and replayed on reconnect.
type RealPublisher struct {
	client paho.Client

	mu      sync.Mutex
	pending *ringBuffer
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	p := &RealPublisher{
		pending: newRingBuffer(offlineBufferSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("air-monitor").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) {
			p.replay()
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// Publish sends a fused reading to the broker at QoS 0. While the
// connection is down the reading is buffered instead of dropped.
func (p *RealPublisher) Publish(reading fusion.Reading) error {
	payload, err := FormatPayload(reading)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(Topic, payload, 0, false)
}

// PublishSystem sends a lifecycle event at QoS 1 — shutdown events in
// particular want delivery confirmation.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(TopicSystem, payload, 1, event.Retained)
}

func (p *RealPublisher) send(topic string, payload []byte, qos byte, retained bool) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.pending.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return fmt.Errorf("broker unreachable, buffered (%s)", topic)
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// replay flushes buffered messages after a reconnect, oldest first.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	msgs := p.pending.drainAll()
	p.mu.Unlock()

	for _, m := range msgs {
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		token.WaitTimeout(5 * time.Second)
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
