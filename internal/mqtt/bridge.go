package mqtt

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/aeroguard/aeroguard-api/internal/config"
	"github.com/aeroguard/aeroguard-api/internal/ingest"
	"github.com/aeroguard/aeroguard-api/internal/service"
)

// Bridge subscribes to the sensor-network MQTT topic and feeds every
// published payload through the same ingest pipeline as HTTP. Field
// nodes prefer MQTT; HTTP POST is their fallback transport.
type Bridge struct {
	client        paho.Client
	topic         string
	ingestService *service.IngestService
}

func NewBridge(cfg config.MQTTConfig, ingestService *service.IngestService) (*Bridge, error) {
	broker := strings.TrimSpace(cfg.Broker)
	if strings.HasPrefix(broker, "mqtt://") {
		broker = "tcp://" + strings.TrimPrefix(broker, "mqtt://")
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Printf("⚠️  MQTT connection lost: %v", err)
	}

	b := &Bridge{topic: cfg.Topic, ingestService: ingestService}
	// Resubscribe on every (re)connect; paho drops subscriptions with
	// CleanSession enabled.
	opts.OnConnect = func(c paho.Client) {
		log.Printf("✅ MQTT connected to %s", broker)
		tok := c.Subscribe(b.topic, 1, b.handleMessage)
		tok.Wait()
		if err := tok.Error(); err != nil {
			log.Printf("❌ MQTT subscribe to %s failed: %v", b.topic, err)
		}
	}

	b.client = paho.NewClient(opts)
	tok := b.client.Connect()
	if ok := tok.WaitTimeout(15 * time.Second); !ok {
		return nil, errors.New("mqtt connect timed out")
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bridge) handleMessage(_ paho.Client, msg paho.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := b.ingestService.Ingest(ctx, msg.Payload()); err != nil {
		switch {
		case errors.Is(err, service.ErrSignatureMismatch):
			log.Printf("⚠️  MQTT message on %s rejected: invalid signature", msg.Topic())
		case errors.Is(err, ingest.ErrInvalidPayload), errors.Is(err, ingest.ErrMissingDeviceID):
			log.Printf("⚠️  MQTT message on %s rejected: %v", msg.Topic(), err)
		default:
			log.Printf("❌ Failed to ingest MQTT message on %s: %v", msg.Topic(), err)
		}
	}
}

// Close disconnects from the broker, allowing in-flight work to finish.
func (b *Bridge) Close() {
	if b == nil || b.client == nil {
		return
	}
	b.client.Disconnect(1000)
}
