package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gpiohub/internal/infrastructure/config"
)

const (
	// connectTimeout bounds one connection attempt.
	connectTimeout = 10 * time.Second

	// ackTimeout bounds the wait for a publish, subscribe or unsubscribe ack.
	ackTimeout = 5 * time.Second

	// disconnectQuiesce is how long Disconnect lets in-flight work finish, in ms.
	disconnectQuiesce = 1000

	defaultKeepAlive = 60 * time.Second

	maxQoS = 2

	// willQoS makes sure the broker stores the will.
	willQoS = 1
)

// brokerURL renders the broker address from the config.
func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
}

// clientOptions translates the hub's MQTT config into paho options.
//
// Sessions are clean and paho never reconnects or retries on its own; the
// connection supervisor drives both and re-subscribes each time. The will
// marks the hub offline on its status topic if it disappears without Close.
func clientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	keepAlive := defaultKeepAlive
	if cfg.KeepAlive > 0 {
		keepAlive = time.Duration(cfg.KeepAlive) * time.Second
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetBinaryWill(
			StatusTopic(cfg.Topic),
			statusPayload(cfg.Broker.ClientID, StatusOffline, ReasonUnexpected),
			willQoS,
			true,
		)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}
