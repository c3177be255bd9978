package fleetmq

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// will holds the last-will PUBLISH a client asks the broker to store
// at CONNECT time and emit on disconnect.
type will struct {
	Topic   string
	Payload []byte
	QoS     uint8
	Retain  bool
}

// options collects the configuration a Dial call assembles from
// functional Option values before performing the CONNECT handshake.
type options struct {
	ClientID       string
	Username       string
	Password       string
	CleanSession   bool
	ConnectTimeout time.Duration
	Logger         *zap.Logger
	Will           *will
}

func defaultOptions() *options {
	return &options{
		ClientID:       uuid.NewString(),
		CleanSession:   true,
		ConnectTimeout: 10 * time.Second,
		Logger:         zap.NewNop(),
	}
}

// Option configures a Client at Dial time.
type Option func(*options)

// WithClientID sets the MQTT client identifier. If not supplied, a
// random UUIDv4 string is used (matching how cmd/* assigns identifiers
// to processes that don't care what their ID is).
func WithClientID(id string) Option {
	return func(o *options) { o.ClientID = id }
}

// WithCredentials sets the username/password checked by the broker's
// authenticator.
func WithCredentials(username, password string) Option {
	return func(o *options) {
		o.Username = username
		o.Password = password
	}
}

// WithCleanSession controls the CONNECT clean-session flag. Default
// true. The broker ignores the value: after an involuntary disconnect
// it keeps the client's subscriptions for a reconnect with the same
// client id, and after a DISCONNECT it discards them.
func WithCleanSession(clean bool) Option {
	return func(o *options) { o.CleanSession = clean }
}

// WithConnectTimeout bounds how long Dial waits for the TCP dial and
// CONNACK round trip.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.ConnectTimeout = d }
}

// WithLogger attaches a structured logger. A nil logger is replaced by
// zap.NewNop() so callers never need a nil check.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = zap.NewNop()
		}
		o.Logger = logger
	}
}

// WithWill stores a last-will PUBLISH with the CONNECT packet. The
// broker publishes it on both voluntary (DISCONNECT) and involuntary
// (stream EOF) disconnect.
func WithWill(topic string, payload []byte, qos uint8, retain bool) Option {
	return func(o *options) {
		o.Will = &will{Topic: topic, Payload: payload, QoS: qos, Retain: retain}
	}
}
