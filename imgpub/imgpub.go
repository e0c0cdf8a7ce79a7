/*Package imgpub publishes camera frames and settings over MQTT.

Frames go to <prefix>/image as base64 encoded JPEG.  Parameter snapshots go
to <prefix>/params as JSON.
*/
package imgpub

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nasa-jpl/hikcam/camera"
	"github.com/nasa-jpl/hikcam/hikcam"
	"github.com/nasa-jpl/hikcam/imgconv"
)

// ErrTimeout is returned when the broker does not acknowledge in time
var ErrTimeout = errors.New("mqtt: timed out waiting for the broker")

// Client is the part of mqtt.Client the publisher uses
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Config describes the broker connection
type Config struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883
	Broker string `yaml:"Broker" koanf:"Broker"`

	// ClientID identifies this publisher to the broker.  Empty generates a
	// unique one, so several publishers can share a broker.
	ClientID string `yaml:"ClientID" koanf:"ClientID"`

	// Prefix is prepended to every topic
	Prefix string `yaml:"Prefix" koanf:"Prefix"`

	// QoS is the MQTT quality of service for every message
	QoS byte `yaml:"QoS" koanf:"QoS"`

	// Timeout bounds the wait for connection and for each acknowledgement
	Timeout time.Duration `yaml:"Timeout" koanf:"Timeout"`
}

// clientID is c.ClientID, or hikcam-<random> when that is empty
func (c Config) clientID() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return "hikcam-" + uuid.NewString()[:8]
}

// Dial connects to the broker in c
func Dial(c Config) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().AddBroker(c.Broker).SetClientID(c.clientID())
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetAutoReconnect(true)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("mqtt connection to %s lost: %v", c.Broker, err)
	}
	cl := mqtt.NewClient(opts)
	tok := cl.Connect()
	if !tok.WaitTimeout(c.Timeout) {
		return nil, fmt.Errorf("connect to %s: %w", c.Broker, ErrTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", c.Broker, err)
	}
	return cl, nil
}

// Publisher sends frames and parameters to a broker
type Publisher struct {
	Client Client

	Prefix string

	QoS byte

	// Timeout bounds the wait for each acknowledgement.  Zero waits forever.
	Timeout time.Duration
}

// New returns a publisher using the topic settings in c
func New(cl Client, c Config) *Publisher {
	return &Publisher{Client: cl, Prefix: c.Prefix, QoS: c.QoS, Timeout: c.Timeout}
}

// Topic is the full topic for a leaf name
func (p *Publisher) Topic(leaf string) string {
	if p.Prefix == "" {
		return leaf
	}
	return p.Prefix + "/" + leaf
}

func (p *Publisher) publish(topic string, payload []byte) error {
	tok := p.Client.Publish(topic, p.QoS, false, payload)
	if p.Timeout > 0 {
		if !tok.WaitTimeout(p.Timeout) {
			return fmt.Errorf("publish to %s: %w", topic, ErrTimeout)
		}
	} else {
		tok.Wait()
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// PublishImage sends img as base64 JPEG to <prefix>/image
func (p *Publisher) PublishImage(img *imgconv.BGR) error {
	b, err := imgconv.EncodeJPEG(img)
	if err != nil {
		return err
	}
	b64 := make([]byte, base64.StdEncoding.EncodedLen(len(b)))
	base64.StdEncoding.Encode(b64, b)
	return p.publish(p.Topic("image"), b64)
}

// PublishParams sends params as JSON to <prefix>/params
func (p *Publisher) PublishParams(params hikcam.CameraParams) error {
	b, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return p.publish(p.Topic("params"), b)
}

// Grab takes one frame from g and publishes it.  When pc is not nil the
// camera's parameters are published alongside.
func (p *Publisher) Grab(g camera.Grabber, pc camera.ParamController, trigger bool, timeout time.Duration) error {
	var (
		img *imgconv.BGR
		err error
	)
	if trigger {
		img, err = g.TriggerAndGetImage(timeout)
	} else {
		img, err = g.GetImage(timeout)
	}
	if err != nil {
		return err
	}
	if err := p.PublishImage(img); err != nil {
		return err
	}
	if pc == nil {
		return nil
	}
	params, err := pc.GetParams()
	if err != nil {
		return err
	}
	return p.PublishParams(params)
}
