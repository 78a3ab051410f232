package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/epsim/core/command"
	"github.com/kilianp07/epsim/core/eps"
	coremqtt "github.com/kilianp07/epsim/core/mqtt"
	"github.com/kilianp07/epsim/core/telemetry"
	"github.com/kilianp07/epsim/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled       bool            `json:"enabled"`
	Broker        string          `json:"broker"`
	ClientID      string          `json:"client_id"`
	Username      string          `json:"username"`
	Password      string          `json:"password"`
	TopicPrefix   string          `json:"topic_prefix"`
	UseTLS        bool            `json:"use_tls"`
	ClientCert    string          `json:"client_cert"`
	ClientKey     string          `json:"client_key"`
	CABundle      string          `json:"ca_bundle"`
	AuthMethod    string          `json:"auth_method"`
	QoS           map[string]byte `json:"qos"`
	LWTPayload    string          `json:"lwt_payload"`
	LWTQoS        byte            `json:"lwt_qos"`
	LWTRetain     bool            `json:"lwt_retain"`
	MaxRetries    int             `json:"max_retries"`
	BackoffMS     int             `json:"backoff_ms"`
	CommandBuffer int             `json:"command_buffer"`
	TLSConfig     *tls.Config     `json:"-"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "epsim-" + uuid.NewString()
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = coremqtt.DefaultPrefix
	}
	if c.LWTPayload == "" {
		c.LWTPayload = "offline"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
	if c.CommandBuffer <= 0 {
		c.CommandBuffer = 32
	}
}

// Validate checks the connection settings when the bridge is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	for k, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("mqtt.qos.%s must be 0, 1 or 2", k)
		}
	}
	if c.LWTQoS > 2 {
		return fmt.Errorf("mqtt.lwt_qos must be 0, 1 or 2")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient implements core/mqtt.Client using Eclipse Paho.
type PahoClient struct {
	cli    pahoClient
	topics coremqtt.Topics
	qos    map[string]byte
	cmds   chan command.Command
	logger logger.Logger

	lwtPayload string
	lwtQoS     byte
	lwtRetain  bool
	maxRetries int
	backoff    time.Duration

	mu     sync.Mutex
	closed bool
}

var _ coremqtt.Client = (*PahoClient)(nil)

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the broker and subscribes to the command topics
// of run.
func NewPahoClient(cfg Config, run string) (*PahoClient, error) {
	cfg.SetDefaults()
	topics := coremqtt.Topics{Prefix: cfg.TopicPrefix, Run: run}
	opts, err := NewClientOptions(cfg, topics)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		topics:     topics,
		qos:        cfg.QoS,
		cmds:       make(chan command.Command, cfg.CommandBuffer),
		logger:     log,
		lwtPayload: cfg.LWTPayload,
		lwtQoS:     cfg.LWTQoS,
		lwtRetain:  cfg.LWTRetain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		qos := pc.qosFor("command")
		if token := c.Subscribe(topics.SwitchSet(), qos, pc.onSwitch); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s: %v", topics.SwitchSet(), token.Error())
		}
		if token := c.Subscribe(topics.PanelsSet(), qos, pc.onPanels); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s: %v", topics.PanelsSet(), token.Error())
		}
		c.Publish(topics.Status(), pc.lwtQoS, pc.lwtRetain, "online")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	pc.cli = c
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config. The will message
// marks the run offline on the status topic.
func NewClientOptions(cfg Config, topics coremqtt.Topics) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTPayload != "" {
		opts.SetWill(topics.Status(), cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

// DecodeSwitch parses a switch/set payload.
func DecodeSwitch(payload []byte) (command.Command, error) {
	var m struct {
		CommandID string `json:"command_id"`
		Index     *int   `json:"index"`
		Enabled   *bool  `json:"enabled"`
	}
	if err := json.Unmarshal(payload, &m); err != nil {
		return command.Command{}, fmt.Errorf("%w: %v", coremqtt.ErrInvalidCommand, err)
	}
	if m.Index == nil || m.Enabled == nil {
		return command.Command{}, fmt.Errorf("%w: index and enabled are required", coremqtt.ErrInvalidCommand)
	}
	c := command.SetSwitch(*m.Index, *m.Enabled)
	c.ID = commandID(m.CommandID)
	c.Source = "mqtt"
	return c, nil
}

// DecodePanels parses a panels/set payload.
func DecodePanels(payload []byte) (command.Command, error) {
	var m struct {
		CommandID string    `json:"command_id"`
		Capacity  []float64 `json:"capacity"`
	}
	if err := json.Unmarshal(payload, &m); err != nil {
		return command.Command{}, fmt.Errorf("%w: %v", coremqtt.ErrInvalidCommand, err)
	}
	if len(m.Capacity) != eps.NumFacets {
		return command.Command{}, fmt.Errorf("%w: capacity needs %d values, got %d",
			coremqtt.ErrInvalidCommand, eps.NumFacets, len(m.Capacity))
	}
	var caps [eps.NumFacets]float64
	for i, v := range m.Capacity {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return command.Command{}, fmt.Errorf("%w: capacity[%d]=%v must be a finite value >= 0",
				coremqtt.ErrInvalidCommand, i, v)
		}
		caps[i] = v
	}
	c := command.SetPanels(caps)
	c.ID = commandID(m.CommandID)
	c.Source = "mqtt"
	return c, nil
}

func commandID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (p *PahoClient) onSwitch(_ paho.Client, msg paho.Message) {
	c, err := DecodeSwitch(msg.Payload())
	if err != nil {
		p.logger.Errorf("failed to decode switch command: %v", err)
		return
	}
	p.enqueue(c)
}

func (p *PahoClient) onPanels(_ paho.Client, msg paho.Message) {
	c, err := DecodePanels(msg.Payload())
	if err != nil {
		p.logger.Errorf("failed to decode panels command: %v", err)
		return
	}
	p.enqueue(c)
}

func (p *PahoClient) enqueue(c command.Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.cmds <- c:
		p.logger.Infof("received command %s: %s", c.ID, c)
	default:
		p.logger.Warnf("command queue full, dropping %s", c.ID)
	}
}

// Commands implements core/mqtt.Client.
func (p *PahoClient) Commands() <-chan command.Command { return p.cmds }

// PublishStep publishes ev as JSON on the telemetry topic, retrying with
// exponential backoff.
func (p *PahoClient) PublishStep(ev telemetry.StepEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	topic := p.topics.Telemetry()
	qos := p.qosFor("telemetry")
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published step %d to %s", ev.Step, topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("%w: %s: %v", coremqtt.ErrPublishFailed, topic, publishErr)
}

// Disconnect publishes the offline marker and closes the connection.
func (p *PahoClient) Disconnect() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.cmds)
	p.mu.Unlock()
	if p.cli != nil && p.cli.IsConnected() {
		if p.lwtPayload != "" {
			p.cli.Publish(p.topics.Status(), p.lwtQoS, p.lwtRetain, p.lwtPayload).Wait()
		}
		p.cli.Disconnect(250)
	}
}
