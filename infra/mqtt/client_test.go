package mqtt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/epsim/core/command"
	"github.com/kilianp07/epsim/core/eps"
	coremqtt "github.com/kilianp07/epsim/core/mqtt"
	"github.com/kilianp07/epsim/core/telemetry"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	require.NoError(t, os.WriteFile(certFile, certPEM, 0644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0644))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0644))
	return
}

func stubClient(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	assert.NotEmpty(t, tlsCfg.Certificates)
	assert.NotNil(t, tlsCfg.RootCAs)

	_, err = Config{UseTLS: true}.LoadTLSConfig()
	assert.Error(t, err)
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"}, coremqtt.Topics{Run: "r"})
	require.NoError(t, err)
	assert.Equal(t, "u", opts.Username)
	assert.Equal(t, "p", opts.Password)
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	assert.Contains(t, cfg.ClientID, "epsim-")
	assert.Equal(t, "eps", cfg.TopicPrefix)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.NoError(t, cfg.Validate())

	cfg.Enabled = true
	assert.Error(t, cfg.Validate())
	cfg.Broker = "tcp://localhost:1883"
	assert.NoError(t, cfg.Validate())
	cfg.QoS = map[string]byte{"telemetry": 3}
	assert.Error(t, cfg.Validate())
}

func TestSubscribesAndLWT(t *testing.T) {
	mc := &mockClient{}
	stubClient(t, mc)
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", QoS: map[string]byte{"command": 1}, LWTQoS: 1, LWTRetain: true}
	cli, err := NewPahoClient(cfg, "night")
	require.NoError(t, err)

	require.Len(t, mc.subscribed, 2)
	assert.Equal(t, "eps/night/switch/set", mc.subscribed[0].topic)
	assert.Equal(t, byte(1), mc.subscribed[0].qos)
	assert.Equal(t, "eps/night/panels/set", mc.subscribed[1].topic)

	assert.True(t, mc.opts.WillEnabled)
	assert.Equal(t, "eps/night/status", mc.opts.WillTopic)
	assert.Equal(t, "offline", string(mc.opts.WillPayload))

	require.NotEmpty(t, mc.published)
	assert.Equal(t, "online", mc.published[0].payload)

	cli.Disconnect()
	last := mc.published[len(mc.published)-1]
	assert.Equal(t, "offline", last.payload)
	_, open := <-cli.Commands()
	assert.False(t, open)
	cli.Disconnect()
}

func TestCommandsDelivered(t *testing.T) {
	mc := &mockClient{}
	stubClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"}, "r1")
	require.NoError(t, err)
	defer cli.Disconnect()

	mc.deliver("eps/r1/switch/set", `{"index":7,"enabled":true}`)
	mc.deliver("eps/r1/switch/set", `{"index":"x"}`)
	mc.deliver("eps/r1/panels/set", `{"command_id":"c2","capacity":[0,0,26.91,26.91,26.91]}`)
	mc.deliver("eps/r1/panels/set", `{"capacity":[1,2]}`)

	c := <-cli.Commands()
	assert.Equal(t, command.KindSwitch, c.Kind)
	assert.Equal(t, 7, c.Index)
	assert.True(t, c.Enabled)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "mqtt", c.Source)

	c = <-cli.Commands()
	assert.Equal(t, command.KindPanels, c.Kind)
	assert.Equal(t, "c2", c.ID)
	assert.Equal(t, [eps.NumFacets]float64{0, 0, 26.91, 26.91, 26.91}, c.Capacity)

	select {
	case extra := <-cli.Commands():
		t.Fatalf("unexpected command %v", extra)
	default:
	}
}

func TestCommandQueueFullDrops(t *testing.T) {
	mc := &mockClient{}
	stubClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", CommandBuffer: 1}, "r")
	require.NoError(t, err)
	mc.deliver("eps/r/switch/set", `{"index":1,"enabled":true}`)
	mc.deliver("eps/r/switch/set", `{"index":2,"enabled":true}`)
	c := <-cli.Commands()
	assert.Equal(t, 1, c.Index)
	assert.Len(t, cli.Commands(), 0)
}

func TestDecodeErrors(t *testing.T) {
	_, err := DecodeSwitch([]byte(`{"enabled":true}`))
	assert.True(t, errors.Is(err, coremqtt.ErrInvalidCommand))
	_, err = DecodeSwitch([]byte(`not json`))
	assert.True(t, errors.Is(err, coremqtt.ErrInvalidCommand))
	_, err = DecodePanels([]byte(`{"capacity":[1,2,3,4,5,6]}`))
	assert.True(t, errors.Is(err, coremqtt.ErrInvalidCommand))
}

func TestDecodePanelsRejectsNegativeCapacity(t *testing.T) {
	_, err := DecodePanels([]byte(`{"capacity":[26.91,-1,26.91,26.91,26.91]}`))
	assert.ErrorIs(t, err, coremqtt.ErrInvalidCommand)

	c, err := DecodePanels([]byte(`{"capacity":[0,0,26.91,26.91,26.91]}`))
	require.NoError(t, err)
	assert.Equal(t, 26.91, c.Capacity[2])
}

func TestNegativePanelsCommandIsDropped(t *testing.T) {
	mc := &mockClient{}
	stubClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"}, "r")
	require.NoError(t, err)

	mc.deliver("eps/r/panels/set", `{"capacity":[1,1,1,1,-5]}`)
	assert.Len(t, cli.Commands(), 0)
	mc.deliver("eps/r/panels/set", `{"capacity":[1,1,1,1,5]}`)
	assert.Len(t, cli.Commands(), 1)
}

func TestPublishStep(t *testing.T) {
	mc := &mockClient{}
	stubClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", QoS: map[string]byte{"telemetry": 2}}, "r")
	require.NoError(t, err)
	before := len(mc.published)

	ev := telemetry.StepEvent{RunID: "id-1", Run: "r", Step: 3, Elapsed: 30, InSun: true}
	ev.Snapshot.SOC = 0.5
	require.NoError(t, cli.PublishStep(ev))
	require.Len(t, mc.published, before+1)
	p := mc.published[before]
	assert.Equal(t, "eps/r/telemetry", p.topic)
	assert.Equal(t, byte(2), p.qos)

	var got telemetry.StepEvent
	require.NoError(t, json.Unmarshal([]byte(p.payload), &got))
	assert.Equal(t, 3, got.Step)
	assert.Equal(t, 0.5, got.Snapshot.SOC)
}

func TestPublishRetry(t *testing.T) {
	mc := &mockClient{}
	stubClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1}, "r")
	require.NoError(t, err)
	before := len(mc.published)

	mc.publishErrs = []error{fmt.Errorf("net fail"), nil}
	require.NoError(t, cli.PublishStep(telemetry.StepEvent{}))
	assert.Len(t, mc.published, before+2)

	mc.publishErrs = []error{fmt.Errorf("net fail"), fmt.Errorf("net fail")}
	err = cli.PublishStep(telemetry.StepEvent{})
	assert.True(t, errors.Is(err, coremqtt.ErrPublishFailed))
}

type published struct {
	topic   string
	qos     byte
	payload string
}

// mockClient implements pahoClient and paho.Client for tests
type mockClient struct {
	mu         sync.Mutex
	opts       *paho.ClientOptions
	subscribed []struct {
		topic string
		qos   byte
	}
	handlers    map[string]paho.MessageHandler
	published   []published
	publishErrs []error
}

func (m *mockClient) deliver(topic, payload string) {
	m.mu.Lock()
	h := m.handlers[topic]
	m.mu.Unlock()
	if h != nil {
		h(m, mockMessage{topic: topic, p: []byte(payload)})
	}
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s string
	switch v := payload.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	}
	m.published = append(m.published, published{topic, qos, s})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, qos byte, h paho.MessageHandler) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, struct {
		topic string
		qos   byte
	}{topic, qos})
	if m.handlers == nil {
		m.handlers = make(map[string]paho.MessageHandler)
	}
	m.handlers[topic] = h
	return &dummyToken{}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return true }

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type mockMessage struct {
	topic string
	p     []byte
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}
