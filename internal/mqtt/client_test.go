package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtleson01/bird-app/internal/errors"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func pendingToken() *fakeToken { return &fakeToken{done: make(chan struct{})} }

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic    string
	retained bool
	payload  string
}

// fakePaho records publishes; methods not overridden panic through the nil
// embedded interface.
type fakePaho struct {
	paho.Client

	mu           sync.Mutex
	connected    bool
	connectErr   error
	publishToken paho.Token
	messages     []published
	options      *paho.ClientOptions
}

func (f *fakePaho) Connect() paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr == nil {
		f.connected = true
	}
	return completedToken(f.connectErr)
}

func (f *fakePaho) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePaho) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakePaho) Publish(topic string, _ byte, retained bool, payload any) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, published{topic: topic, retained: retained, payload: payload.(string)})
	if f.publishToken != nil {
		return f.publishToken
	}
	return completedToken(nil)
}

type recordingObserver struct {
	mu        sync.Mutex
	connected []bool
	errs      int
	sizes     []int
}

func (o *recordingObserver) UpdateConnectionStatus(c bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connected = append(o.connected, c)
}

func (o *recordingObserver) ObservePublish(size int, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.errs++
		return
	}
	o.sizes = append(o.sizes, size)
}

func newFakeClient(t *testing.T, fake *fakePaho, cfg Config) (Client, *recordingObserver) {
	t.Helper()
	obs := &recordingObserver{}
	if cfg.Broker == "" {
		cfg.Broker = "tcp://127.0.0.1:1883"
	}
	c := NewClient(cfg, nil, WithObserver(obs), withPahoFactory(func(o *paho.ClientOptions) paho.Client {
		fake.options = o
		return fake
	}))
	return c, obs
}

func TestConnectAndPublish(t *testing.T) {
	t.Parallel()

	fake := &fakePaho{}
	c, obs := newFakeClient(t, fake, Config{ClientID: "birddex-test", Username: "u", Retain: true})

	require.NoError(t, c.Connect(t.Context()))
	assert.True(t, c.IsConnected())
	assert.Equal(t, "birddex-test", fake.options.ClientID)
	assert.Equal(t, "u", fake.options.Username)
	assert.True(t, fake.options.AutoReconnect)

	require.NoError(t, c.Publish(t.Context(), "", `{"species":"까치"}`))
	require.NoError(t, c.Publish(t.Context(), "custom/topic", "x"))

	require.Len(t, fake.messages, 2)
	assert.Equal(t, "birddex/sightings", fake.messages[0].topic)
	assert.True(t, fake.messages[0].retained)
	assert.Equal(t, "custom/topic", fake.messages[1].topic)
	assert.Equal(t, []int{len(`{"species":"까치"}`), 1}, obs.sizes)

	c.Disconnect()
	assert.False(t, c.IsConnected())
	assert.Equal(t, []bool{true, false}, obs.connected)
}

func TestPublishWhileDisconnected(t *testing.T) {
	t.Parallel()

	fake := &fakePaho{}
	c, obs := newFakeClient(t, fake, Config{})

	err := c.Publish(t.Context(), "", "payload")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
	assert.Empty(t, fake.messages)
	assert.Equal(t, 1, obs.errs)
}

func TestConnectFailure(t *testing.T) {
	t.Parallel()

	fake := &fakePaho{connectErr: errors.NewStd("not authorized")}
	c, _ := newFakeClient(t, fake, Config{})

	err := c.Connect(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnection))
	assert.Contains(t, err.Error(), "not authorized")
	assert.False(t, c.IsConnected())
}

func TestConnectInvalidBroker(t *testing.T) {
	t.Parallel()

	c, _ := newFakeClient(t, &fakePaho{}, Config{Broker: "::not a url"})
	err := c.Connect(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestPublishTimeout(t *testing.T) {
	t.Parallel()

	fake := &fakePaho{publishToken: pendingToken()}
	c, obs := newFakeClient(t, fake, Config{PublishTimeout: 20 * time.Millisecond})
	require.NoError(t, c.Connect(t.Context()))

	err := c.Publish(t.Context(), "", "payload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
	assert.Equal(t, 1, obs.errs)
}

func TestPublishHonoursContext(t *testing.T) {
	t.Parallel()

	fake := &fakePaho{publishToken: pendingToken()}
	c, _ := newFakeClient(t, fake, Config{PublishTimeout: time.Minute})
	require.NoError(t, c.Connect(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	err := c.Publish(ctx, "", "payload")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
