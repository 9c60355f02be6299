package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// chanBroker is an in-process Broker for tests.
type chanBroker struct {
	ch chan []byte
}

func (b *chanBroker) Publish(ctx context.Context, userID primitive.ObjectID, payload any) error {
	b.ch <- payload.([]byte)
	return nil
}

func (b *chanBroker) Subscribe(ctx context.Context, userID primitive.ObjectID) (<-chan []byte, error) {
	return b.ch, nil
}

func TestStreamerForwardsMessages(t *testing.T) {
	broker := &chanBroker{ch: make(chan []byte, 1)}
	streamer := NewStreamer(broker, nil, zap.NewNop().Sugar())
	user := primitive.NewObjectID()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = streamer.Serve(w, r, user)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, broker.Publish(context.Background(), user, []byte(`{"kind":"like"}`)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"like"}`, string(msg))
}

func TestStreamerRejectsUnknownOrigin(t *testing.T) {
	broker := &chanBroker{ch: make(chan []byte)}
	streamer := NewStreamer(broker, []string{"https://app.example.com"}, zap.NewNop().Sugar())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = streamer.Serve(w, r, primitive.NewObjectID())
	}))
	defer srv.Close()

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestChannelName(t *testing.T) {
	id := primitive.NewObjectID()
	assert.Equal(t, "notifications:"+id.Hex(), Channel(id))
}
