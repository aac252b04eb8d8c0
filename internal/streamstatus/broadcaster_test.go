package streamstatus_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/omars-lab/knowledge-agents/internal/streamstatus"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func TestPublishDeliversEventToSubscriber(t *testing.T) {
	broadcaster := streamstatus.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		broadcaster.Subscribe("req-1", conn)
		defer broadcaster.Unsubscribe("req-1", conn)

		// Block so the connection stays open long enough for the test's
		// Publish call and read to complete.
		conn.ReadMessage()
	}))
	defer server.Close()

	wsURL := "ws://" + strings.TrimPrefix(server.URL, "http://")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	broadcaster.Publish("req-1", streamstatus.StageRetrieve, time.Unix(0, 0))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event streamstatus.Event
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "req-1", event.RequestID)
	require.Equal(t, streamstatus.StageRetrieve, event.Stage)
}

func TestPublishToUnknownRequestIDIsANoOp(t *testing.T) {
	broadcaster := streamstatus.New()
	require.NotPanics(t, func() {
		broadcaster.Publish("no-such-request", streamstatus.StageDone, time.Unix(0, 0))
	})
}

func TestUnsubscribeStopsFurtherDelivery(t *testing.T) {
	broadcaster := streamstatus.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		broadcaster.Subscribe("req-2", conn)
		broadcaster.Unsubscribe("req-2", conn)
		conn.ReadMessage()
	}))
	defer server.Close()

	wsURL := "ws://" + strings.TrimPrefix(server.URL, "http://")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	broadcaster.Publish("req-2", streamstatus.StageDone, time.Unix(0, 0))

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var event streamstatus.Event
	err = conn.ReadJSON(&event)
	require.Error(t, err, "unsubscribed connection must not receive further events")
}
