package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/notify"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/admin/orders/live?token=" + token
}

func TestLiveOrdersFeed(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.g.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(liveURL(srv, h.adminToken), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.live.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.live.Publish(notify.LiveEvent{Type: "order.created", Order: models.Order{OrderNumber: "BK-20240510-ABCDEF12"}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event notify.LiveEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "order.created", event.Type)
	assert.Equal(t, "BK-20240510-ABCDEF12", event.Order.OrderNumber)

	conn.Close()
	require.Eventually(t, func() bool { return h.live.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLiveOrdersRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.g.Handler())
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(liveURL(srv, h.userToken), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(liveURL(srv, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLiveHubClose(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.g.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(liveURL(srv, h.adminToken), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.live.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.live.Close()
	assert.Equal(t, 0, h.live.Clients())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	// New clients are turned away once the hub is closed.
	late, _, err := websocket.DefaultDialer.Dial(liveURL(srv, h.adminToken), nil)
	require.NoError(t, err)
	defer late.Close()
	_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
