package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/api/models"
)

func TestStreamPushesSnapshots(t *testing.T) {
	loop, router := newServer(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, loop.Step())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var resp models.SnapshotResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, 1, resp.Tick)
	assert.Len(t, resp.Buses, 6)
}
