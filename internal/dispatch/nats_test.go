//go:build integration

package dispatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txguard/internal/platform/config"
	natsconn "txguard/internal/platform/nats"
	"txguard/pkg/testutil/containers"
)

func TestNATSSink_PublishesAlert(t *testing.T) {
	nc := containers.NewNATSContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := config.Default().NATS
	cfg.URL = nc.URL
	conn, err := natsconn.Connect(cfg, nil)
	require.NoError(t, err)
	defer conn.Close()

	const subject = "txguard.alerts"
	sub, err := conn.SubscribeSync(subject)
	require.NoError(t, err)
	require.NoError(t, conn.Flush())

	n := blockNotification()
	require.NoError(t, NewNATSSink(conn, subject).Notify(ctx, n))

	msg, err := sub.NextMsgWithContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, n.ID, msg.Header.Get("Nats-Msg-Id"))
	assert.Equal(t, "BLOCK", msg.Header.Get("Verdict"))

	var got Notification
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, n.Verdict.TransactionID, got.Verdict.TransactionID)
}

func TestNATSSink_FailsOnClosedConnection(t *testing.T) {
	nc := containers.NewNATSContainer(t)
	cfg := config.Default().NATS
	cfg.URL = nc.URL
	conn, err := natsconn.Connect(cfg, nil)
	require.NoError(t, err)
	conn.Close()

	err = NewNATSSink(conn, "txguard.alerts").Notify(context.Background(), blockNotification())
	assert.ErrorContains(t, err, "publish notification")
}
