package pubsub

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// TestPublisherPublishesJSON publishes against the in-process Pub/Sub fake.
func TestPublisherPublishesJSON(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	_, err = client.CreateTopic(ctx, "progress")
	require.NoError(t, err)

	pub := NewWithClient(client)
	t.Cleanup(func() { require.NoError(t, pub.Close()) })

	id, err := pub.Publish(ctx, "progress", map[string]int64{"value": 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.JSONEq(t, `{"value":3}`, string(msgs[0].Data))
	require.Equal(t, "progress", msgs[0].OrderingKey)
	require.Equal(t, "application/json", msgs[0].Attributes["content_type"])
}

func TestPublisherRequiresClient(t *testing.T) {
	t.Parallel()

	_, err := (&Publisher{}).Publish(context.Background(), "progress", 1)
	require.Error(t, err)

	_, err = New(context.Background(), "")
	require.Error(t, err)
}
