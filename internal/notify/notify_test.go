package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ReceiptProcessed
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, e ReceiptProcessed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	ok := &recordingPublisher{}
	bad := &recordingPublisher{err: errors.New("broker down")}
	m := NewMulti(nil, bad, ok)

	err := m.Publish(context.Background(), ReceiptProcessed{ReceiptID: "r1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, ok.events, 1)
	assert.Len(t, bad.events, 1)

	require.NoError(t, m.Close())
	assert.True(t, ok.closed)
	assert.True(t, bad.closed)
}

type fakeNATS struct {
	subject string
	data    []byte
	flushed bool
}

func (f *fakeNATS) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return nil
}
func (f *fakeNATS) FlushWithContext(context.Context) error { f.flushed = true; return nil }
func (f *fakeNATS) Drain() error                           { return nil }

func TestNATSPublisher(t *testing.T) {
	conn := &fakeNATS{}
	p := newNATSPublisher(conn, "receipts.processed", discardLogger())

	err := p.Publish(context.Background(), ReceiptProcessed{ReceiptID: "r1", UserID: "alice", Items: 3})
	require.NoError(t, err)
	assert.Equal(t, "receipts.processed", conn.subject)
	assert.True(t, conn.flushed)

	var got map[string]any
	require.NoError(t, json.Unmarshal(conn.data, &got))
	assert.Equal(t, EventReceiptProcessed, got["event"])
	assert.Equal(t, "alice", got["user_id"])
}

func TestNATSPublisher_CanceledContext(t *testing.T) {
	p := newNATSPublisher(&fakeNATS{}, "s", discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, ReceiptProcessed{}), context.Canceled)
}

type fakeChannel struct {
	exchange, key string
	msg           amqp091.Publishing
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}
func (f *fakeChannel) Close() error { return nil }

func TestAMQPPublisher(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(ch, "receipts", "receipt.processed", discardLogger())

	require.NoError(t, p.Publish(context.Background(), ReceiptProcessed{ReceiptID: "r9"}))
	assert.Equal(t, "receipts", ch.exchange)
	assert.Equal(t, "receipt.processed", ch.key)
	assert.Equal(t, "r9", ch.msg.MessageId)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, ch.msg.DeliveryMode)
	require.NoError(t, p.Close())
}
