package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	if err := q.Publish(ctx, Message{Type: TypeReceipt, Body: []byte(`{"email":"a@b.com"}`)}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	select {
	case msg := <-msgs:
		if msg.Type != TypeReceipt || string(msg.Body) != `{"email":"a@b.com"}` {
			t.Errorf("got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	_ = q.Publish(ctx, Message{Type: TypeReceipt})

	cancel()
	if err := q.Publish(ctx, Message{Type: TypeReceipt}); err == nil {
		t.Fatal("expected context error when the queue is full and ctx cancelled")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"json body", Message{Type: TypeReceipt, Body: []byte(`{"amount":"₹50.00"}`)}},
		{"body containing pipes", Message{Type: TypeReceipt, Body: []byte(`a|b|c`)}},
		{"empty body", Message{Type: TypeReceipt, Body: []byte{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deserialize(serialize(tt.msg))
			if got.Type != tt.msg.Type || string(got.Body) != string(tt.msg.Body) {
				t.Errorf("round trip = %+v, want %+v", got, tt.msg)
			}
		})
	}
}
