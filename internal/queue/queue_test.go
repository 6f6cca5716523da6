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
	lat := 1.5
	msg, err := NewEventMessage(EventJob{EventID: "evt-1", Photo: "data:image/jpeg;base64,abc", Latitude: &lat})
	if err != nil {
		t.Fatalf("NewEventMessage: %v", err)
	}
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	select {
	case got := <-out:
		if got.Type != "event" {
			t.Errorf("Type = %q, want %q", got.Type, "event")
		}
		job, err := got.Job()
		if err != nil {
			t.Fatalf("Job: %v", err)
		}
		if job.EventID != "evt-1" {
			t.Errorf("EventID = %q, want %q", job.EventID, "evt-1")
		}
		if job.Latitude == nil || *job.Latitude != 1.5 {
			t.Errorf("Latitude = %v, want 1.5", job.Latitude)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(0) // unbuffered: publish blocks without a consumer
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	msg, _ := NewEventMessage(EventJob{EventID: "evt-2"})
	if err := q.Publish(ctx, msg); err == nil {
		t.Fatal("expected context error when the queue is full")
	}
}
