package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"closed connection", errors.New("connection closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"dial", errors.New("dial AMQP: no route"), true},
		{"other", errors.New("some other error"), false},
		{"validation", errors.New("invalid input"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit breaker should be closed initially")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 3)
		atomic.StoreInt32(&client.state, StateOpen)
		client.recordSuccess()
		if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("success should close the circuit and reset failures")
		}
	})

	t.Run("multiple failures open circuit", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		atomic.StoreInt32(&client.state, StateClosed)
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("circuit breaker should be open after max failures")
		}
	})

	t.Run("half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)
		if client.isCircuitOpen() {
			t.Error("circuit should transition to half-open after timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be half-open")
		}
	})

	t.Run("stays open within timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()
		if !client.isCircuitOpen() {
			t.Error("circuit should remain open within timeout")
		}
	})
}

func TestClient_PublishFailsFast(t *testing.T) {
	client := &Client{exchangeName: "x", queueName: "q"}
	msg := NewLedgerChanged(OpEdit, "A", 3)

	t.Run("circuit open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()
		err := client.PublishLedgerChanged(context.Background(), msg)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("expected ErrCircuitOpen, got %v", err)
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateClosed)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := client.PublishLedgerChanged(ctx, msg); err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLedgerChangedJSON(t *testing.T) {
	msg := NewLedgerChanged(OpRename, "工地A", 12)
	if msg.ID == "" || msg.Timestamp.IsZero() {
		t.Fatalf("id and timestamp should be set: %+v", msg)
	}

	b, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	back, err := LedgerChangedFromJSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if back.ID != msg.ID || back.Op != OpRename || back.Project != "工地A" || back.Rows != 12 {
		t.Fatalf("round trip mismatch %+v", back)
	}
	if !back.Timestamp.Equal(msg.Timestamp) {
		t.Fatalf("timestamp mismatch")
	}
}

func TestLedgerChangedFromJSONRejectsGarbage(t *testing.T) {
	for _, in := range []string{`{"rows":"x"}`, `{"id":"1"}`, `nope`} {
		if _, err := LedgerChangedFromJSON([]byte(in)); err == nil {
			t.Fatalf("%s: expected error", in)
		} else if strings.TrimSpace(err.Error()) == "" {
			t.Fatalf("empty error")
		}
	}
}
