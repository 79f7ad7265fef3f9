package ldap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// stubConn satisfies Conn for lifecycle tests.
type stubConn struct {
	mu     sync.Mutex
	closed int
}

func (c *stubConn) Bind(_, _ string) error { return nil }

func (c *stubConn) Search(_ *ldap.SearchRequest) (*ldap.SearchResult, error) {
	return &ldap.SearchResult{}, nil
}

func (c *stubConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *stubConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestDialFirst(t *testing.T) {
	servers := []*ServerInfo{
		{Host: "dc1.example.org", Port: 636, UseTLS: true},
		{Host: "dc2.example.org", Port: 636, UseTLS: true},
	}

	t.Run("first server wins", func(t *testing.T) {
		conn := &stubConn{}
		var dialed []string
		dialer := DialerFunc(func(_ context.Context, server *ServerInfo) (Conn, error) {
			dialed = append(dialed, server.Host)
			return conn, nil
		})

		got, server, err := DialFirst(context.Background(), dialer, servers)
		if err != nil {
			t.Fatalf("DialFirst() unexpected error: %v", err)
		}
		if got != conn {
			t.Error("DialFirst() returned unexpected connection")
		}
		if server.Host != "dc1.example.org" {
			t.Errorf("connected server = %q, want dc1", server.Host)
		}
		if len(dialed) != 1 {
			t.Errorf("dialed %d servers, want 1", len(dialed))
		}
	})

	t.Run("falls through to next server", func(t *testing.T) {
		conn := &stubConn{}
		dialer := DialerFunc(func(_ context.Context, server *ServerInfo) (Conn, error) {
			if server.Host == "dc1.example.org" {
				return nil, errors.New("connection refused")
			}
			return conn, nil
		})

		_, server, err := DialFirst(context.Background(), dialer, servers)
		if err != nil {
			t.Fatalf("DialFirst() unexpected error: %v", err)
		}
		if server.Host != "dc2.example.org" {
			t.Errorf("connected server = %q, want dc2", server.Host)
		}
	})

	t.Run("all servers fail", func(t *testing.T) {
		dialer := DialerFunc(func(_ context.Context, _ *ServerInfo) (Conn, error) {
			return nil, errors.New("connection refused")
		})

		_, _, err := DialFirst(context.Background(), dialer, servers)
		if err == nil {
			t.Error("DialFirst() expected error when every server fails")
		}
	})

	t.Run("no servers", func(t *testing.T) {
		dialer := DialerFunc(func(_ context.Context, _ *ServerInfo) (Conn, error) {
			t.Error("dialer must not be called with no servers")
			return nil, nil
		})

		_, _, err := DialFirst(context.Background(), dialer, nil)
		if err == nil {
			t.Error("DialFirst() expected error with no servers")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		dialer := DialerFunc(func(ctx context.Context, _ *ServerInfo) (Conn, error) {
			return nil, ctx.Err()
		})

		_, _, err := DialFirst(ctx, dialer, servers)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("DialFirst() error = %v, want context.Canceled", err)
		}
	})
}

func TestCloseOnCancel(t *testing.T) {
	t.Run("closes connection when context is cancelled", func(t *testing.T) {
		conn := &stubConn{}
		ctx, cancel := context.WithCancel(context.Background())

		release := CloseOnCancel(ctx, conn)
		defer release()

		cancel()

		deadline := time.After(2 * time.Second)
		for conn.closeCount() == 0 {
			select {
			case <-deadline:
				t.Fatal("connection not closed after cancellation")
			case <-time.After(5 * time.Millisecond):
			}
		}
	})

	t.Run("release stops the watchdog", func(t *testing.T) {
		// Cancelling right after release makes both select cases ready
		// at once; the watchdog must never pick the close path then.
		// Repeated to make the schedule race reliably observable.
		for i := 0; i < 200; i++ {
			conn := &stubConn{}
			ctx, cancel := context.WithCancel(context.Background())

			release := CloseOnCancel(ctx, conn)
			release()
			cancel()

			time.Sleep(time.Millisecond)
			if conn.closeCount() != 0 {
				t.Fatalf("connection closed after release (iteration %d)", i)
			}
		}
	})
}

func TestDefaultDialConfig(t *testing.T) {
	cfg := DefaultDialConfig()
	if cfg.Timeout <= 0 {
		t.Error("default timeout must be positive")
	}
	if cfg.TLSConfig == nil {
		t.Fatal("default TLS config missing")
	}
	if cfg.TLSConfig.InsecureSkipVerify {
		t.Error("certificate verification must be on by default")
	}
}
