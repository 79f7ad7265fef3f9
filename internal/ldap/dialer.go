package ldap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/go-ldap/ldap/v3"
)

// NetDialer is the production Dialer. It connects over TCP with the
// configured timeout, negotiating TLS directly for ldaps servers or via
// StartTLS for plain ones. The go-ldap library cannot dial with a
// context itself, so the TCP/TLS handshake is done here and the raw
// connection handed to ldap.NewConn.
type NetDialer struct {
	config *DialConfig
}

// NewNetDialer creates a dialer with the given transport configuration.
func NewNetDialer(config *DialConfig) *NetDialer {
	if config == nil {
		config = DefaultDialConfig()
	}
	return &NetDialer{config: config}
}

// Dial opens one connection to the given server. The caller owns the
// returned connection and must close it; cancelling ctx aborts the
// connect and handshake.
func (d *NetDialer) Dial(ctx context.Context, server *ServerInfo) (Conn, error) {
	if err := ValidateServerInfo(server); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(server.Host, strconv.Itoa(server.Port))
	tlsConfig := d.tlsConfigFor(server)

	if server.UseTLS {
		dialer := &tls.Dialer{
			NetDialer: &net.Dialer{Timeout: d.config.Timeout},
			Config:    tlsConfig,
		}
		raw, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, NewConnectionError(fmt.Sprintf("failed to connect to %s", ServerInfoToURL(server)), err)
		}
		return d.wrap(raw, true, nil)
	}

	dialer := &net.Dialer{Timeout: d.config.Timeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, NewConnectionError(fmt.Sprintf("failed to connect to %s", ServerInfoToURL(server)), err)
	}

	var startTLS *tls.Config
	if d.config.StartTLS {
		startTLS = tlsConfig
	}
	return d.wrap(raw, false, startTLS)
}

// wrap turns a raw network connection into an ldap.Conn, optionally
// upgrading with StartTLS, and applies the operation timeout.
func (d *NetDialer) wrap(raw net.Conn, isTLS bool, startTLS *tls.Config) (Conn, error) {
	conn := ldap.NewConn(raw, isTLS)
	conn.Start()

	if startTLS != nil {
		if err := conn.StartTLS(startTLS); err != nil {
			conn.Close()
			return nil, NewConnectionError("StartTLS negotiation failed", err)
		}
	}

	if d.config.Timeout > 0 {
		conn.SetTimeout(d.config.Timeout)
	}
	return conn, nil
}

// tlsConfigFor returns the TLS configuration with ServerName set for
// the target host so certificate verification matches the server.
func (d *NetDialer) tlsConfigFor(server *ServerInfo) *tls.Config {
	base := d.config.TLSConfig
	if base == nil {
		base = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	cfg := base.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = server.Host
	}
	return cfg
}

// DialFirst tries each server in order and returns the first connection
// that succeeds, along with the server it connected to. The last dial
// error is returned when all servers fail.
func DialFirst(ctx context.Context, d Dialer, servers []*ServerInfo) (Conn, *ServerInfo, error) {
	if len(servers) == 0 {
		return nil, nil, NewConnectionError("no directory servers available", nil)
	}

	var lastErr error
	for _, server := range servers {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		conn, err := d.Dial(ctx, server)
		if err != nil {
			lastErr = err
			continue
		}
		return conn, server, nil
	}
	return nil, nil, lastErr
}

// CloseOnCancel closes conn as soon as ctx is cancelled, aborting any
// in-flight search or bind. The returned release function stops the
// watcher and must be called exactly once, before the connection is
// closed normally; once release returns, the watcher will never close
// the connection, even if the cancellation raced it.
func CloseOnCancel(ctx context.Context, conn Conn) (release func()) {
	var mu sync.Mutex
	released := false
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			mu.Lock()
			defer mu.Unlock()
			if !released {
				conn.Close()
			}
		case <-done:
		}
	}()

	return func() {
		mu.Lock()
		released = true
		mu.Unlock()
		close(done)
	}
}
