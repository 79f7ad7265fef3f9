package ldap

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Conn is the subset of the go-ldap connection surface the authenticator
// depends on. *ldap.Conn implements it; tests substitute fakes.
type Conn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

var _ Conn = &ldap.Conn{}

// Dialer opens a single connection to a directory server. Every
// authentication phase dials its own connection and closes it before
// returning; connections are never shared or pooled.
type Dialer interface {
	Dial(ctx context.Context, server *ServerInfo) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, server *ServerInfo) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, server *ServerInfo) (Conn, error) {
	return f(ctx, server)
}

// ServerInfo describes one directory server endpoint.
type ServerInfo struct {
	Host     string
	Port     int
	UseTLS   bool
	Priority int
	Weight   int
	Source   string // "srv", "config", "fallback"
}

// DialConfig holds transport settings for opening directory connections.
type DialConfig struct {
	Timeout   time.Duration // connect timeout; also bounds search/bind operations
	TLSConfig *tls.Config   // nil means library defaults (full verification)
	StartTLS  bool          // upgrade plain connections with StartTLS
}

// DefaultDialConfig returns transport defaults: a bounded timeout and
// TLS 1.2 minimum with certificate verification enabled.
func DefaultDialConfig() *DialConfig {
	return &DialConfig{
		Timeout: 10 * time.Second,
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		StartTLS: true,
	}
}
