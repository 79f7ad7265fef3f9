package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/isometry/dirauth/internal/ldap"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeConn records calls so tests can assert connection lifecycle and
// request contents without a live directory.
type fakeConn struct {
	mu sync.Mutex

	bindErr   error
	searchErr error
	searchRes *goldap.SearchResult

	bindCalls   []bindCall
	searchReqs  []*goldap.SearchRequest
	closeCalls  int
	searchCalls int
}

type bindCall struct {
	username string
	password string
}

func (c *fakeConn) Bind(username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindCalls = append(c.bindCalls, bindCall{username, password})
	return c.bindErr
}

func (c *fakeConn) Search(req *goldap.SearchRequest) (*goldap.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchCalls++
	c.searchReqs = append(c.searchReqs, req)
	if c.searchErr != nil {
		return c.searchRes, c.searchErr
	}
	if c.searchRes != nil {
		return c.searchRes, nil
	}
	return &goldap.SearchResult{}, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
	return nil
}

func (c *fakeConn) closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls > 0
}

// fakeDialer hands out the configured connections in order, recording
// how many were dialed.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
	dials int
}

func (d *fakeDialer) Dial(_ context.Context, _ *ldap.ServerInfo) (ldap.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if d.dials >= len(d.conns) {
		panic("fakeDialer: more dials than configured connections")
	}
	conn := d.conns[d.dials]
	d.dials++
	return conn, nil
}

func staticServers() serverSource {
	servers := []*ldap.ServerInfo{{Host: "ds.example.org", Port: 636, UseTLS: true, Source: "config"}}
	return func(context.Context) ([]*ldap.ServerInfo, error) {
		return servers, nil
	}
}

func searchEntries(entries ...*goldap.Entry) *goldap.SearchResult {
	return &goldap.SearchResult{Entries: entries}
}

func directoryEntry(dn string, attrs map[string]string) *goldap.Entry {
	entry := &goldap.Entry{DN: dn}
	for name, value := range attrs {
		entry.Attributes = append(entry.Attributes, &goldap.EntryAttribute{
			Name:   name,
			Values: []string{value},
		})
	}
	return entry
}
