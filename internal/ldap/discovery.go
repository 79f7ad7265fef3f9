package ldap

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
)

// SRVDiscovery locates directory servers for a domain via DNS SRV
// records, preferring LDAPS over plain LDAP.
type SRVDiscovery struct {
	resolver *net.Resolver
	log      *slog.Logger
}

// NewSRVDiscovery creates a discovery instance using the default DNS
// resolver.
func NewSRVDiscovery(log *slog.Logger) *SRVDiscovery {
	if log == nil {
		log = slog.Default()
	}
	return &SRVDiscovery{
		resolver: net.DefaultResolver,
		log:      log,
	}
}

// DiscoverServers resolves SRV records for the domain in preference
// order: _ldaps._tcp first, then _ldap._tcp. When no records exist the
// domain itself is returned with the standard ports as a fallback.
func (d *SRVDiscovery) DiscoverServers(ctx context.Context, domain string) ([]*ServerInfo, error) {
	if domain == "" {
		return nil, fmt.Errorf("domain cannot be empty")
	}

	records := []struct {
		service string
		useTLS  bool
	}{
		{"_ldaps._tcp." + domain, true},
		{"_ldap._tcp." + domain, false},
	}

	var servers []*ServerInfo
	for _, record := range records {
		found, err := d.lookupSRV(ctx, record.service, record.useTLS)
		if err != nil {
			d.log.Debug("SRV lookup failed", "service", record.service, "error", err)
			continue
		}
		servers = append(servers, found...)

		// LDAPS records found; no reason to fall back to plain LDAP.
		if record.useTLS && len(found) > 0 {
			break
		}
	}

	if len(servers) == 0 {
		d.log.Debug("no SRV records found, using standard ports", "domain", domain)
		return fallbackServers(domain), nil
	}

	sortServersByPriority(servers)
	return servers, nil
}

func (d *SRVDiscovery) lookupSRV(ctx context.Context, service string, useTLS bool) ([]*ServerInfo, error) {
	_, srvRecords, err := d.resolver.LookupSRV(ctx, "", "", service)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup failed for %s: %w", service, err)
	}
	if len(srvRecords) == 0 {
		return nil, fmt.Errorf("no SRV records found for %s", service)
	}

	servers := make([]*ServerInfo, 0, len(srvRecords))
	for _, srv := range srvRecords {
		servers = append(servers, &ServerInfo{
			Host:     strings.TrimSuffix(srv.Target, "."),
			Port:     int(srv.Port),
			UseTLS:   useTLS,
			Priority: int(srv.Priority),
			Weight:   int(srv.Weight),
			Source:   "srv",
		})
	}
	return servers, nil
}

func fallbackServers(domain string) []*ServerInfo {
	return []*ServerInfo{
		{Host: domain, Port: 636, UseTLS: true, Priority: 0, Weight: 100, Source: "fallback"},
		{Host: domain, Port: 389, UseTLS: false, Priority: 1, Weight: 100, Source: "fallback"},
	}
}

// sortServersByPriority orders servers per RFC 2782: ascending priority,
// then descending weight within a priority.
func sortServersByPriority(servers []*ServerInfo) {
	sort.Slice(servers, func(i, j int) bool {
		if servers[i].Priority != servers[j].Priority {
			return servers[i].Priority < servers[j].Priority
		}
		return servers[i].Weight > servers[j].Weight
	})
}

// ValidateServerInfo checks a server description for obvious mistakes.
func ValidateServerInfo(server *ServerInfo) error {
	if server == nil {
		return fmt.Errorf("server info cannot be nil")
	}
	if server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if server.Port <= 0 || server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", server.Port)
	}
	return nil
}

// ServerInfoToURL formats a server as an LDAP URL.
func ServerInfoToURL(server *ServerInfo) string {
	scheme := "ldap"
	if server.UseTLS {
		scheme = "ldaps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, server.Host, server.Port)
}

// ParseLDAPURL parses an ldap:// or ldaps:// URL into a ServerInfo,
// applying the standard port when none is given.
func ParseLDAPURL(url string) (*ServerInfo, error) {
	if url == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}

	var useTLS bool
	switch {
	case strings.HasPrefix(url, "ldaps://"):
		useTLS = true
		url = strings.TrimPrefix(url, "ldaps://")
	case strings.HasPrefix(url, "ldap://"):
		url = strings.TrimPrefix(url, "ldap://")
	default:
		return nil, fmt.Errorf("unsupported scheme, must be ldap:// or ldaps://")
	}

	// Strip any path component.
	if idx := strings.Index(url, "/"); idx != -1 {
		url = url[:idx]
	}

	host := url
	port := 389
	if useTLS {
		port = 636
	}

	if strings.Contains(url, ":") {
		h, p, err := net.SplitHostPort(url)
		if err != nil {
			return nil, fmt.Errorf("invalid URL format: %w", err)
		}
		host = h
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %s", p)
		}
	}

	server := &ServerInfo{
		Host:   host,
		Port:   port,
		UseTLS: useTLS,
		Weight: 100,
		Source: "config",
	}
	return server, ValidateServerInfo(server)
}
