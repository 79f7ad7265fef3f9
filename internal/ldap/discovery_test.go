package ldap

import (
	"testing"
)

func TestParseLDAPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantErr  bool
		wantHost string
		wantPort int
		wantTLS  bool
	}{
		{
			name:     "ldaps with port",
			url:      "ldaps://ds.example.org:3269",
			wantHost: "ds.example.org",
			wantPort: 3269,
			wantTLS:  true,
		},
		{
			name:     "ldaps default port",
			url:      "ldaps://ds.example.org",
			wantHost: "ds.example.org",
			wantPort: 636,
			wantTLS:  true,
		},
		{
			name:     "ldap default port",
			url:      "ldap://ds.example.org",
			wantHost: "ds.example.org",
			wantPort: 389,
			wantTLS:  false,
		},
		{
			name:     "path stripped",
			url:      "ldap://ds.example.org/dc=example,dc=org",
			wantHost: "ds.example.org",
			wantPort: 389,
		},
		{
			name:    "empty",
			url:     "",
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			url:     "http://ds.example.org",
			wantErr: true,
		},
		{
			name:    "bad port",
			url:     "ldap://ds.example.org:notaport",
			wantErr: true,
		},
		{
			name:    "port out of range",
			url:     "ldap://ds.example.org:70000",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := ParseLDAPURL(tt.url)

			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseLDAPURL(%q) expected error but got none", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLDAPURL(%q) unexpected error: %v", tt.url, err)
			}
			if server.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", server.Host, tt.wantHost)
			}
			if server.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", server.Port, tt.wantPort)
			}
			if server.UseTLS != tt.wantTLS {
				t.Errorf("UseTLS = %v, want %v", server.UseTLS, tt.wantTLS)
			}
		})
	}
}

func TestSortServersByPriority(t *testing.T) {
	servers := []*ServerInfo{
		{Host: "c", Priority: 10, Weight: 50},
		{Host: "a", Priority: 0, Weight: 10},
		{Host: "b", Priority: 0, Weight: 90},
		{Host: "d", Priority: 20, Weight: 100},
	}

	sortServersByPriority(servers)

	want := []string{"b", "a", "c", "d"}
	for i, host := range want {
		if servers[i].Host != host {
			t.Errorf("servers[%d].Host = %q, want %q", i, servers[i].Host, host)
		}
	}
}

func TestFallbackServers(t *testing.T) {
	servers := fallbackServers("example.org")

	if len(servers) != 2 {
		t.Fatalf("fallbackServers() returned %d servers, want 2", len(servers))
	}
	if !servers[0].UseTLS || servers[0].Port != 636 {
		t.Errorf("first fallback = %+v, want LDAPS on 636", servers[0])
	}
	if servers[1].UseTLS || servers[1].Port != 389 {
		t.Errorf("second fallback = %+v, want plain LDAP on 389", servers[1])
	}
}

func TestValidateServerInfo(t *testing.T) {
	tests := []struct {
		name    string
		server  *ServerInfo
		wantErr bool
	}{
		{"valid", &ServerInfo{Host: "ds.example.org", Port: 636}, false},
		{"nil", nil, true},
		{"empty host", &ServerInfo{Port: 636}, true},
		{"zero port", &ServerInfo{Host: "ds.example.org"}, true},
		{"port too large", &ServerInfo{Host: "ds.example.org", Port: 70000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServerInfo(tt.server)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateServerInfo() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerInfoToURL(t *testing.T) {
	tests := []struct {
		server *ServerInfo
		want   string
	}{
		{&ServerInfo{Host: "ds.example.org", Port: 636, UseTLS: true}, "ldaps://ds.example.org:636"},
		{&ServerInfo{Host: "ds.example.org", Port: 389}, "ldap://ds.example.org:389"},
	}

	for _, tt := range tests {
		if got := ServerInfoToURL(tt.server); got != tt.want {
			t.Errorf("ServerInfoToURL() = %q, want %q", got, tt.want)
		}
	}
}
