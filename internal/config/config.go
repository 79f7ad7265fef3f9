// Package config defines the directory endpoint configuration and its
// loading from YAML files and command-line flags.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/isometry/dirauth/internal/ldap"
)

// Endpoint describes one directory endpoint. It is immutable for the
// duration of an authentication attempt; the authenticator never
// mutates it.
type Endpoint struct {
	// URL is a direct ldap:// or ldaps:// server URL. Takes precedence
	// over Domain when both are set.
	URL string `koanf:"url"`

	// Domain enables DNS SRV discovery of directory servers.
	Domain string `koanf:"domain"`

	// BaseDN is the container all user searches are restricted to.
	BaseDN string `koanf:"base_dn"`

	// Filter is the user search filter template with one %s slot for
	// the (escaped) user identifier.
	Filter string `koanf:"filter" default:"(uid=%s)"`

	// Timeout bounds connect, search and bind operations.
	Timeout time.Duration `koanf:"timeout" default:"10s"`

	// StartTLS upgrades plain ldap:// connections before any bind.
	StartTLS bool `koanf:"start_tls" default:"true"`

	// InsecureSkipVerify disables certificate verification. Test use only.
	InsecureSkipVerify bool `koanf:"insecure_skip_verify"`

	// CACertFile points at a PEM bundle to trust instead of the system roots.
	CACertFile string `koanf:"ca_cert_file"`

	// MessagesFile is the XML error-message catalog consulted for
	// user-facing failure text.
	MessagesFile string `koanf:"messages_file"`

	Attributes Attributes `koanf:"attributes"`
	Bind       Bind       `koanf:"bind"`
}

// Attributes names the directory attributes the authenticator reads.
type Attributes struct {
	Mail      string `koanf:"mail" default:"mail"`
	GivenName string `koanf:"given_name" default:"givenName"`
	Surname   string `koanf:"surname" default:"sn"`
	Lockout   string `koanf:"lockout" default:"lockoutTime"`
}

// Bind holds service-level credentials for the search phase.
type Bind struct {
	DN       string `koanf:"dn"`
	Password string `koanf:"password"`

	KerberosRealm  string `koanf:"kerberos_realm"`
	KerberosUser   string `koanf:"kerberos_user"`
	KerberosKeytab string `koanf:"kerberos_keytab"`
	KerberosCCache string `koanf:"kerberos_ccache"`
	KerberosConfig string `koanf:"kerberos_config"`
	KerberosSPN    string `koanf:"kerberos_spn"`
}

// Default returns an Endpoint with defaults applied.
func Default() *Endpoint {
	ep := &Endpoint{}
	// Only fails on unsupported struct tags, which would be a programming error.
	_ = defaults.Set(ep)
	return ep
}

// Load reads the endpoint configuration, lowest precedence first:
// struct defaults, then the YAML file at path (if non-empty), then any
// set command-line flags. Defaults are loaded as the bottom koanf layer
// so an explicit zero value in the file or on a flag (start_tls: false)
// overrides its default instead of being reset to it.
func Load(path string, flags *pflag.FlagSet) (*Endpoint, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	ep := &Endpoint{}
	if err := k.Unmarshal("", ep); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	return ep, nil
}

// Validate checks the endpoint for configuration mistakes that would
// otherwise surface as confusing runtime failures.
func (e *Endpoint) Validate() error {
	if e.URL == "" && e.Domain == "" {
		return fmt.Errorf("either url or domain must be configured")
	}
	if e.URL != "" {
		if _, err := ldap.ParseLDAPURL(e.URL); err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
	}
	if e.BaseDN == "" {
		return fmt.Errorf("base_dn must be configured")
	}
	if strings.Count(e.Filter, "%s") != 1 {
		return fmt.Errorf("filter must contain exactly one %%s substitution slot, got %q", e.Filter)
	}
	if e.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// DialConfig builds the transport configuration for this endpoint.
func (e *Endpoint) DialConfig() (*ldap.DialConfig, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: e.InsecureSkipVerify,
	}

	if e.CACertFile != "" {
		pem, err := os.ReadFile(e.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", e.CACertFile)
		}
		tlsConfig.RootCAs = pool
	}

	return &ldap.DialConfig{
		Timeout:   e.Timeout,
		TLSConfig: tlsConfig,
		StartTLS:  e.StartTLS,
	}, nil
}

// BindConfig builds the service bind configuration for this endpoint.
func (e *Endpoint) BindConfig() *ldap.BindConfig {
	return &ldap.BindConfig{
		DN:             e.Bind.DN,
		Password:       e.Bind.Password,
		KerberosRealm:  e.Bind.KerberosRealm,
		KerberosUser:   e.Bind.KerberosUser,
		KerberosKeytab: e.Bind.KerberosKeytab,
		KerberosCCache: e.Bind.KerberosCCache,
		KerberosConfig: e.Bind.KerberosConfig,
		KerberosSPN:    e.Bind.KerberosSPN,
	}
}
