package ldap

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
)

// BindMethod identifies how the service connection used for the resolve
// phase authenticates itself.
type BindMethod int

const (
	BindMethodAnonymous BindMethod = iota // no service credentials
	BindMethodSimple                      // service DN and password
	BindMethodKerberos                    // GSSAPI
)

func (m BindMethod) String() string {
	switch m {
	case BindMethodAnonymous:
		return "anonymous"
	case BindMethodSimple:
		return "simple"
	case BindMethodKerberos:
		return "kerberos"
	default:
		return "unknown"
	}
}

// BindConfig holds service-level bind credentials for the search phase.
// End-user credentials never appear here; they are only ever used for
// the verification bind.
type BindConfig struct {
	DN       string // service bind DN for simple bind
	Password string // service bind password for simple bind

	KerberosRealm  string // realm; non-empty enables GSSAPI
	KerberosUser   string // principal name for keytab or password auth
	KerberosKeytab string // path to keytab file
	KerberosCCache string // path to credential cache
	KerberosConfig string // path to krb5.conf, defaults to /etc/krb5.conf
	KerberosSPN    string // explicit service principal, overrides ldap/<host>
}

// Method determines the bind method from the configured fields.
// Kerberos takes precedence over simple bind.
func (c *BindConfig) Method() BindMethod {
	if c == nil {
		return BindMethodAnonymous
	}
	if c.KerberosRealm != "" {
		return BindMethodKerberos
	}
	if c.DN != "" {
		return BindMethodSimple
	}
	return BindMethodAnonymous
}

// gssapiBinder is implemented by *ldap.Conn; fakes used in tests are not
// expected to support GSSAPI.
type gssapiBinder interface {
	GSSAPIBind(client ldap.GSSAPIClient, servicePrincipal, authzID string) error
}

// ServiceBind authenticates the service connection according to cfg.
// Anonymous mode is a no-op: an unbound connection already is one.
func ServiceBind(conn Conn, cfg *BindConfig, server *ServerInfo) error {
	switch cfg.Method() {
	case BindMethodAnonymous:
		return nil
	case BindMethodSimple:
		if err := conn.Bind(cfg.DN, cfg.Password); err != nil {
			return NewDirectoryError("service bind", err)
		}
		return nil
	case BindMethodKerberos:
		return kerberosBind(conn, cfg, server)
	default:
		return fmt.Errorf("unsupported bind method: %s", cfg.Method())
	}
}

func kerberosBind(conn Conn, cfg *BindConfig, server *ServerInfo) error {
	binder, ok := conn.(gssapiBinder)
	if !ok {
		return fmt.Errorf("connection does not support GSSAPI bind")
	}

	client, err := newGSSAPIClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}
	defer func() {
		_ = client.DeleteSecContext()
	}()

	spn, err := servicePrincipal(cfg, server)
	if err != nil {
		return err
	}

	if err := binder.GSSAPIBind(client, spn, ""); err != nil {
		return NewDirectoryError("GSSAPI bind", err)
	}
	return nil
}

// newGSSAPIClient creates the GSSAPI client from the available
// credentials, in precedence order: credential cache, keytab, password.
func newGSSAPIClient(cfg *BindConfig) (ldap.GSSAPIClient, error) {
	krb5conf := cfg.KerberosConfig
	if krb5conf == "" {
		krb5conf = "/etc/krb5.conf"
	}
	if !fileExists(krb5conf) {
		return nil, fmt.Errorf("kerberos configuration file not found at %s", krb5conf)
	}

	if cfg.KerberosCCache != "" {
		return gssapi.NewClientFromCCache(cfg.KerberosCCache, krb5conf, krb5client.DisablePAFXFAST(true))
	}
	if cfg.KerberosKeytab != "" {
		return gssapi.NewClientWithKeytab(cfg.KerberosUser, cfg.KerberosRealm, cfg.KerberosKeytab, krb5conf, krb5client.DisablePAFXFAST(true))
	}
	if cfg.KerberosUser != "" && cfg.Password != "" {
		return gssapi.NewClientWithPassword(cfg.KerberosUser, cfg.KerberosRealm, cfg.Password, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	return nil, fmt.Errorf("no suitable credentials for kerberos bind: need a ccache, keytab, or principal password")
}

// servicePrincipal builds the SPN for the target server, ldap/<host>,
// unless an explicit override is configured.
func servicePrincipal(cfg *BindConfig, server *ServerInfo) (string, error) {
	if cfg.KerberosSPN != "" {
		return cfg.KerberosSPN, nil
	}
	if server == nil || server.Host == "" {
		return "", fmt.Errorf("server host is required to build a service principal")
	}

	host := server.Host
	// SPNs never carry a port.
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return fmt.Sprintf("ldap/%s", host), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
