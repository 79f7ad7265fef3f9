package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/isometry/dirauth/internal/ldap"
)

// Verifier proves possession of a secret by binding as the resolved DN
// on a fresh connection. The search connection is never reused: a bind
// changes the authorization state of a connection, and the next attempt
// must not inherit it.
type Verifier struct {
	dialer  ldap.Dialer
	servers serverSource
	log     *slog.Logger
}

// NewVerifier creates a verifier using the given dialer and server source.
func NewVerifier(dialer ldap.Dialer, servers serverSource, log *slog.Logger) *Verifier {
	return &Verifier{
		dialer:  dialer,
		servers: servers,
		log:     log,
	}
}

// Verify binds as dn with the supplied secret. A nil return means the
// directory accepted the credentials. The secret never appears in
// errors or logs.
func (v *Verifier) Verify(ctx context.Context, dn, secret string) error {
	// An empty password turns a simple bind into an anonymous bind,
	// which many directories accept. Reject it before touching the wire.
	if secret == "" {
		return fmt.Errorf("empty password: %w", ErrBadCredentials)
	}
	if dn == "" {
		return fmt.Errorf("empty bind DN: %w", ErrBadCredentials)
	}

	servers, err := v.servers(ctx)
	if err != nil {
		return fmt.Errorf("resolving directory servers: %w: %w", ErrUnavailable, err)
	}

	conn, _, err := ldap.DialFirst(ctx, v.dialer, servers)
	if err != nil {
		return fmt.Errorf("connecting for credential check: %w: %w", ErrUnavailable, err)
	}
	defer conn.Close()
	release := ldap.CloseOnCancel(ctx, conn)
	defer release()

	if err := conn.Bind(dn, secret); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("credential check aborted: %w: %w", ErrUnavailable, ctxErr)
		}
		derr := ldap.NewDirectoryError("bind", err)
		if ldap.IsAuthenticationError(derr) {
			v.log.Debug("bind rejected", "dn", dn)
			return fmt.Errorf("bind as %q rejected: %w", dn, ErrBadCredentials)
		}
		return fmt.Errorf("credential check failed: %w: %w", ErrUnavailable, derr)
	}

	v.log.Debug("bind accepted", "dn", dn)
	return nil
}
