package auth

import (
	"context"
	"fmt"
	"log/slog"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/isometry/dirauth/internal/config"
	"github.com/isometry/dirauth/internal/ldap"
)

// serverSource yields the directory servers for one attempt. Endpoints
// configured by URL return a static list; domain endpoints run SRV
// discovery per attempt, consistent with the no-caching lifecycle.
type serverSource func(ctx context.Context) ([]*ldap.ServerInfo, error)

// Resolver maps a user identifier to its directory entry via an
// anonymous or service-level search. One connection per call, closed on
// every path.
type Resolver struct {
	dialer   ldap.Dialer
	servers  serverSource
	endpoint *config.Endpoint
	log      *slog.Logger
}

// NewResolver creates a resolver for the endpoint.
func NewResolver(dialer ldap.Dialer, servers serverSource, endpoint *config.Endpoint, log *slog.Logger) *Resolver {
	return &Resolver{
		dialer:   dialer,
		servers:  servers,
		endpoint: endpoint,
		log:      log,
	}
}

// Resolve searches the base container for the identifier and returns
// the single matching entry. The identifier is escaped before filter
// substitution, so filter metacharacters in user input match literally
// instead of widening the search.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*Entry, error) {
	if identifier == "" {
		return nil, ErrNotFound
	}

	servers, err := r.servers(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving directory servers: %w: %w", ErrUnavailable, err)
	}

	conn, server, err := ldap.DialFirst(ctx, r.dialer, servers)
	if err != nil {
		return nil, fmt.Errorf("connecting for user search: %w: %w", ErrUnavailable, err)
	}
	defer conn.Close()
	release := ldap.CloseOnCancel(ctx, conn)
	defer release()

	if err := ldap.ServiceBind(conn, r.endpoint.BindConfig(), server); err != nil {
		return nil, fmt.Errorf("service bind for user search: %w: %w", ErrUnavailable, err)
	}

	filter := fmt.Sprintf(r.endpoint.Filter, goldap.EscapeFilter(identifier))
	attrs := r.endpoint.Attributes

	// Size limit 2: one entry is the answer, a second one proves
	// ambiguity. Nothing more is ever needed.
	req := goldap.NewSearchRequest(
		r.endpoint.BaseDN,
		goldap.ScopeWholeSubtree,
		goldap.NeverDerefAliases,
		2,
		int(r.endpoint.Timeout.Seconds()),
		false,
		filter,
		[]string{attrs.Lockout, attrs.Mail, attrs.GivenName, attrs.Surname},
		nil,
	)

	result, err := conn.Search(req)
	if err != nil {
		// A size-limit-exceeded result still carries the entries found
		// so far; two entries is a definitive ambiguity answer.
		if goldap.IsErrorWithCode(err, goldap.LDAPResultSizeLimitExceeded) && result != nil && len(result.Entries) > 1 {
			return nil, fmt.Errorf("identifier %q: %w", identifier, ErrAmbiguous)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("user search aborted: %w: %w", ErrUnavailable, ctxErr)
		}
		return nil, fmt.Errorf("user search failed: %w: %w", ErrUnavailable, ldap.NewDirectoryError("search", err))
	}

	switch len(result.Entries) {
	case 0:
		return nil, fmt.Errorf("identifier %q: %w", identifier, ErrNotFound)
	case 1:
		// Resolved.
	default:
		return nil, fmt.Errorf("identifier %q: %w", identifier, ErrAmbiguous)
	}

	found := result.Entries[0]
	entry := &Entry{
		DN:          found.DN,
		Mail:        found.GetAttributeValue(attrs.Mail),
		GivenName:   found.GetAttributeValue(attrs.GivenName),
		Surname:     found.GetAttributeValue(attrs.Surname),
		LockoutTime: found.GetAttributeValue(attrs.Lockout),
	}

	r.log.Debug("resolved user entry", "identifier", identifier, "dn", entry.DN)
	return entry, nil
}
