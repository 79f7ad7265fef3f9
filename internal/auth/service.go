package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/isometry/dirauth/internal/config"
	"github.com/isometry/dirauth/internal/ldap"
)

// Reason classifies why an authentication attempt did not succeed.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotFound
	ReasonAmbiguous
	ReasonLockedOut
	ReasonBadCredentials
	ReasonUnavailable
)

// String returns a stable identifier for logs and metrics.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNotFound:
		return "not_found"
	case ReasonAmbiguous:
		return "ambiguous"
	case ReasonLockedOut:
		return "locked_out"
	case ReasonBadCredentials:
		return "bad_credentials"
	case ReasonUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Raw failure messages fed through the message catalog. The substring
// signatures match what catalogs key on, so deployments can override
// the user-facing text without code changes.
const (
	rawNotFound       = "(0x80072030): user not found in directory"
	rawAmbiguous      = "identifier matched more than one directory entry"
	rawLockedOut      = "account is locked out"
	rawBadCredentials = "(0x8007052e): the supplied credential is invalid"
	rawUnavailable    = "the directory service is unavailable"
)

// Result is the outcome of one authentication attempt.
type Result struct {
	// Succeeded reports whether the directory accepted the credentials
	// and the account is usable.
	Succeeded bool

	// Email and FullName are populated only on success.
	Email    string
	FullName string

	// Reason is set only on failure.
	Reason Reason

	// Message is user-facing failure text, already passed through the
	// message catalog. Empty on success.
	Message string
}

// Translator rewrites raw failure messages into user-facing text.
type Translator interface {
	Translate(raw string) string
}

type entryResolver interface {
	Resolve(ctx context.Context, identifier string) (*Entry, error)
}

type credentialVerifier interface {
	Verify(ctx context.Context, dn, secret string) error
}

// Service authenticates users against a directory endpoint: search for
// the identifier, then bind as the resolved DN with the user's secret.
type Service struct {
	resolver   entryResolver
	verifier   credentialVerifier
	translator Translator
	log        *slog.Logger
}

// NewService wires an authentication service for the endpoint. The
// translator may be nil, in which case raw messages pass through.
func NewService(endpoint *config.Endpoint, translator Translator, log *slog.Logger) (*Service, error) {
	dialConfig, err := endpoint.DialConfig()
	if err != nil {
		return nil, err
	}
	dialer := ldap.NewNetDialer(dialConfig)
	servers, err := serversFor(endpoint, log)
	if err != nil {
		return nil, err
	}

	return &Service{
		resolver:   NewResolver(dialer, servers, endpoint, log),
		verifier:   NewVerifier(dialer, servers, log),
		translator: translator,
		log:        log,
	}, nil
}

// serversFor builds the server source for an endpoint. A configured URL
// is authoritative and static; otherwise servers are discovered from
// DNS SRV records on every attempt, so directory topology changes take
// effect without a restart.
func serversFor(endpoint *config.Endpoint, log *slog.Logger) (serverSource, error) {
	if endpoint.URL != "" {
		server, err := ldap.ParseLDAPURL(endpoint.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid directory URL: %w", err)
		}
		static := []*ldap.ServerInfo{server}
		return func(context.Context) ([]*ldap.ServerInfo, error) {
			return static, nil
		}, nil
	}

	discovery := ldap.NewSRVDiscovery(log)
	domain := endpoint.Domain
	return func(ctx context.Context) ([]*ldap.ServerInfo, error) {
		return discovery.DiscoverServers(ctx, domain)
	}, nil
}

// Authenticate checks the identifier and secret against the directory.
// It never returns an error: every failure mode is reported in the
// Result so callers get uniform handling and translated messages.
func (s *Service) Authenticate(ctx context.Context, identifier, secret string) Result {
	log := s.log.With("attempt_id", uuid.NewString(), "identifier", identifier)

	entry, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return s.failure(log, "user resolution failed", err)
	}

	// A locked account is refused before the bind is ever attempted:
	// binding as a locked account can extend or reset the lockout on
	// some directories.
	if LockedOut(entry, log) {
		log.Info("authentication refused", "reason", ReasonLockedOut.String(), "dn", entry.DN)
		return Result{Reason: ReasonLockedOut, Message: s.translate(rawLockedOut)}
	}

	if err := s.verifier.Verify(ctx, entry.DN, secret); err != nil {
		return s.failure(log, "credential verification failed", err)
	}

	log.Info("authentication succeeded", "dn", entry.DN)
	return Result{
		Succeeded: true,
		Email:     entry.Mail,
		FullName:  entry.FullName(),
	}
}

func (s *Service) failure(log *slog.Logger, msg string, err error) Result {
	reason, raw := classify(err)
	log.Info(msg, "reason", reason.String(), "error", err)
	return Result{Reason: reason, Message: s.translate(raw)}
}

func classify(err error) (Reason, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound, rawNotFound
	case errors.Is(err, ErrAmbiguous):
		return ReasonAmbiguous, rawAmbiguous
	case errors.Is(err, ErrBadCredentials):
		return ReasonBadCredentials, rawBadCredentials
	default:
		return ReasonUnavailable, rawUnavailable
	}
}

func (s *Service) translate(raw string) string {
	if s.translator == nil {
		return raw
	}
	return s.translator.Translate(raw)
}
