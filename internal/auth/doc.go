// Package auth authenticates users against an LDAP directory using the
// search-then-bind pattern: the user identifier is first resolved to a
// distinguished name via an anonymous or service-level search, then the
// user's own secret is proven with a fresh bind as that DN.
//
// Every phase opens its own connection and closes it before returning;
// no connection state survives an attempt. Failed attempts are reported
// as a Result with a classified Reason and a catalog-translated message
// rather than as an error, so callers treat all outcomes uniformly.
package auth
