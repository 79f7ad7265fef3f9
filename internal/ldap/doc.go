/*
Package ldap provides the directory client layer for dirauth.

It deliberately stays thin: a Dialer that opens exactly one connection
per call (TLS or StartTLS, bounded by a configurable timeout and the
caller's context), DNS SRV discovery of directory servers, service-level
bind (anonymous, simple, or Kerberos GSSAPI), and structured error
classification.

Connections are never pooled or reused. Each authentication phase dials,
operates, and closes before returning; concurrent calls therefore need
no coordination.

Error classification prefers the structured LDAP result code from
go-ldap over string matching. Bind rejections
(invalidCredentials and friends) are distinguished from server or
transport failures so that callers never report "wrong password" for an
outage.
*/
package ldap
