package auth

import (
	"log/slog"
	"strconv"
)

// Entry is the outcome of resolving a user identifier: the entry's
// distinguished name and the handful of attributes the authenticator
// needs. Entries are created fresh per attempt and discarded with it.
type Entry struct {
	DN        string
	Mail      string
	GivenName string
	Surname   string

	// LockoutTime is the raw lockout attribute value, empty when the
	// attribute is absent.
	LockoutTime string
}

// FullName joins the given name and surname with a single space,
// omitting the separator when either side is empty.
func (e *Entry) FullName() string {
	switch {
	case e.GivenName == "":
		return e.Surname
	case e.Surname == "":
		return e.GivenName
	default:
		return e.GivenName + " " + e.Surname
	}
}

// LockedOut reports whether the entry's lockout attribute marks the
// account as administratively locked. An absent attribute or an exact
// zero means not locked; any other value, including negative ones,
// means locked. Unparsable values are treated as not locked but logged,
// so a directory quirk never silently turns into a lockout or a bind.
func LockedOut(entry *Entry, log *slog.Logger) bool {
	if entry.LockoutTime == "" {
		return false
	}

	v, err := strconv.ParseInt(entry.LockoutTime, 10, 64)
	if err != nil {
		log.Warn("unparsable lockout attribute, treating as not locked",
			"dn", entry.DN,
			"value", entry.LockoutTime,
		)
		return false
	}
	return v != 0
}
