package ticket

import "time"

// Well-known claim types. The claim list is free-form; these are the types
// the store and refresher give meaning to.
const (
	// ClaimUserID carries the owning user's identifier. Renew refuses
	// tickets that do not carry it.
	ClaimUserID = "id"
	// ClaimName carries the user's display name.
	ClaimName = "name"
	// ClaimRole carries a single role name. A ticket may carry any number
	// of role claims.
	ClaimRole = "role"
	// ClaimOrigin carries the client origin tag (typically the user agent)
	// that is mirrored into the session metadata row.
	ClaimOrigin = "origin"
)

// Claim is one (type, value) pair of a ticket's claim list.
type Claim struct {
	Type  string
	Value string
}

// Properties describes a ticket's validity window and renewal behavior.
type Properties struct {
	IssuedAt     *time.Time
	ExpiresAt    *time.Time
	IsPersistent bool
	AllowRefresh bool
}

// Ticket is the serialized unit of an authenticated session: the
// authentication scheme, the claim list, and the validity properties.
//
// Claims are an ordered list, not a map. Duplicate claim types are legal
// (multiple role claims) and must survive a codec round trip as a multiset;
// ordering is not part of the contract.
type Ticket struct {
	Scheme     string
	Claims     []Claim
	Properties Properties
}

// First returns the value of the first claim of the given type, or "".
func (t *Ticket) First(claimType string) string {
	for _, c := range t.Claims {
		if c.Type == claimType {
			return c.Value
		}
	}
	return ""
}

// UserID returns the value of the ticket's user-identifier claim, or "".
func (t *Ticket) UserID() string {
	return t.First(ClaimUserID)
}

// Origin returns the value of the ticket's origin claim, or "".
func (t *Ticket) Origin() string {
	return t.First(ClaimOrigin)
}

// HasRole reports whether the ticket carries a role claim with the given value.
func (t *Ticket) HasRole(role string) bool {
	for _, c := range t.Claims {
		if c.Type == ClaimRole && c.Value == role {
			return true
		}
	}
	return false
}
