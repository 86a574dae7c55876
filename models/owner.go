package models

import "strconv"

// OwnerID identifies the tenant a habit or entry belongs to.
// Every store operation takes one and filters on it.
type OwnerID uint

// Valid reports whether the id can own data. Zero is never a real user.
func (o OwnerID) Valid() bool {
	return o != 0
}

func (o OwnerID) String() string {
	return strconv.FormatUint(uint64(o), 10)
}
