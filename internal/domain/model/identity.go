// Package model contains domain models passed between layers.
package model

// Identity is the current player. A zero Name means unknown.
type Identity struct {
	Name  string `json:"name"`
	Group string `json:"group"`
}

// Known reports whether the identity carries a name.
func (i Identity) Known() bool {
	return i.Name != ""
}
