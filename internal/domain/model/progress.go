package model

import (
	"encoding/json"
	"sort"
)

// Progress is one player's save state for one game.
type Progress struct {
	Attempts int    `json:"attempts"`
	Awarded  IDSet  `json:"awarded"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Group    string `json:"group"`
}

// Empty reports whether p carries no saved state.
func (p Progress) Empty() bool {
	return p.Attempts == 0 && len(p.Awarded) == 0 && p.Code == "" && p.Name == "" && p.Group == ""
}

// IDSet is a set of scene or clue ids. It serializes as a sorted array so
// repeated save/load cycles produce identical bytes.
type IDSet map[string]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s IDSet) Add(id string) { s[id] = struct{}{} }

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}
