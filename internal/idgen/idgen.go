// Package idgen produces record identifiers.
package idgen

import "github.com/google/uuid"

// Generator produces unique identifiers.
type Generator interface {
	NewID() string
}

type uuidGenerator struct{}

// NewUUIDGenerator returns a Generator that produces v7 UUIDs where available, falling back to v4.
func NewUUIDGenerator() Generator {
	return uuidGenerator{}
}

func (uuidGenerator) NewID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// Sequence returns ids from a fixed list, then repeats the last one. Tests only.
type Sequence struct {
	IDs  []string
	next int
}

func (s *Sequence) NewID() string {
	if len(s.IDs) == 0 {
		return ""
	}
	if s.next >= len(s.IDs) {
		return s.IDs[len(s.IDs)-1]
	}
	id := s.IDs[s.next]
	s.next++
	return id
}
