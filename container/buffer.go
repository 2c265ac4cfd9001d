package container

import "github.com/estokes/poolshark/discriminant"

// Buffer is a growable-byte-buffer adapter standing in for Rust's String,
// which is directly Poolable there (String::clear keeps the backing
// allocation). Go's string is immutable, so it cannot be reset in place;
// Buffer wraps a []byte instead and exposes String() for read access —
// a deliberate adaptation, not a behavior change (spec §1 and SPEC_FULL's
// restatement of the data model).
type Buffer struct {
	b []byte
}

func (s *Buffer) Empty() *Buffer       { return &Buffer{} }
func (s *Buffer) Reset()               { s.b = s.b[:0] }
func (s *Buffer) Capacity() int        { return cap(s.b) }
func (s *Buffer) ReallyDropped() bool  { return true }

func (s *Buffer) Discriminant() (discriminant.Discriminant, bool) {
	return discriminant.New(BufferContainerID)
}

// String returns the buffer's contents as a string (a copy).
func (s *Buffer) String() string { return string(s.b) }

// Set overwrites the buffer's contents with v, reusing the backing array
// when it's large enough.
func (s *Buffer) Set(v string) { s.b = append(s.b[:0], v...) }

// Append grows the buffer's contents by v.
func (s *Buffer) Append(v string) { s.b = append(s.b, v...) }
