package csv

import "sync"

// StringInterner deduplicates repeated string values seen during
// import (e.g. category or status columns), returning the same
// backing string for repeated inputs so batches share one allocation
// per distinct value.
type StringInterner struct {
	strings map[string]string
	hits    uint64
	misses  uint64
}

// NewStringInterner creates an empty interner.
func NewStringInterner() *StringInterner {
	return &StringInterner{strings: make(map[string]string)}
}

// NewStringInternerWithCapacity creates an empty interner with
// pre-allocated map capacity.
func NewStringInternerWithCapacity(capacity int) *StringInterner {
	return &StringInterner{strings: make(map[string]string, capacity)}
}

// Intern returns the canonical stored copy of s, recording it first if
// this is the first time s has been seen.
func (si *StringInterner) Intern(s string) string {
	if existing, ok := si.strings[s]; ok {
		si.hits++
		return existing
	}
	si.misses++
	si.strings[s] = s
	return s
}

// HitRate returns the fraction of Intern calls that found an existing
// entry, or 0.0 before any calls have been made.
func (si *StringInterner) HitRate() float64 {
	total := si.hits + si.misses
	if total == 0 {
		return 0.0
	}
	return float64(si.hits) / float64(total)
}

// UniqueCount returns the number of distinct strings stored.
func (si *StringInterner) UniqueCount() int {
	return len(si.strings)
}

// Hits returns the number of Intern calls that matched an existing entry.
func (si *StringInterner) Hits() uint64 { return si.hits }

// Misses returns the number of Intern calls that stored a new entry.
func (si *StringInterner) Misses() uint64 { return si.misses }

// Clear discards all interned strings and resets hit/miss counters.
func (si *StringInterner) Clear() {
	si.strings = make(map[string]string)
	si.hits = 0
	si.misses = 0
}

// SharedInterner is a StringInterner guarded by a mutex, for use by
// multiple parallel parsing goroutines.
type SharedInterner struct {
	mu       sync.Mutex
	interner *StringInterner
}

// NewSharedInterner creates an empty thread-safe interner.
func NewSharedInterner() *SharedInterner {
	return &SharedInterner{interner: NewStringInterner()}
}

// NewSharedInternerWithCapacity creates a thread-safe interner with
// pre-allocated map capacity.
func NewSharedInternerWithCapacity(capacity int) *SharedInterner {
	return &SharedInterner{interner: NewStringInternerWithCapacity(capacity)}
}

// Intern interns s under the shared lock.
func (s *SharedInterner) Intern(str string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interner.Intern(str)
}

// UniqueCount returns the number of distinct strings stored.
func (s *SharedInterner) UniqueCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interner.UniqueCount()
}

// HitRate returns the interner's current hit rate.
func (s *SharedInterner) HitRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interner.HitRate()
}

// Hits returns the number of Intern calls that matched an existing entry.
func (s *SharedInterner) Hits() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interner.Hits()
}

// Misses returns the number of Intern calls that stored a new entry.
func (s *SharedInterner) Misses() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interner.Misses()
}
