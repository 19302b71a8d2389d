package models

import (
	"bytes"
	"encoding/json"
)

// Entry pairs a document name with its result.
type Entry struct {
	Name   string
	Result DocumentResult
}

// ResultSet is an insertion-ordered mapping from document name to result.
// Setting an existing name replaces the value and keeps its position.
// It is not safe for concurrent use.
type ResultSet struct {
	entries []Entry
	index   map[string]int
}

func NewResultSet() *ResultSet {
	return &ResultSet{index: make(map[string]int)}
}

// ResultSetFromEntries builds a set in the given order. Duplicate names keep
// the first position and the last value.
func ResultSetFromEntries(entries []Entry) *ResultSet {
	s := NewResultSet()
	for _, e := range entries {
		s.Set(e.Name, e.Result)
	}
	return s
}

func (s *ResultSet) Set(name string, result DocumentResult) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[name]; ok {
		s.entries[i].Result = result
		return
	}
	s.index[name] = len(s.entries)
	s.entries = append(s.entries, Entry{Name: name, Result: result})
}

func (s *ResultSet) Get(name string) (DocumentResult, bool) {
	if s == nil {
		return DocumentResult{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return DocumentResult{}, false
	}
	return s.entries[i].Result, true
}

func (s *ResultSet) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

func (s *ResultSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Merge copies every entry of other into s, in other's order.
func (s *ResultSet) Merge(other *ResultSet) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		s.Set(e.Name, e.Result)
	}
}

// Entries returns a copy of the entries in order.
func (s *ResultSet) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *ResultSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Name
	}
	return names
}

// MarshalJSON writes a JSON object whose key order follows the set's order.
func (s *ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if s != nil {
		for i, e := range s.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(e.Name)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(e.Result)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
