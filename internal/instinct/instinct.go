// Package instinct defines the instinct record and its frontmatter text format.
//
// An instinct file holds one or more blocks. Each block opens and closes a
// header with a line containing only "---"; header lines are "key: value"
// pairs. Everything after the closing marker up to the next opening marker is
// the block content.
//
//	---
//	id: prefer-table-tests
//	trigger: "when writing tests"
//	confidence: 0.8
//	domain: testing
//	---
//
//	## Action
//	Use table-driven tests.
package instinct

import (
	"errors"
	"fmt"
)

// Scope is the applicability of an instinct.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeGlobal  Scope = "global"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeProject || s == ScopeGlobal
}

// Kind is the storage kind an instinct was loaded from.
type Kind string

const (
	KindPersonal  Kind = "personal"
	KindInherited Kind = "inherited"
)

const (
	// DefaultConfidence applies when a block has no confidence key.
	DefaultConfidence = 0.5

	// DefaultDomain applies when a block has no domain key.
	DefaultDomain = "general"
)

// Well-known optional header keys carried in Meta.
const (
	KeySource         = "source"
	KeySourceRepo     = "source_repo"
	KeyProjectID      = "project_id"
	KeyProjectName    = "project_name"
	KeyImportedFrom   = "imported_from"
	KeyPromotedFrom   = "promoted_from"
	KeyPromotedDate   = "promoted_date"
	KeySeenInProjects = "seen_in_projects"
)

// ErrInvalidConfidence indicates a confidence header that is not a finite number.
var ErrInvalidConfidence = errors.New("invalid confidence")

// ErrUnquotable indicates a header value the text format cannot carry.
var ErrUnquotable = errors.New("header value cannot be quoted")

// HeaderError reports a header value that would not survive serialization.
type HeaderError struct {
	ID    string
	Key   string
	Value string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("instinct %s: %s %q: %v", e.ID, e.Key, e.Value, ErrUnquotable)
}

func (e *HeaderError) Unwrap() error {
	return ErrUnquotable
}

// ParseError reports a block that could not be parsed.
type ParseError struct {
	Block int // zero-based block index
	Key   string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("block %d: %s %q: %v", e.Block, e.Key, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Instinct is a single learned trigger/action record.
type Instinct struct {
	ID         string
	Trigger    string
	Confidence float64
	Domain     string
	// Scope is empty when the header did not set it.
	Scope   Scope
	Content string

	// Meta holds every other header key verbatim.
	Meta map[string]string

	// Provenance, never serialized.
	SourceFile string
	SourceKind Kind
	ScopeLabel Scope
}

// Get returns a meta value, or "" when unset.
func (i *Instinct) Get(key string) string {
	if i.Meta == nil {
		return ""
	}
	return i.Meta[key]
}

// Set stores a meta value. An empty value removes the key.
func (i *Instinct) Set(key, value string) {
	if value == "" {
		delete(i.Meta, key)
		return
	}
	if i.Meta == nil {
		i.Meta = make(map[string]string)
	}
	i.Meta[key] = value
}

// EffectiveScope returns Scope, falling back to project when unset.
func (i *Instinct) EffectiveScope() Scope {
	if i.Scope == "" {
		return ScopeProject
	}
	return i.Scope
}

// IDs returns the set of ids in list.
func IDs(list []*Instinct) map[string]struct{} {
	ids := make(map[string]struct{}, len(list))
	for _, inst := range list {
		ids[inst.ID] = struct{}{}
	}
	return ids
}

// Find returns the first instinct with the given id, or nil.
func Find(list []*Instinct, id string) *Instinct {
	for _, inst := range list {
		if inst.ID == id {
			return inst
		}
	}
	return nil
}
