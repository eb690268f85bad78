// Package store persists the working rule collection.
//
// The store keeps rules in memory in insertion order (the tie-break
// source for equal priorities) and mirrors every change to a JSON file
// with an atomic temp+rename write. A single RWMutex serializes
// mutations, so at most one edit/toggle/delete per rule id is ever in
// flight and updatedAt stays monotonic per rule.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"grimm.is/stockade/internal/clock"
	"grimm.is/stockade/internal/rules"
)

// ErrNotFound is returned when no rule has the requested id.
var ErrNotFound = errors.New("rule not found")

// Store is a file-backed rule collection. A Store with an empty path
// is memory-only (used by tests and ephemeral servers).
type Store struct {
	path string
	clk  clock.Clock

	mu    sync.RWMutex
	rules []*rules.Rule
	index map[string]*rules.Rule
}

// New creates a store backed by path, loading existing rules if the
// file exists. An empty path creates a memory-only store.
func New(path string, clk clock.Clock) (*Store, error) {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	s := &Store{
		path:  path,
		clk:   clk,
		index: make(map[string]*rules.Rule),
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := s.load(); err != nil {
				return nil, fmt.Errorf("failed to load rule store: %w", err)
			}
		}
	}

	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var loaded []*rules.Rule
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = loaded
	for _, r := range loaded {
		s.index[r.ID] = r
	}
	return nil
}

// persistLocked writes the given collection to disk. Caller must hold
// the lock. Mutations persist a candidate slice first and commit it to
// memory only on success, so a failed write leaves both the file and
// the in-memory collection unchanged.
func (s *Store) persistLocked(list []*rules.Rule) error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// Create validates the form and appends a new rule. Validation
// failures come back as rules.FieldErrors.
func (s *Store) Create(form rules.RuleForm) (*rules.Rule, error) {
	if errs := rules.ValidateForm(form); errs.HasErrors() {
		return nil, errs
	}

	now := s.clk.Now()
	r := &rules.Rule{
		ID:                 rules.NewRuleID(),
		Name:               form.Name,
		Action:             form.Action,
		Protocol:           form.Protocol,
		SourceAddress:      form.SourceAddress,
		DestinationAddress: form.DestinationAddress,
		SourcePort:         form.SourcePort,
		DestinationPort:    form.DestinationPort,
		Priority:           form.Priority,
		Enabled:            form.Enabled,
		Description:        form.Description,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(append([]*rules.Rule{}, s.rules...), r)
	if err := s.persistLocked(next); err != nil {
		return nil, err
	}
	s.rules = next
	s.index[r.ID] = r

	out := *r
	return &out, nil
}

// Update replaces the editable fields of an existing rule and
// refreshes updatedAt. CreatedAt and the id never change.
func (s *Store) Update(id string, form rules.RuleForm) (*rules.Rule, error) {
	if errs := rules.ValidateForm(form); errs.HasErrors() {
		return nil, errs
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}

	updated := *r
	updated.Name = form.Name
	updated.Action = form.Action
	updated.Protocol = form.Protocol
	updated.SourceAddress = form.SourceAddress
	updated.DestinationAddress = form.DestinationAddress
	updated.SourcePort = form.SourcePort
	updated.DestinationPort = form.DestinationPort
	updated.Priority = form.Priority
	updated.Enabled = form.Enabled
	updated.Description = form.Description
	updated.UpdatedAt = s.clk.Now()

	if err := s.commitLocked(&updated); err != nil {
		return nil, err
	}

	out := updated
	return &out, nil
}

// Toggle flips a rule's enabled flag. Disabled rules stay in the
// store; they are only excluded from compiled output.
func (s *Store) Toggle(id string) (*rules.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}

	updated := *r
	updated.Enabled = !updated.Enabled
	updated.UpdatedAt = s.clk.Now()

	if err := s.commitLocked(&updated); err != nil {
		return nil, err
	}

	out := updated
	return &out, nil
}

// commitLocked replaces the stored rule with the same id as updated,
// persisting the candidate collection before the swap becomes visible.
func (s *Store) commitLocked(updated *rules.Rule) error {
	next := append([]*rules.Rule{}, s.rules...)
	for i, r := range next {
		if r.ID == updated.ID {
			next[i] = updated
			break
		}
	}
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.rules = next
	s.index[updated.ID] = updated
	return nil
}

// Delete removes a rule permanently.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; !ok {
		return ErrNotFound
	}

	next := make([]*rules.Rule, 0, len(s.rules)-1)
	for _, r := range s.rules {
		if r.ID != id {
			next = append(next, r)
		}
	}
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.rules = next
	delete(s.index, id)
	return nil
}

// Get returns a copy of the rule with the given id.
func (s *Store) Get(id string) (*rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

// List returns a copy of the collection in insertion order.
func (s *Store) List() []rules.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]rules.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, *r)
	}
	return out
}

// Count returns the number of stored rules.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// Merge appends imported rules to the collection. The decoder already
// regenerates ids, but a collision with the live collection is still
// re-keyed here rather than trusted.
func (s *Store) Merge(imported []rules.Rule) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]*rules.Rule{}, s.rules...)
	incoming := make([]*rules.Rule, 0, len(imported))
	for _, r := range imported {
		if _, exists := s.index[r.ID]; exists {
			r.ID = rules.NewRuleID()
		}
		cp := r
		next = append(next, &cp)
		incoming = append(incoming, &cp)
	}

	if err := s.persistLocked(next); err != nil {
		return 0, err
	}
	s.rules = next
	for _, r := range incoming {
		s.index[r.ID] = r
	}
	return len(incoming), nil
}
