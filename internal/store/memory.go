package store

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/dilla-go/dilla/internal/schema"
)

// Memory is an in-process store used for dry runs and tests. It enforces
// unique fields like a database would.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[string][]*Instance
	uniques map[string]map[string]bool

	// SaveErr, when set, is consulted before every save.
	SaveErr func(inst *Instance) error
	// Links records every Link call as "model.relation" -> pairs.
	Links map[string][][2]any
	// Closed is set by Close.
	Closed bool
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		rows:    make(map[string][]*Instance),
		uniques: make(map[string]map[string]bool),
		Links:   make(map[string][][2]any),
	}
}

func (s *Memory) Save(_ context.Context, inst *Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		if err := s.SaveErr(inst); err != nil {
			return err
		}
	}

	key := inst.Model.Key()
	for _, f := range inst.Model.Fields {
		if !f.Unique {
			continue
		}
		v, ok := inst.Values[f.Name]
		if !ok || v == nil {
			continue
		}
		if s.uniques[key+"."+f.Name][uniqueKey(v)] {
			return fmt.Errorf("saving %s: %w: %s=%v", key, ErrUniqueViolation, f.Name, v)
		}
	}
	for _, f := range inst.Model.Fields {
		if v, ok := inst.Values[f.Name]; ok && f.Unique && v != nil {
			set := s.uniques[key+"."+f.Name]
			if set == nil {
				set = make(map[string]bool)
				s.uniques[key+"."+f.Name] = set
			}
			set[uniqueKey(v)] = true
		}
	}

	if id, ok := presetID(inst); ok {
		inst.ID = id
	} else {
		s.nextID++
		inst.ID = s.nextID
	}
	s.rows[key] = append(s.rows[key], inst)
	return nil
}

// uniqueKey renders v with its type so lists and maps from random_values
// can be compared and 1 stays distinct from "1".
func uniqueKey(v any) string {
	return fmt.Sprintf("%T:%v", v, v)
}

func (s *Memory) Link(_ context.Context, inst *Instance, rel *schema.Relation, ids []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inst.Links == nil {
		inst.Links = make(map[string][]any)
	}
	inst.Links[rel.Name] = append(inst.Links[rel.Name], ids...)
	key := inst.Model.Key() + "." + rel.Name
	for _, id := range ids {
		s.Links[key] = append(s.Links[key], [2]any{inst.ID, id})
	}
	return nil
}

func (s *Memory) Sample(_ context.Context, m *schema.Model, n int) ([]*Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[m.Key()]
	out := make([]*Instance, 0, min(n, len(rows)))
	for _, i := range rand.Perm(len(rows)) {
		if len(out) == n {
			break
		}
		out = append(out, rows[i])
	}
	return out, nil
}

func (s *Memory) Count(_ context.Context, m *schema.Model) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows[m.Key()])), nil
}

// Rows returns the saved instances of m in save order.
func (s *Memory) Rows(m *schema.Model) []*Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Instance(nil), s.rows[m.Key()]...)
}

func (s *Memory) Close(context.Context) error {
	s.Closed = true
	return nil
}
