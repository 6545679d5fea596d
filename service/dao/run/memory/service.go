package memory

import (
	"context"

	"github.com/flowsimlabs/flowsim/runtime/simulation"
	"github.com/flowsimlabs/flowsim/service/dao"
	"github.com/flowsimlabs/flowsim/service/dao/criteria"
	"github.com/flowsimlabs/flowsim/service/dao/store"
)

// Service implements an in-memory, thread-safe store for simulation runs. It
// layers validation, in-place updates and state filtering on top of the
// generic memory store.
type Service struct {
	store *store.MemoryStore[string, simulation.Run]
}

var _ dao.Service[string, simulation.Run] = (*Service)(nil)

func (s *Service) Save(ctx context.Context, r *simulation.Run) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	if existing, _ := s.store.Load(ctx, r.ID); existing != nil && existing != r {
		existing.CopyFrom(r)
		return nil
	}
	return s.store.Save(ctx, r)
}

func (s *Service) Load(ctx context.Context, id string) (*simulation.Run, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	r, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, dao.ErrNotFound
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	if r, _ := s.store.Load(ctx, id); r == nil {
		return dao.ErrNotFound
	}
	return s.store.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*simulation.Run, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*simulation.Run, 0, len(all))
	for _, r := range all {
		if !criteria.FilterByState(r.State, parameters) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func New() *Service {
	return &Service{
		store: store.NewMemoryStore[string, simulation.Run](func(r *simulation.Run) string {
			return r.ID
		}),
	}
}
