package cache

import (
	"context"
	"errors"

	"github.com/autopeer-io/paramsync/internal/pkg/metrics"
)

var _ Store = (*instrumentedStore)(nil)

type instrumentedStore struct {
	Store
}

// Instrument records every call on s in metrics.CacheOperationsTotal.
func Instrument(s Store) Store {
	return &instrumentedStore{Store: s}
}

func observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, ErrCorrupt):
		result = "corrupt"
	default:
		result = "error"
	}
	metrics.CacheOperationsTotal.WithLabelValues(op, result).Inc()
}

func (s *instrumentedStore) Load(ctx context.Context, key VehicleKey) (*Entry, error) {
	e, err := s.Store.Load(ctx, key)
	observe("load", err)
	return e, err
}

func (s *instrumentedStore) Save(ctx context.Context, key VehicleKey, entry *Entry) error {
	err := s.Store.Save(ctx, key, entry)
	observe("save", err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, key VehicleKey) error {
	err := s.Store.Delete(ctx, key)
	observe("delete", err)
	return err
}

func (s *instrumentedStore) List(ctx context.Context) ([]Entry, error) {
	out, err := s.Store.List(ctx)
	observe("list", err)
	return out, err
}
