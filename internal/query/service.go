// Package query serves the normalized category store back out. Every
// operation is read only and tolerates a destination that has not been
// migrated yet by returning an empty result.
package query

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/cache"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/logger"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

// DefaultLimit caps GetAll when the caller gives no limit.
const DefaultLimit = 1000

// Operation names, used as metric labels.
const (
	OpAll           = "all"
	OpBySourceID    = "by_id"
	OpByMain        = "by_main"
	OpByMainAndSub1 = "by_main_sub1"
)

// Observer counts read requests.
type Observer interface {
	ObserveQuery(operation string)
}

// Params is the filter set accepted by Find.
type Params struct {
	Main  string
	Sub1  string
	ID    int64
	Limit int
}

// Service implements the four read operations.
type Service struct {
	reader       store.CategoryReader
	cache        cache.Cache
	observer     Observer
	defaultLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the read cache.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithObserver records one metric per operation.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithDefaultLimit overrides DefaultLimit.
func WithDefaultLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// NewService creates a Service reading from r.
func NewService(r store.CategoryReader, opts ...Option) *Service {
	s := &Service{
		reader:       r,
		cache:        cache.Noop{},
		defaultLimit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Find routes params to one operation: id wins, then main with sub1, then
// main alone; with no usable filter it falls back to the capped GetAll.
// sub1 without main is ignored.
func (s *Service) Find(ctx context.Context, p Params) ([]domain.NormalizedCategory, error) {
	switch {
	case p.ID > 0:
		c, err := s.GetBySourceID(ctx, p.ID)
		if errors.Is(err, store.ErrNotFound) {
			return []domain.NormalizedCategory{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []domain.NormalizedCategory{*c}, nil
	case p.Main != "" && p.Sub1 != "":
		return s.GetByMainCategoryAndSub1(ctx, p.Main, p.Sub1)
	case p.Main != "":
		return s.GetByMainCategory(ctx, p.Main)
	default:
		return s.GetAll(ctx, p.Limit)
	}
}

// GetAll returns up to limit rows ordered by position; limit <= 0 means the default cap.
func (s *Service) GetAll(ctx context.Context, limit int) ([]domain.NormalizedCategory, error) {
	if limit <= 0 || limit > s.defaultLimit {
		limit = s.defaultLimit
	}
	key := cacheKey(OpAll, url.Values{"limit": {strconv.Itoa(limit)}})
	return s.list(ctx, OpAll, key, store.Filter{Limit: limit})
}

// GetByMainCategory returns every row under a main category.
func (s *Service) GetByMainCategory(ctx context.Context, name string) ([]domain.NormalizedCategory, error) {
	key := cacheKey(OpByMain, url.Values{"main": {name}})
	return s.list(ctx, OpByMain, key, store.Filter{MainCategory: name})
}

// GetByMainCategoryAndSub1 returns rows under main > sub1.
func (s *Service) GetByMainCategoryAndSub1(ctx context.Context, name, sub1 string) ([]domain.NormalizedCategory, error) {
	key := cacheKey(OpByMainAndSub1, url.Values{"main": {name}, "sub1": {sub1}})
	return s.list(ctx, OpByMainAndSub1, key, store.Filter{MainCategory: name, Sub1: &sub1})
}

// GetBySourceID returns one row or store.ErrNotFound, including when the
// table does not exist yet.
func (s *Service) GetBySourceID(ctx context.Context, id int64) (*domain.NormalizedCategory, error) {
	s.observe(OpBySourceID)
	log := logger.FromContext(ctx)
	key := cacheKey(OpBySourceID, url.Values{"id": {strconv.FormatInt(id, 10)}})

	var cached domain.NormalizedCategory
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	c, err := s.reader.GetCategory(ctx, id)
	switch {
	case errors.Is(err, store.ErrSchemaNotReady):
		log.Warn().Err(err).Int64("source_id", id).Msg("Category table not ready, returning not found")
		return nil, store.ErrNotFound
	case errors.Is(err, store.ErrNotFound):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("GetBySourceID: %w", err)
	}

	s.cacheSet(ctx, key, c)
	return c, nil
}

func (s *Service) list(ctx context.Context, op, key string, filter store.Filter) ([]domain.NormalizedCategory, error) {
	s.observe(op)
	log := logger.FromContext(ctx)

	var cached []domain.NormalizedCategory
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.reader.ListCategories(ctx, filter)
	if errors.Is(err, store.ErrSchemaNotReady) {
		log.Warn().Err(err).Str("operation", op).Msg("Category table not ready, returning empty result")
		return []domain.NormalizedCategory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	if rows == nil {
		rows = []domain.NormalizedCategory{}
	}

	s.cacheSet(ctx, key, rows)
	return rows, nil
}

func (s *Service) observe(op string) {
	if s.observer != nil {
		s.observer.ObserveQuery(op)
	}
}

// cacheGet treats every cache failure as a miss.
// cacheKey query-escapes every filter value so distinct filters never share a key.
func cacheKey(op string, params url.Values) string {
	return op + "?" + params.Encode()
}

func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Debug().Err(err).Str("key", key).Msg("Category cache read failed")
		return false
	}
	return found
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		log := logger.FromContext(ctx)
		log.Debug().Err(err).Str("key", key).Msg("Category cache write failed")
	}
}
