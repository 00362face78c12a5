package metadata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mohitkumar/funnel/cache"
	"github.com/mohitkumar/funnel/flow"
	"github.com/mohitkumar/funnel/logger"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
	"github.com/mohitkumar/funnel/util"
	"go.uber.org/zap"
)

const DEFAULT_FLOW_NAME = "New flow"
const COPY_SUFFIX = " (copy)"
const IMPORTED_SUFFIX = " (imported)"

// FlowService is the persistence gateway for authored flows.
type FlowService struct {
	dao   persistence.FlowDao
	cache *cache.FlowCache
	newId util.IdGenerator
	now   func() time.Time
}

type Option func(*FlowService)

func WithIdGenerator(gen util.IdGenerator) Option {
	return func(s *FlowService) {
		s.newId = gen
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *FlowService) {
		s.now = now
	}
}

func NewFlowService(dao persistence.FlowDao, flowCache *cache.FlowCache, opts ...Option) *FlowService {
	s := &FlowService{
		dao:   dao,
		cache: flowCache,
		newId: util.NewId,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FlowService) normalize(fl *model.Flow) {
	if fl.Steps == nil {
		fl.Steps = []model.Step{}
	}
	if fl.Links == nil {
		fl.Links = []model.Link{}
	}
	fl.UpdatedAt = s.now().UTC()
}

func (s *FlowService) Create(ctx context.Context, fl model.Flow) (*model.Flow, error) {
	fl.Id = s.newId()
	if len(strings.TrimSpace(fl.Name)) == 0 {
		fl.Name = DEFAULT_FLOW_NAME
	}
	s.normalize(&fl)
	created, err := s.dao.Create(ctx, fl)
	if err != nil {
		logger.Error("error creating flow", zap.String("name", fl.Name), zap.Error(err))
		return nil, err
	}
	logger.Info("flow created", zap.String("id", created.Id), zap.String("name", created.Name))
	return created, nil
}

func (s *FlowService) Get(ctx context.Context, id string) (*model.Flow, error) {
	return s.dao.Get(ctx, id)
}

func (s *FlowService) Update(ctx context.Context, id string, fl model.Flow) (*model.Flow, error) {
	s.normalize(&fl)
	updated, err := s.dao.Update(ctx, id, fl)
	if err != nil {
		logger.Error("error updating flow", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	s.invalidate(id)
	return updated, nil
}

func (s *FlowService) Delete(ctx context.Context, id string) error {
	if err := s.dao.Delete(ctx, id); err != nil {
		logger.Error("error deleting flow", zap.String("id", id), zap.Error(err))
		return err
	}
	s.invalidate(id)
	logger.Info("flow deleted", zap.String("id", id))
	return nil
}

func (s *FlowService) List(ctx context.Context) ([]model.Flow, error) {
	return s.dao.List(ctx)
}

// Duplicate stores a copy of a flow with fresh step and link ids.
func (s *FlowService) Duplicate(ctx context.Context, id string) (*model.Flow, error) {
	src, err := s.dao.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	steps, links := flow.Regenerate(src.Steps, src.Links, s.newId)
	return s.Create(ctx, model.Flow{
		Name:  src.Name + COPY_SUFFIX,
		Steps: steps,
		Links: links,
	})
}

func (s *FlowService) Import(ctx context.Context, data []byte, format flow.Format) (*model.Flow, error) {
	file, err := flow.DecodeImport(data, format)
	if err != nil {
		return nil, err
	}
	fl := flow.Imported(file, s.newId)
	fl.Name = file.Name + IMPORTED_SUFFIX
	return s.Create(ctx, fl)
}

func (s *FlowService) Export(ctx context.Context, id string) (*model.ExportFile, error) {
	fl, err := s.dao.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	file := flow.Export(*fl, s.now())
	return &file, nil
}

func (s *FlowService) Validate(steps []model.Step, links []model.Link) model.ValidationResult {
	return flow.Validate(steps, links)
}

// GetExecutable returns the runnable form of a stored flow.
func (s *FlowService) GetExecutable(ctx context.Context, id string) (*cache.Entry, error) {
	if s.cache == nil {
		stored, err := s.dao.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		fl, err := flow.Convert(stored)
		if err != nil {
			return nil, fmt.Errorf("flow %s can not be executed: %w", id, err)
		}
		return &cache.Entry{Flow: fl, Validation: flow.ValidateFlow(stored)}, nil
	}
	return s.cache.Get(ctx, id)
}

func (s *FlowService) invalidate(id string) {
	if s.cache != nil {
		s.cache.Invalidate(id)
	}
}
