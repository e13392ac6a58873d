package querying

import (
	"context"
	"time"

	"entityquery/internal/evaluation"
	"entityquery/internal/filters"
	"entityquery/internal/logger"
	"entityquery/internal/paging"
	"entityquery/pkg/cel"
	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/logging"
	"entityquery/pkg/metrics"
	"entityquery/pkg/query"
)

type Service struct {
	evaluator *evaluation.Evaluator
	filters   filters.Service
	compiler  *cel.Compiler
	maxRows   int
	maxPage   int
	now       func() time.Time
	logger    logger.Logger
}

type ServiceOption func(*Service)

// WithMaxRows caps the number of rows one query may submit.
func WithMaxRows(maxRows int) ServiceOption {
	return func(s *Service) {
		s.maxRows = maxRows
	}
}

func WithMaxPageSize(size int) ServiceOption {
	return func(s *Service) {
		s.maxPage = size
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(evaluator *evaluation.Evaluator, savedFilters filters.Service, compiler *cel.Compiler, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		evaluator: evaluator,
		filters:   savedFilters,
		compiler:  compiler,
		now:       time.Now,
		logger:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) QueryEntities(ctx context.Context, principal evaluation.Principal, req EntityQuery) (query.PageData[query.EntityData], error) {
	page, err := s.queryEntities(ctx, principal, req)
	recordQuery("entities", len(page.Data), err)
	return page, err
}

func (s *Service) queryEntities(ctx context.Context, principal evaluation.Principal, req EntityQuery) (query.PageData[query.EntityData], error) {
	if err := req.PageLink.Validate(); err != nil {
		return query.PageData[query.EntityData]{}, err
	}
	if err := s.checkLimits(len(req.Entities), req.PageLink.PageSize); err != nil {
		return query.PageData[query.EntityData]{}, err
	}

	keyFilters, err := s.keyFilters(ctx, principal, req.FilterID, req.KeyFilters)
	if err != nil {
		return query.PageData[query.EntityData]{}, err
	}

	matched, failed, err := s.evaluator.FilterEntities(ctx, principal, keyFilters, req.Entities)
	if err != nil {
		return query.PageData[query.EntityData]{}, err
	}
	if err := s.firstFailure(ctx, failed); err != nil {
		return query.PageData[query.EntityData]{}, err
	}

	return paging.PageEntities(matched, req.PageLink, paging.DefaultOptions())
}

// QueryAlarms filters alarm rows by the latest values of the entity each
// row was found for, then applies the alarm page link.
func (s *Service) QueryAlarms(ctx context.Context, principal evaluation.Principal, req AlarmQuery) (query.PageData[query.AlarmData], error) {
	page, err := s.queryAlarms(ctx, principal, req)
	recordQuery("alarms", len(page.Data), err)
	return page, err
}

func (s *Service) queryAlarms(ctx context.Context, principal evaluation.Principal, req AlarmQuery) (query.PageData[query.AlarmData], error) {
	if err := req.PageLink.Validate(); err != nil {
		return query.PageData[query.AlarmData]{}, err
	}
	if err := s.checkLimits(len(req.Alarms), req.PageLink.PageSize); err != nil {
		return query.PageData[query.AlarmData]{}, err
	}

	keyFilters, err := s.keyFilters(ctx, principal, req.FilterID, req.KeyFilters)
	if err != nil {
		return query.PageData[query.AlarmData]{}, err
	}

	rows := make([]query.EntityData, len(req.Alarms))
	for i, alarm := range req.Alarms {
		rows[i] = query.EntityData{EntityID: alarm.EntityID, Latest: alarm.Latest}
	}

	verdicts, err := s.evaluator.EvaluateBatch(ctx, principal, keyFilters, rows)
	if err != nil {
		return query.PageData[query.AlarmData]{}, err
	}

	kept := make([]query.AlarmData, 0, len(req.Alarms))
	var failed []evaluation.Verdict
	for i, verdict := range verdicts {
		switch {
		case verdict.Err != nil:
			failed = append(failed, verdict)
		case verdict.Matched:
			kept = append(kept, req.Alarms[i])
		}
	}
	if err := s.firstFailure(ctx, failed); err != nil {
		return query.PageData[query.AlarmData]{}, err
	}

	return paging.PageAlarms(kept, req.PageLink, s.now())
}

// ExportCEL binds the saved filter's dynamic values for principal and
// renders the result as a CEL expression.
func (s *Service) ExportCEL(ctx context.Context, principal evaluation.Principal, filterID string) (CELExport, error) {
	keyFilters, err := s.keyFilters(ctx, principal, filterID, nil)
	if err != nil {
		return CELExport{}, err
	}

	bound, err := s.evaluator.Bind(ctx, principal, keyFilters)
	if err != nil {
		return CELExport{}, err
	}

	program, err := s.compiler.Compile(bound, cel.CompileOptions{
		NegationMatchesMissing: s.evaluator.Options().MissingValuePolicy == evaluation.MissingNegationMatches,
	})
	if err != nil {
		return CELExport{}, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return CELExport{FilterID: filterID, Expression: program.Expression}, nil
}

func (s *Service) keyFilters(ctx context.Context, principal evaluation.Principal, filterID string, inline []query.KeyFilter) ([]query.KeyFilter, error) {
	if filterID == "" {
		return inline, nil
	}
	if len(inline) > 0 {
		return nil, pkgerrors.ErrValidation.WithMessage("filterId and keyFilters are mutually exclusive")
	}

	saved, err := s.filters.GetFilter(logging.WithFilterID(ctx, filterID), principal, filterID)
	if err != nil {
		return nil, err
	}
	return saved.KeyFilterSet()
}

func (s *Service) checkLimits(rows, pageSize int) error {
	if s.maxRows > 0 && rows > s.maxRows {
		return pkgerrors.ErrValidation.WithMessage("query submits %d rows, the limit is %d", rows, s.maxRows)
	}
	if s.maxPage > 0 && pageSize > s.maxPage {
		return pkgerrors.ErrValidation.WithMessage("pageSize %d exceeds the limit of %d", pageSize, s.maxPage)
	}
	return nil
}

// firstFailure turns per-row storage failures into one error for the whole
// request: a partial page would silently hide rows.
func (s *Service) firstFailure(ctx context.Context, failed []evaluation.Verdict) error {
	if len(failed) == 0 {
		return nil
	}
	s.logger.WarnwCtx(ctx, "Query aborted by storage failures",
		"failed_rows", len(failed),
		"first_entity", failed[0].EntityID.String(),
	)
	return pkgerrors.Wrap(failed[0].Err, pkgerrors.ErrStorageUnavailable).
		WithDetail("failed_rows", len(failed))
}

func recordQuery(kind string, rows int, err error) {
	status := "ok"
	switch {
	case err == nil:
		metrics.ObserveQueryResultSize(kind, rows)
	case pkgerrors.IsConfiguration(err), pkgerrors.IsValidation(err):
		status = "rejected"
	case pkgerrors.IsStorageUnavailable(err):
		status = "unavailable"
	default:
		status = "error"
	}
	metrics.IncQueryRequest(kind, status)
}
