package lending

import (
	"Gin_postgres_redis_lend_tool/db"
	"Gin_postgres_redis_lend_tool/events"
	"Gin_postgres_redis_lend_tool/models"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "Gin_postgres_redis_lend_tool/lending"

// Store is the part of db.Store the lifecycle needs.
type Store interface {
	FindResource(ctx context.Context, id string) (*models.Resource, error)
	DeleteResources(ctx context.Context, f db.ResourceFilter) (int64, error)

	InsertRequest(ctx context.Context, req *models.Request) error
	FindRequest(ctx context.Context, id string) (*models.Request, error)
	FindOneRequest(ctx context.Context, f db.RequestFilter) (*models.Request, error)
	ListRequests(ctx context.Context, f db.RequestFilter) ([]models.Request, error)
	UpdateRequest(ctx context.Context, id string, fields map[string]any) error
	DeleteRequests(ctx context.Context, f db.RequestFilter) (int64, error)
	CountRequests(ctx context.Context, f db.RequestFilter) (int64, error)
}

// Service runs the borrow-request lifecycle. It holds no locks: every store
// call is an independent single-document operation.
type Service struct {
	store  Store
	pub    events.Publisher
	log    *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.pub = p } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// WithClock replaces the wall clock; the result is converted to UTC.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		pub:    events.Nop{},
		log:    slog.Default(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) utcNow() time.Time { return s.now().UTC() }

// Action is an owner decision on a request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Receipt is what the borrower gets back when marking a loan returned.
type Receipt struct {
	Days           int      `json:"days"`
	TotalDue       float64  `json:"total_due"`
	PaymentMethods []string `json:"payment_methods"`
}

// ClearResult holds the delete counts of ClearResources.
type ClearResult struct {
	Resources          int64 `json:"resources"`
	RequestsAsOwner    int64 `json:"requests_as_owner"`
	RequestsAsBorrower int64 `json:"requests_as_borrower"`
}

func (s *Service) start(ctx context.Context, name, caller string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("lending.caller", caller))
	return s.tracer.Start(ctx, "lending."+name, trace.WithAttributes(attrs...))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Service) publish(ctx context.Context, key string, v any) {
	if err := s.pub.PublishJSON(ctx, key, v); err != nil {
		s.log.WarnContext(ctx, "publish lifecycle event failed", "key", key, "err", err)
	}
}

func (s *Service) requestChanged(req *models.Request, at time.Time) events.RequestChanged {
	return events.RequestChanged{
		RequestID:     req.ID,
		ResourceID:    req.ResourceID,
		ResourceTitle: req.ResourceTitle,
		OwnerEmail:    req.OwnerEmail,
		BorrowerEmail: req.BorrowerEmail,
		Status:        string(req.Status),
		Days:          req.Days,
		TotalDue:      req.TotalDue,
		At:            at,
	}
}

// CreateRequest opens a Pending request by caller for resourceID.
func (s *Service) CreateRequest(ctx context.Context, caller, resourceID string) (*models.Request, error) {
	resourceID = strings.TrimSpace(resourceID)
	ctx, span := s.start(ctx, "CreateRequest", caller, attribute.String("lending.resource_id", resourceID))
	defer span.End()

	if caller == "" {
		return nil, fail(span, ErrUnauthenticated)
	}
	if resourceID == "" {
		return nil, fail(span, fmt.Errorf("%w: missing resource_id", ErrInvalidArgument))
	}

	res, err := s.store.FindResource(ctx, resourceID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fail(span, fmt.Errorf("%w: resource not found", ErrNotFound))
	}
	if err != nil {
		return nil, fail(span, err)
	}
	if res.OwnerEmail == caller {
		return nil, fail(span, fmt.Errorf("%w: cannot request your own resource", ErrInvalidOperation))
	}

	_, err = s.store.FindOneRequest(ctx, db.RequestFilter{
		ResourceID:    res.ID,
		BorrowerEmail: caller,
		Statuses:      models.ActiveStatuses,
	})
	if err == nil {
		return nil, fail(span, fmt.Errorf("%w: you already have an active request for this resource", ErrConflict))
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fail(span, err)
	}

	req := &models.Request{
		ResourceID:    res.ID,
		ResourceTitle: res.Title,
		OwnerEmail:    res.OwnerEmail,
		BorrowerEmail: caller,
		Status:        models.StatusPending,
	}
	if err := s.store.InsertRequest(ctx, req); err != nil {
		// 并发下预检查可能都通过，由唯一索引兜底
		if errors.Is(err, db.ErrDuplicate) {
			return nil, fail(span, fmt.Errorf("%w: you already have an active request for this resource", ErrConflict))
		}
		return nil, fail(span, err)
	}

	s.log.InfoContext(ctx, "borrow request created",
		"request_id", req.ID, "resource_id", req.ResourceID, "borrower", caller)
	s.publish(ctx, events.RKRequestCreated, s.requestChanged(req, s.utcNow()))
	return req, nil
}

// TransitionRequest lets the owner approve or reject a request. The current
// status is not checked, so a rejected or returned request can be approved
// again, unless the borrower has since opened another active request for the
// same resource, which is a conflict.
func (s *Service) TransitionRequest(ctx context.Context, caller, requestID string, action Action) error {
	ctx, span := s.start(ctx, "TransitionRequest", caller,
		attribute.String("lending.request_id", requestID),
		attribute.String("lending.action", string(action)))
	defer span.End()

	if caller == "" {
		return fail(span, ErrUnauthenticated)
	}
	req, err := s.findRequest(ctx, requestID)
	if err != nil {
		return fail(span, err)
	}
	if req.OwnerEmail != caller {
		return fail(span, fmt.Errorf("%w: only the resource owner can %s", ErrForbidden, action))
	}

	now := s.utcNow()
	var (
		fields map[string]any
		key    string
	)
	switch action {
	case ActionApprove:
		fields = map[string]any{db.FieldStatus: string(models.StatusApproved), db.FieldApprovedAt: now}
		req.Status, req.ApprovedAt = models.StatusApproved, &now
		key = events.RKRequestApproved
	case ActionReject:
		fields = map[string]any{db.FieldStatus: string(models.StatusRejected)}
		req.Status = models.StatusRejected
		key = events.RKRequestRejected
	default:
		return fail(span, fmt.Errorf("%w: invalid action %q", ErrInvalidArgument, action))
	}

	if err := s.store.UpdateRequest(ctx, req.ID, fields); err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			return fail(span, fmt.Errorf("%w: request not found", ErrNotFound))
		case errors.Is(err, db.ErrDuplicate):
			// 同一借用人对该物品已有进行中的申请
			return fail(span, fmt.Errorf("%w: borrower already has an active request for this resource", ErrConflict))
		}
		return fail(span, err)
	}

	s.log.InfoContext(ctx, "borrow request "+string(req.Status),
		"request_id", req.ID, "owner", caller)
	s.publish(ctx, key, s.requestChanged(req, now))
	return nil
}

// ReturnRequest closes an approved loan for its borrower and bills it.
func (s *Service) ReturnRequest(ctx context.Context, caller, requestID string) (*Receipt, error) {
	ctx, span := s.start(ctx, "ReturnRequest", caller, attribute.String("lending.request_id", requestID))
	defer span.End()

	if caller == "" {
		return nil, fail(span, ErrUnauthenticated)
	}
	req, err := s.findRequest(ctx, requestID)
	if err != nil {
		return nil, fail(span, err)
	}
	if req.BorrowerEmail != caller {
		return nil, fail(span, fmt.Errorf("%w: only the borrower can return", ErrForbidden))
	}
	if req.Status != models.StatusApproved {
		return nil, fail(span, fmt.Errorf("%w: only approved requests can be returned", ErrInvalidOperation))
	}

	// 物品已删除时按 0 计费
	dailyPrice := 0.0
	res, err := s.store.FindResource(ctx, req.ResourceID)
	switch {
	case err == nil:
		dailyPrice = ParseDailyPrice(res.Price)
	case errors.Is(err, db.ErrNotFound):
	default:
		return nil, fail(span, err)
	}

	now := s.utcNow()
	days := BillableDays(req.ApprovedAt, now)
	total := TotalDue(dailyPrice, days)

	if err := s.store.UpdateRequest(ctx, req.ID, map[string]any{
		db.FieldStatus:     string(models.StatusReturned),
		db.FieldReturnedAt: now,
		db.FieldDays:       days,
		db.FieldTotalDue:   total,
	}); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fail(span, fmt.Errorf("%w: request not found", ErrNotFound))
		}
		return nil, fail(span, err)
	}
	req.Status, req.ReturnedAt, req.Days, req.TotalDue = models.StatusReturned, &now, &days, &total

	span.SetAttributes(attribute.Int("lending.days", days), attribute.Float64("lending.total_due", total))
	s.log.InfoContext(ctx, "borrow request returned",
		"request_id", req.ID, "borrower", caller, "days", days, "total_due", total)
	s.publish(ctx, events.RKRequestReturned, s.requestChanged(req, now))

	methods := make([]string, len(PaymentMethods))
	copy(methods, PaymentMethods)
	return &Receipt{Days: days, TotalDue: total, PaymentMethods: methods}, nil
}

func (s *Service) findRequest(ctx context.Context, id string) (*models.Request, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: request not found", ErrNotFound)
	}
	req, err := s.store.FindRequest(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: request not found", ErrNotFound)
	}
	return req, err
}

// ListForBorrower returns the requests caller has made.
func (s *Service) ListForBorrower(ctx context.Context, caller string) ([]models.Request, error) {
	return s.list(ctx, "ListForBorrower", caller, db.RequestFilter{BorrowerEmail: caller})
}

// ListForOwner returns the requests made for caller's resources.
func (s *Service) ListForOwner(ctx context.Context, caller string) ([]models.Request, error) {
	return s.list(ctx, "ListForOwner", caller, db.RequestFilter{OwnerEmail: caller})
}

func (s *Service) list(ctx context.Context, name, caller string, f db.RequestFilter) ([]models.Request, error) {
	ctx, span := s.start(ctx, name, caller)
	defer span.End()

	if caller == "" {
		return nil, fail(span, ErrUnauthenticated)
	}
	out, err := s.store.ListRequests(ctx, f)
	if err != nil {
		return nil, fail(span, err)
	}
	if out == nil {
		out = []models.Request{}
	}
	return out, nil
}

// CountPendingForOwner feeds the incoming-requests badge.
func (s *Service) CountPendingForOwner(ctx context.Context, caller string) (int64, error) {
	ctx, span := s.start(ctx, "CountPendingForOwner", caller)
	defer span.End()

	if caller == "" {
		return 0, fail(span, ErrUnauthenticated)
	}
	n, err := s.store.CountRequests(ctx, db.RequestFilter{
		OwnerEmail: caller,
		Statuses:   []models.RequestStatus{models.StatusPending},
	})
	if err != nil {
		return 0, fail(span, err)
	}
	return n, nil
}

// ClearResources deletes caller's resources, then the requests where caller
// is owner, then those where caller is borrower. The three deletes are
// independent: a failure stops the sequence and nothing is rolled back.
func (s *Service) ClearResources(ctx context.Context, caller string) (ClearResult, error) {
	ctx, span := s.start(ctx, "ClearResources", caller)
	defer span.End()

	var out ClearResult
	if caller == "" {
		return out, fail(span, ErrUnauthenticated)
	}

	n, err := s.store.DeleteResources(ctx, db.ResourceFilter{OwnerEmail: caller})
	if err != nil {
		return out, fail(span, fmt.Errorf("delete resources: %w", err))
	}
	out.Resources = n

	n, err = s.store.DeleteRequests(ctx, db.RequestFilter{OwnerEmail: caller})
	if err != nil {
		s.log.ErrorContext(ctx, "clear left partial state", "owner", caller, "stage", "requests_as_owner", "err", err)
		return out, fail(span, fmt.Errorf("delete requests as owner: %w", err))
	}
	out.RequestsAsOwner = n

	n, err = s.store.DeleteRequests(ctx, db.RequestFilter{BorrowerEmail: caller})
	if err != nil {
		s.log.ErrorContext(ctx, "clear left partial state", "owner", caller, "stage", "requests_as_borrower", "err", err)
		return out, fail(span, fmt.Errorf("delete requests as borrower: %w", err))
	}
	out.RequestsAsBorrower = n

	s.log.InfoContext(ctx, "resources cleared", "owner", caller,
		"resources", out.Resources, "requests_as_owner", out.RequestsAsOwner,
		"requests_as_borrower", out.RequestsAsBorrower)
	s.publish(ctx, events.RKResourcesCleared, events.ResourcesCleared{
		OwnerEmail:         caller,
		Resources:          out.Resources,
		RequestsAsOwner:    out.RequestsAsOwner,
		RequestsAsBorrower: out.RequestsAsBorrower,
		At:                 s.utcNow(),
	})
	return out, nil
}
