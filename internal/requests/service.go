package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hostel-sync-backend/internal/auth"
	"hostel-sync-backend/internal/gateway"
	"hostel-sync-backend/internal/model"
)

var (
	// ErrStatusChangeForbidden is returned when a non-admin tries to change
	// a request's status.
	ErrStatusChangeForbidden = errors.New("only admins may change request status")
	// ErrRequestNotFound is returned when the targeted request does not exist.
	ErrRequestNotFound = errors.New("service request not found")
)

// ValidationError reports malformed input caught before any remote call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Gateway is the slice of the remote data gateway the workflow consumes.
type Gateway interface {
	FetchServiceRequests(ctx context.Context, f gateway.RequestFilter) ([]model.ServiceRequest, error)
	InsertServiceRequest(ctx context.Context, req model.ServiceRequest) error
	UpdateServiceRequest(ctx context.Context, id string, patch map[string]any) error
}

// Refresher re-derives the request collection after a write.
type Refresher interface {
	RefreshServiceRequests(ctx context.Context) error
}

// NewRequest carries the user-entered fields for a new service request.
type NewRequest struct {
	Title       string
	Description string
	Category    string
	Priority    model.Priority
	RoomID      string
}

// Service implements the service-request workflow: requests are created in
// pending, only admins move them between states, and every status change may
// append exactly one comment onto the preserved existing list.
type Service struct {
	gw        Gateway
	refresher Refresher
	now       func() time.Time
}

// NewService creates a request workflow service.
func NewService(gw Gateway, refresher Refresher) *Service {
	return &Service{gw: gw, refresher: refresher, now: time.Now}
}

// Create raises a new request owned by the actor. The status is always
// pending regardless of input.
func (s *Service) Create(ctx context.Context, actor auth.Identity, in NewRequest) error {
	if in.Title == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if in.Category == "" {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	if in.RoomID == "" {
		return &ValidationError{Field: "room_id", Reason: "required"}
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}

	req := model.ServiceRequest{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      model.RequestPending,
		ProfileID:   actor.ID,
		RoomID:      in.RoomID,
	}
	if err := s.gw.InsertServiceRequest(ctx, req); err != nil {
		return fmt.Errorf("insert service request: %w", err)
	}
	return s.refresh(ctx)
}

// UpdateStatus moves a request to a new state. Admins may move any state to
// any other state; non-admins may not change status at all. When comment is
// non-empty it is appended to the existing comment list in the same write.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Identity, id string, status model.RequestStatus, comment string) error {
	if actor.Role != model.RoleAdmin {
		return ErrStatusChangeForbidden
	}
	if !model.ValidRequestStatus(status) {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	matches, err := s.gw.FetchServiceRequests(ctx, gateway.RequestFilter{ID: id})
	if err != nil {
		return fmt.Errorf("fetch service request: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("request %s: %w", id, ErrRequestNotFound)
	}
	existing := matches[0]

	patch := map[string]any{"status": status}
	if comment != "" {
		appended := append(existing.Comments, model.Comment{
			ID:       uuid.NewString(),
			UserID:   actor.ID,
			UserName: actor.Name,
			Text:     comment,
			Date:     s.now().UTC().Format(gateway.DateLayout),
		})
		patch["comments"] = appended
	}

	if err := s.gw.UpdateServiceRequest(ctx, id, patch); err != nil {
		return fmt.Errorf("update service request: %w", err)
	}
	return s.refresh(ctx)
}

func (s *Service) refresh(ctx context.Context) error {
	if err := s.refresher.RefreshServiceRequests(ctx); err != nil {
		return fmt.Errorf("refresh service requests: %w", err)
	}
	return nil
}
