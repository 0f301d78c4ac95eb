// Package gallery provides the gallery lifecycle actions. Two action types
// share the Service interface: create_gallery provisions a new gallery and
// update_gallery_status moves an existing one through its lifecycle.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lensflow/lensflow/pkg/models"
)

var (
	ErrNameRequired   = errors.New("create_gallery requires a 'name' in configuration")
	ErrStatusRequired = errors.New("update_gallery_status requires a 'status' in configuration")
	ErrGalleryMissing = errors.New("no gallery_id found in run data")
)

// Service is the gallery subsystem the actions call into.
type Service interface {
	CreateGallery(ctx context.Context, name string, clientID string) (string, error)
	UpdateGalleryStatus(ctx context.Context, galleryID string, status string) error
}

// CreateAction provisions a new gallery for the client on the run.
type CreateAction struct {
	Name    string
	service Service
}

// NewCreateAction creates a create_gallery action from node configuration.
func NewCreateAction(config map[string]any, service Service) (*CreateAction, error) {
	name, _ := config["name"].(string)
	if name == "" {
		return nil, ErrNameRequired
	}

	if service == nil {
		service = &logService{}
	}

	return &CreateAction{Name: name, service: service}, nil
}

func (a *CreateAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", "create_gallery", "name", a.Name)

	clientID, _ := executionCtx.Data["client_id"].(string)

	galleryID, err := a.service.CreateGallery(ctx, a.Name, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to create gallery: %w", err)
	}

	logger.InfoContext(ctx, "Gallery created", "gallery_id", galleryID)

	return map[string]any{
		"gallery_id": galleryID,
	}, nil
}

// UpdateStatusAction transitions the gallery on the run to a new status.
type UpdateStatusAction struct {
	Status  string
	service Service
}

// NewUpdateStatusAction creates an update_gallery_status action from node
// configuration.
func NewUpdateStatusAction(config map[string]any, service Service) (*UpdateStatusAction, error) {
	status, _ := config["status"].(string)
	if status == "" {
		return nil, ErrStatusRequired
	}

	if service == nil {
		service = &logService{}
	}

	return &UpdateStatusAction{Status: status, service: service}, nil
}

func (a *UpdateStatusAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", "update_gallery_status", "status", a.Status)

	galleryID, _ := executionCtx.Data["gallery_id"].(string)
	if galleryID == "" {
		return nil, ErrGalleryMissing
	}

	if err := a.service.UpdateGalleryStatus(ctx, galleryID, a.Status); err != nil {
		return nil, fmt.Errorf("failed to update gallery status: %w", err)
	}

	logger.InfoContext(ctx, "Gallery status updated", "gallery_id", galleryID)

	return map[string]any{
		"gallery_id":     galleryID,
		"gallery_status": a.Status,
	}, nil
}

// logService logs gallery operations instead of performing them.
type logService struct{}

func (s *logService) CreateGallery(ctx context.Context, name string, clientID string) (string, error) {
	slog.InfoContext(ctx, "Gallery create (log service)", "name", name, "client_id", clientID)

	return "log-gallery", nil
}

func (s *logService) UpdateGalleryStatus(ctx context.Context, galleryID string, status string) error {
	slog.InfoContext(ctx, "Gallery status update (log service)", "gallery_id", galleryID, "status", status)

	return nil
}
