package gallery

import (
	"context"

	"github.com/lensflow/lensflow/pkg/protocol"
)

// CreateActionFactory creates create_gallery action instances.
type CreateActionFactory struct {
	service Service
}

func NewCreateActionFactory(service Service) *CreateActionFactory {
	return &CreateActionFactory{service: service}
}

func (f *CreateActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewCreateAction(config, f.service)
}

func (f *CreateActionFactory) ID() string {
	return "create_gallery"
}

func (f *CreateActionFactory) Name() string {
	return "Create Gallery"
}

func (f *CreateActionFactory) Description() string {
	return "Provisions a new gallery for the client associated with the run."
}

func (f *CreateActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "Name of the gallery to create.",
			},
		},
		"required":             []string{"name"},
		"additionalProperties": false,
	}
}

// UpdateStatusActionFactory creates update_gallery_status action instances.
type UpdateStatusActionFactory struct {
	service Service
}

func NewUpdateStatusActionFactory(service Service) *UpdateStatusActionFactory {
	return &UpdateStatusActionFactory{service: service}
}

func (f *UpdateStatusActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewUpdateStatusAction(config, f.service)
}

func (f *UpdateStatusActionFactory) ID() string {
	return "update_gallery_status"
}

func (f *UpdateStatusActionFactory) Name() string {
	return "Update Gallery Status"
}

func (f *UpdateStatusActionFactory) Description() string {
	return "Moves the gallery on the run to a new lifecycle status."
}

func (f *UpdateStatusActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{
				"type":        "string",
				"description": "Target gallery status.",
				"enum":        []string{"draft", "delivered", "archived", "expired"},
			},
		},
		"required":             []string{"status"},
		"additionalProperties": false,
	}
}
