package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/changelog"
	"github.com/trezcool/mtaala/core/curriculum"
)

type (
	changePayload struct {
		ChangeType  string `json:"change_type" validate:"required"`
		Path        string `json:"path" validate:"required"`
		OldValue    string `json:"old_value"`
		NewValue    string `json:"new_value"`
		Description string `json:"description"`
	}

	recordChangesRequest struct {
		Changes []changePayload `json:"changes" validate:"required,min=1,dive"`
	}

	suggestionRequest struct {
		Path  string `json:"path" validate:"required"`
		Title string `json:"title" validate:"required"`
		Body  string `json:"body" validate:"required"`
	}

	attachResourceRequest struct {
		Path     string          `json:"path" validate:"required"`
		Resource resourcePayload `json:"resource" validate:"required"`
	}

	resourcePayload struct {
		ID    string `json:"id" validate:"required"`
		Title string `json:"title" validate:"required"`
		URL   string `json:"url" validate:"omitempty,url"`
		Type  string `json:"type"`
	}

	heartbeatRequest struct {
		SessionID uuid.UUID `json:"session_id" validate:"required"`
	}

	openResponse struct {
		Session       *collabSessionPayload `json:"session"`
		Collaborators interface{}           `json:"collaborators"`
	}

	collabSessionPayload struct {
		ID         uuid.UUID `json:"id"`
		OfferingID string    `json:"offering_id"`
	}
)

func (r *recordChangesRequest) Validate(validate *validator.Validate) error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	for _, chg := range r.Changes {
		if !changelog.ChangeType(chg.ChangeType).Valid() {
			return core.NewValidationError(nil, core.FieldError{Field: "change_type", Error: "invalid change type"})
		}
		if _, err := curriculum.ParsePath(chg.Path); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "path", Error: err.Error()})
		}
	}
	return nil
}

func (r *suggestionRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *attachResourceRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *heartbeatRequest) Validate(validate *validator.Validate) error {
	if r.SessionID == uuid.Nil {
		return core.NewValidationError(nil, core.FieldError{Field: "session_id", Error: "this field is required"})
	}
	return validate.Struct(r)
}

func (r *resourcePayload) ref() curriculum.ResourceRef {
	return curriculum.ResourceRef{ID: r.ID, Title: r.Title, URL: r.URL, Type: r.Type}
}
