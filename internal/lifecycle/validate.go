package lifecycle

import (
	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/common/validation"
	"greencrew/internal/models"
)

const (
	maxProgressLength = 2000
	maxDescription    = 5000
)

func (e *Engine) jobDraftSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"title":       {Type: "string", MinLength: validation.Int(3), MaxLength: validation.Int(120)},
			"description": {Type: "string", MinLength: validation.Int(10), MaxLength: validation.Int(maxDescription)},
			"category":    {Type: "string", Enum: models.EnumValues(models.JobCategories)},
			"location": {
				Type: "object",
				Properties: map[string]validation.Property{
					"lat":     {Type: "number", Minimum: validation.Float(-90), Maximum: validation.Float(90)},
					"lng":     {Type: "number", Minimum: validation.Float(-180), Maximum: validation.Float(180)},
					"address": {Type: "string", MaxLength: validation.Int(500)},
				},
				Required: []string{"lat", "lng"},
			},
			"startAt":    {Type: "string", Format: "date-time"},
			"endAt":      {Type: "string", Format: "date-time"},
			"hourlyRate": {Type: "number", Minimum: validation.Float(e.rules.RateMin), Maximum: validation.Float(e.rules.RateMax)},
			"requiredCertifications": {
				Type:        "array",
				UniqueItems: true,
				Items:       &validation.Property{Type: "string", Enum: models.Certifications},
			},
			"requiredExperience": {Type: "string", Enum: models.EnumValues(models.ExperienceLevels)},
			"urgency":            {Type: "string", Enum: models.EnumValues(models.Urgencies)},
		},
		Required: []string{"title", "description", "category", "location", "startAt", "endAt", "hourlyRate", "requiredExperience", "urgency"},
	}
}

func (e *Engine) validateDraft(d models.JobDraft) error {
	result, err := validation.Validate(e.jobDraftSchema(), d)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	fields := make([]apperrors.FieldError, 0, len(result.Errors)+1)
	for _, ve := range result.Errors {
		fields = append(fields, apperrors.FieldError{Field: ve.Field, Message: ve.Message})
	}
	if d.StartAt.IsZero() {
		fields = append(fields, apperrors.FieldError{Field: "startAt", Message: "is required"})
	} else if !d.EndAt.After(d.StartAt) {
		fields = append(fields, apperrors.FieldError{Field: "endAt", Message: "must be after startAt"})
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("Invalid job", fields...)
	}
	return nil
}

type applicationInput struct {
	Message      string  `json:"message"`
	ProposedRate float64 `json:"proposedRate"`
}

func (e *Engine) validateApplication(in applicationInput) error {
	schema := validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"message": {
				Type:      "string",
				MinLength: validation.Int(e.rules.MessageMinLength),
				MaxLength: validation.Int(e.rules.MessageMaxLength),
			},
			"proposedRate": {
				Type:    "number",
				Minimum: validation.Float(e.rules.RateMin),
				Maximum: validation.Float(e.rules.RateMax),
			},
		},
		Required: []string{"message", "proposedRate"},
	}
	return validation.Check(schema, in)
}

type progressInput struct {
	Content   string `json:"content"`
	Milestone string `json:"milestone"`
}

func validateProgress(in progressInput) error {
	schema := validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"content": {Type: "string", MinLength: validation.Int(1), MaxLength: validation.Int(maxProgressLength)},
			"milestone": {
				Type: "string",
				Enum: models.EnumValues([]models.Milestone{models.MilestoneUpdate, models.MilestoneCompletion}),
			},
		},
		Required: []string{"content", "milestone"},
	}
	return validation.Check(schema, in)
}
