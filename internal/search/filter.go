package search

import (
	"encoding/json"

	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/common/validation"
	"greencrew/internal/models"
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Filter is a job search request. Radius is in miles and only applies with a Location.
type Filter struct {
	Text               string                 `json:"text,omitempty"`
	Category           models.JobCategory     `json:"category,omitempty"`
	MinRate            *float64               `json:"minRate,omitempty"`
	MaxRate            *float64               `json:"maxRate,omitempty"`
	Urgency            models.Urgency         `json:"urgency,omitempty"`
	RequiredExperience models.ExperienceLevel `json:"requiredExperience,omitempty"`
	Certifications     []string               `json:"certifications,omitempty"`
	Status             models.JobStatus       `json:"status,omitempty"`
	Location           *Point                 `json:"location,omitempty"`
	Radius             *float64               `json:"radius,omitempty"`
	Page               int                    `json:"page,omitempty"`
	Limit              int                    `json:"limit,omitempty"`
}

func (e *Engine) filterSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"text":               {Type: "string", MaxLength: validation.Int(200)},
			"category":           {Type: "string", Enum: models.EnumValues(models.JobCategories)},
			"minRate":            {Type: "number", Minimum: validation.Float(0)},
			"maxRate":            {Type: "number", Minimum: validation.Float(0)},
			"urgency":            {Type: "string", Enum: models.EnumValues(models.Urgencies)},
			"requiredExperience": {Type: "string", Enum: models.EnumValues(models.ExperienceLevels)},
			"certifications": {
				Type:        "array",
				UniqueItems: true,
				Items:       &validation.Property{Type: "string", Enum: models.Certifications},
			},
			"status": {Type: "string", Enum: models.EnumValues([]models.JobStatus{
				models.JobStatusOpen, models.JobStatusInProgress, models.JobStatusCompleted, models.JobStatusCancelled,
			})},
			"location": {
				Type: "object",
				Properties: map[string]validation.Property{
					"lat": {Type: "number", Minimum: validation.Float(-90), Maximum: validation.Float(90)},
					"lng": {Type: "number", Minimum: validation.Float(-180), Maximum: validation.Float(180)},
				},
				Required: []string{"lat", "lng"},
			},
			"radius": {Type: "number", Minimum: validation.Float(0), Maximum: validation.Float(e.cfg.MaxRadius)},
			"page":   {Type: "integer", Minimum: validation.Float(1)},
			"limit":  {Type: "integer", Minimum: validation.Float(1)},
		},
		AdditionalProperties: validation.Bool(false),
	}
}

// ParseFilter decodes and validates a raw filter document. Type errors in the
// raw JSON are reported per field rather than as a decode failure.
func (e *Engine) ParseFilter(raw []byte) (Filter, error) {
	var f Filter
	if len(raw) == 0 {
		return f, nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return f, apperrors.NewValidationError("Malformed search filter",
			apperrors.FieldError{Field: "body", Message: "must be a JSON object"})
	}
	decodeErr := json.Unmarshal(raw, &f)
	if err := e.check(doc, f); err != nil {
		return Filter{}, err
	}
	if decodeErr != nil {
		return Filter{}, apperrors.NewValidationError("Malformed search filter",
			apperrors.FieldError{Field: "body", Message: decodeErr.Error()})
	}
	return f, nil
}

// Validate checks a programmatically built filter.
func (e *Engine) Validate(f Filter) error {
	return e.check(f, f)
}

// check validates doc against the schema (skipped when nil) and f against
// the rules a schema cannot express.
func (e *Engine) check(doc interface{}, f Filter) error {
	var fields []apperrors.FieldError
	if doc != nil {
		result, err := validation.Validate(e.filterSchema(), doc)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		for _, ve := range result.Errors {
			fields = append(fields, apperrors.FieldError{Field: ve.Field, Message: ve.Message})
		}
	}
	if f.Radius != nil && f.Location == nil {
		fields = append(fields, apperrors.FieldError{Field: "radius", Message: "requires location"})
	}
	if f.MinRate != nil && f.MaxRate != nil && *f.MinRate > *f.MaxRate {
		fields = append(fields, apperrors.FieldError{Field: "minRate", Message: "must not exceed maxRate"})
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("Invalid search filter", fields...)
	}
	return nil
}
