package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/blog-cms-api/internal/models"
	"github.com/google/uuid"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	slugRegex  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// MaxTitleLength bounds post and page titles
const MaxTitleLength = 200

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Errors is a list of field errors usable as an error value
type Errors []ValidationError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, v := range e {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return strings.Join(parts, "; ")
}

// Err returns nil when there are no errors
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Validator provides validation methods
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePost validates a post create or update payload
func (v *Validator) ValidatePost(in *models.PostInput) Errors {
	var errors Errors

	title := strings.TrimSpace(in.Title)
	if title == "" {
		errors = append(errors, ValidationError{Field: "title", Message: "title is required"})
	} else if len([]rune(title)) > MaxTitleLength {
		errors = append(errors, ValidationError{Field: "title", Message: fmt.Sprintf("title exceeds %d characters", MaxTitleLength)})
	}

	errors = append(errors, v.validateSlug(in.Slug)...)

	if in.Status != "" && !models.ValidPostStatuses[in.Status] {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: "invalid status, must be one of: draft, published, private",
			Value:   in.Status,
		})
	}

	errors = append(errors, validateIDs("category_ids", in.CategoryIDs)...)
	errors = append(errors, validateIDs("tag_ids", in.TagIDs)...)

	return errors
}

// ValidatePage validates a page create or update payload
func (v *Validator) ValidatePage(in *models.PageInput) Errors {
	var errors Errors

	title := strings.TrimSpace(in.Title)
	if title == "" {
		errors = append(errors, ValidationError{Field: "title", Message: "title is required"})
	} else if len([]rune(title)) > MaxTitleLength {
		errors = append(errors, ValidationError{Field: "title", Message: fmt.Sprintf("title exceeds %d characters", MaxTitleLength)})
	}

	errors = append(errors, v.validateSlug(in.Slug)...)

	if in.CategoryID != nil && !IsValidUUID(*in.CategoryID) {
		errors = append(errors, ValidationError{Field: "category_id", Message: "invalid UUID format", Value: *in.CategoryID})
	}
	if in.TOCOrder < 0 {
		errors = append(errors, ValidationError{Field: "toc_order", Message: "toc_order must not be negative", Value: in.TOCOrder})
	}

	return errors
}

// ValidateTaxonomy validates a category, tag or page category payload
func (v *Validator) ValidateTaxonomy(in *models.TaxonomyInput) Errors {
	var errors Errors
	if strings.TrimSpace(in.Name) == "" {
		errors = append(errors, ValidationError{Field: "name", Message: "name is required"})
	}
	errors = append(errors, v.validateSlug(in.Slug)...)
	return errors
}

// ValidateSubscribe validates a subscription request. At least one topic is required.
func (v *Validator) ValidateSubscribe(in *models.SubscribeInput) Errors {
	var errors Errors

	if err := v.ValidateEmail(in.Email); err != nil {
		errors = append(errors, *err)
	}
	if !in.Tech && !in.Life && !in.Spirit {
		errors = append(errors, ValidationError{Field: "topics", Message: "choose at least one of: tech, life, spirit"})
	}

	return errors
}

// ValidateEmail checks presence and format of an email address
func (v *Validator) ValidateEmail(email string) *ValidationError {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return &ValidationError{Field: "email", Message: "invalid email format", Value: email}
	}
	return nil
}

func (v *Validator) validateSlug(s string) Errors {
	if s == "" {
		return nil
	}
	if !slugRegex.MatchString(s) {
		return Errors{{Field: "slug", Message: "slug must be kebab-case (lowercase letters, numbers, hyphens)", Value: s}}
	}
	return nil
}

func validateIDs(field string, ids []string) Errors {
	var errors Errors
	for _, id := range ids {
		if !IsValidUUID(id) {
			errors = append(errors, ValidationError{Field: field, Message: "invalid UUID format", Value: id})
		}
	}
	return errors
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
