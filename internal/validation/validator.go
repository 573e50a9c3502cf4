package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/LushakDataSystems/contact_svc/internal/model"
)

const (
	personNameValidationTag = "person_name"

	fieldNameName           = "name"
	fieldNameEmail          = "email"
	fieldNamePhone          = "phone"
	fieldNameSubject        = "subject"
	fieldNameMessage        = "message"
	fieldNameRecaptchaToken = "recaptchaToken"
)

var personNameExpression = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)

// violationMessages maps field/tag pairs to the message surfaced to the user.
var violationMessages = map[string]map[string]string{
	fieldNameName: {
		"required":              "Name is required",
		"min":                   "Name must be at least 2 characters",
		"max":                   "Name cannot exceed 100 characters",
		personNameValidationTag: "Name can only contain letters, spaces, hyphens and apostrophes",
	},
	fieldNameEmail: {
		"required": "Email is required",
		"email":    "Please enter a valid email address",
	},
	fieldNamePhone: {
		"min": "Phone number must be at least 9 characters if provided",
	},
	fieldNameSubject: {
		"required": "Subject is required",
		"min":      "Subject must be at least 3 characters",
		"max":      "Subject cannot exceed 150 characters",
	},
	fieldNameMessage: {
		"required": "Message is required",
		"min":      "Message must be at least 10 characters",
		"max":      "Message cannot exceed 2000 characters",
	},
	fieldNameRecaptchaToken: {
		"required": "reCAPTCHA token is required",
	},
}

// Violation names an offending field and a human-readable reason.
type Violation struct {
	Field  string
	Reason string
}

type contactFields struct {
	Name           string `validate:"required,min=2,max=100,person_name" field:"name"`
	Email          string `validate:"required,email" field:"email"`
	Phone          string `validate:"omitempty,min=9" field:"phone"`
	Subject        string `validate:"required,min=3,max=150" field:"subject"`
	Message        string `validate:"required,min=10,max=2000" field:"message"`
	RecaptchaToken string `validate:"required" field:"recaptchaToken"`
}

// ContactValidator enforces the structural constraints on submitted contact
// data. Validation is pure and synchronous.
type ContactValidator struct {
	validate *validator.Validate
}

// NewContactValidator constructs a ContactValidator with the custom rules
// registered.
func NewContactValidator() (*ContactValidator, error) {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(structField reflect.StructField) string {
		tagValue := structField.Tag.Get("field")
		if tagValue == "" {
			return structField.Name
		}
		return tagValue
	})
	if registerErr := validate.RegisterValidation(personNameValidationTag, func(fieldLevel validator.FieldLevel) bool {
		return personNameExpression.MatchString(fieldLevel.Field().String())
	}); registerErr != nil {
		return nil, fmt.Errorf("validation: register %s: %w", personNameValidationTag, registerErr)
	}
	return &ContactValidator{validate: validate}, nil
}

// Validate normalizes the candidate submission and returns it together with
// any field-level violations. An empty violation list means the normalized
// submission is accepted.
func (contactValidator *ContactValidator) Validate(submission model.ContactSubmission) (model.ContactSubmission, []Violation) {
	normalized := submission
	normalized.Name = strings.TrimSpace(submission.Name)
	normalized.Email = strings.TrimSpace(submission.Email)
	normalized.Phone = strings.TrimSpace(submission.Phone)
	normalized.Subject = strings.TrimSpace(submission.Subject)
	normalized.Message = strings.TrimSpace(submission.Message)
	normalized.RecaptchaToken = strings.TrimSpace(submission.RecaptchaToken)

	fields := contactFields{
		Name:           normalized.Name,
		Email:          normalized.Email,
		Phone:          normalized.Phone,
		Subject:        normalized.Subject,
		Message:        normalized.Message,
		RecaptchaToken: normalized.RecaptchaToken,
	}

	validateErr := contactValidator.validate.Struct(fields)
	if validateErr == nil {
		return normalized, nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(validateErr, &validationErrors) {
		return normalized, []Violation{{Field: "", Reason: "Submission could not be validated"}}
	}

	violations := make([]Violation, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		violations = append(violations, Violation{
			Field:  fieldError.Field(),
			Reason: violationMessage(fieldError.Field(), fieldError.Tag()),
		})
	}
	return normalized, violations
}

func violationMessage(fieldName string, tagName string) string {
	if messagesByTag, known := violationMessages[fieldName]; known {
		if message, found := messagesByTag[tagName]; found {
			return message
		}
	}
	return fmt.Sprintf("Field %s is invalid", fieldName)
}
