package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"dailymission/internal/models"
)

const (
	MaxNameLength  = 50
	MaxTitleLength = 100
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateName checks a profile display name
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ValidationError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", MaxNameLength)}
	}
	return nil
}

// ValidateMissionTitle checks the free-text title a user gives a mission
func ValidateMissionTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ValidationError{Field: "title", Message: "mission title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ValidationError{Field: "title", Message: fmt.Sprintf("mission title must be at most %d characters", MaxTitleLength)}
	}
	return nil
}

// ValidateCategory parses a category name
func ValidateCategory(category string) (models.Category, error) {
	c, err := models.ParseCategory(category)
	if err != nil {
		return "", ValidationError{Field: "category", Message: err.Error()}
	}
	return c, nil
}
