package validation

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gamedb-api/internal/models"
)

// MaxCoverBytes is the maximum accepted cover image size (2 MiB)
const MaxCoverBytes int64 = 2 << 20

var usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

// ValidationError represents a single field-level validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors collects every field error of one record
type Errors []ValidationError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether any error targets field
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// orNil returns nil for an empty collection so callers can return it directly
func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ValidateRating returns the rating to store. Absent means 0.
func ValidateRating(value *int) (int, error) {
	if value == nil {
		return 0, nil
	}
	if *value < models.MinRating || *value > models.MaxRating {
		return 0, Errors{{
			Field:   "user_rating",
			Message: fmt.Sprintf("rating must be between %d and %d", models.MinRating, models.MaxRating),
			Value:   *value,
		}}
	}
	return *value, nil
}

// ClampRating constrains v into the rating range
func ClampRating(v int) int {
	if v < models.MinRating {
		return models.MinRating
	}
	if v > models.MaxRating {
		return models.MaxRating
	}
	return v
}

// ValidateCoverSize rejects cover images larger than MaxCoverBytes
func ValidateCoverSize(size int64) error {
	if size > MaxCoverBytes {
		return Errors{{
			Field:   "cover",
			Message: fmt.Sprintf("cover image must not exceed %dMB", MaxCoverBytes>>20),
			Value:   size,
		}}
	}
	return nil
}

// ValidateCover checks the size and sniffed content type of an uploaded cover
func ValidateCover(upload *models.CoverUpload) error {
	if err := ValidateCoverSize(upload.Size); err != nil {
		return err
	}
	if ct := http.DetectContentType(upload.Data); !strings.HasPrefix(ct, "image/") {
		return Errors{{
			Field:   "cover",
			Message: "cover must be an image",
			Value:   ct,
		}}
	}
	return nil
}

// ValidateCommentText trims text and checks its length in characters
func ValidateCommentText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", Errors{{Field: "text", Message: "text is required"}}
	}
	if n := utf8.RuneCountInString(trimmed); n > models.MaxCommentLength {
		return "", Errors{{
			Field:   "text",
			Message: fmt.Sprintf("text exceeds maximum of %d characters (has %d)", models.MaxCommentLength, n),
		}}
	}
	return trimmed, nil
}

// ValidateGame checks a create/update payload and returns the values to persist
func ValidateGame(input *models.GameInput) (*models.GameFields, error) {
	var errs Errors

	title := strings.TrimSpace(input.Title)
	if title == "" {
		errs = append(errs, ValidationError{Field: "title", Message: "title is required"})
	} else if utf8.RuneCountInString(title) > models.MaxTitleLength {
		errs = append(errs, ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", models.MaxTitleLength),
		})
	}

	year := 0
	if input.ReleaseYear == nil {
		errs = append(errs, ValidationError{Field: "release_year", Message: "release_year is required"})
	} else if *input.ReleaseYear < 0 {
		errs = append(errs, ValidationError{Field: "release_year", Message: "release_year must not be negative", Value: *input.ReleaseYear})
	} else {
		year = *input.ReleaseYear
	}

	genre := strings.TrimSpace(input.Genre)
	if utf8.RuneCountInString(genre) > models.MaxGenreLength {
		errs = append(errs, ValidationError{
			Field:   "genre",
			Message: fmt.Sprintf("genre must be at most %d characters", models.MaxGenreLength),
		})
	}

	rating, err := ValidateRating(input.UserRating)
	if err != nil {
		errs = append(errs, err.(Errors)...)
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &models.GameFields{
		Title:       title,
		ReleaseYear: year,
		Genre:       genre,
		UserRating:  rating,
	}, nil
}

// ValidateCredentials checks a registration request
func ValidateCredentials(username, password, confirm string) error {
	var errs Errors

	if username == "" {
		errs = append(errs, ValidationError{Field: "username", Message: "username is required"})
	} else if utf8.RuneCountInString(username) > models.MaxUsernameLength {
		errs = append(errs, ValidationError{
			Field:   "username",
			Message: fmt.Sprintf("username must be at most %d characters", models.MaxUsernameLength),
		})
	} else if !usernameRegex.MatchString(username) {
		errs = append(errs, ValidationError{
			Field:   "username",
			Message: "username may contain only letters, digits and @/./+/-/_",
			Value:   username,
		})
	}

	if utf8.RuneCountInString(password) < models.MinPasswordLength {
		errs = append(errs, ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("password must be at least %d characters", models.MinPasswordLength),
		})
	}
	if password != confirm {
		errs = append(errs, ValidationError{Field: "password_confirm", Message: "passwords do not match"})
	}

	return errs.orNil()
}
