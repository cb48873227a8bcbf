package app

import (
	"encoding/json"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/task-service/internal/sdk/models"
)

const (
	minPasswordLength = 7
	minAge            = 18
	defaultAge        = 18
)

// validateRegisterInput checks all field constraints for a new account.
// It returns the primary error code plus a field-level breakdown, or
// ("", nil) when the input is valid.
func validateRegisterInput(req RegisterRequest) (string, map[string]string) {
	validationErrors := make(map[string]string)

	if strings.TrimSpace(req.Name) == "" {
		validationErrors["name"] = ErrNameRequired
	}
	if code := validateEmail(req.Email); code != "" {
		validationErrors["email"] = code
	}
	if code := validatePassword(req.Password); code != "" {
		validationErrors["password"] = code
	}
	if req.Age != nil && *req.Age < minAge {
		validationErrors["age"] = ErrUnderage
	}

	if len(validationErrors) == 0 {
		return "", nil
	}
	return primaryError(validationErrors), validationErrors
}

func validateEmail(email string) string {
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return ErrInvalidEmail
	}
	return ""
}

// validatePassword enforces the password policy: at least 7 characters
// and never the literal word "password" anywhere in it. Length is
// measured in runes so multibyte passwords are not over-counted.
func validatePassword(password string) string {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return ErrPasswordForbidden
	}
	return ""
}

// normalizeEmail lower-cases and trims so lookups are case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// primaryError picks a stable top-level code out of field errors, in
// field order name, email, password, age.
func primaryError(details map[string]string) string {
	for _, field := range []string{"name", "email", "password", "age"} {
		if code, ok := details[field]; ok {
			return code
		}
	}
	return ErrUnmarshal
}

var allowedUserUpdates = map[string]bool{
	"name":     true,
	"email":    true,
	"password": true,
	"age":      true,
}

var allowedTaskUpdates = map[string]bool{
	"description": true,
	"completed":   true,
}

// decodeUpdateBody parses a PATCH body into raw fields, rejecting the
// whole request when it is empty or contains any key outside the
// whitelist. All-or-nothing: a single stray key fails the update before
// anything is validated or written.
func decodeUpdateBody(c *gin.Context, allowed map[string]bool) (map[string]json.RawMessage, string) {
	var fields map[string]json.RawMessage
	if err := c.ShouldBindJSON(&fields); err != nil {
		return nil, ErrUnmarshal
	}
	if len(fields) == 0 {
		return nil, ErrInvalidUpdates
	}
	for key := range fields {
		if !allowed[key] {
			return nil, ErrInvalidUpdates
		}
	}
	return fields, ""
}

// parseUserUpdate validates the whitelisted profile fields and builds the
// update. The password comes back as plaintext; the handler hashes it,
// and only when it is present, so unrelated updates never re-hash.
func parseUserUpdate(fields map[string]json.RawMessage) (models.UserUpdate, string, map[string]string) {
	var upd models.UserUpdate
	var plaintext string
	validationErrors := make(map[string]string)

	if raw, ok := fields["name"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return upd, ErrUnmarshal, nil
		}
		name = strings.TrimSpace(name)
		if name == "" {
			validationErrors["name"] = ErrNameRequired
		}
		upd.Name = &name
	}
	if raw, ok := fields["email"]; ok {
		var email string
		if err := json.Unmarshal(raw, &email); err != nil {
			return upd, ErrUnmarshal, nil
		}
		if code := validateEmail(email); code != "" {
			validationErrors["email"] = code
		}
		email = normalizeEmail(email)
		upd.Email = &email
	}
	if raw, ok := fields["password"]; ok {
		if err := json.Unmarshal(raw, &plaintext); err != nil {
			return upd, ErrUnmarshal, nil
		}
		if code := validatePassword(plaintext); code != "" {
			validationErrors["password"] = code
		}
		// handler hashes plaintext into upd.Password after validation
	}
	if raw, ok := fields["age"]; ok {
		var age int
		if err := json.Unmarshal(raw, &age); err != nil {
			return upd, ErrUnmarshal, nil
		}
		if age < minAge {
			validationErrors["age"] = ErrUnderage
		}
		upd.Age = &age
	}

	if len(validationErrors) > 0 {
		return upd, primaryError(validationErrors), validationErrors
	}
	upd.Password = []byte(plaintext) // still plaintext, hashed by caller
	return upd, "", nil
}

// parseTaskUpdate validates the whitelisted task fields.
func parseTaskUpdate(fields map[string]json.RawMessage) (models.TaskUpdate, string) {
	var upd models.TaskUpdate

	if raw, ok := fields["description"]; ok {
		var description string
		if err := json.Unmarshal(raw, &description); err != nil {
			return upd, ErrUnmarshal
		}
		description = strings.TrimSpace(description)
		if description == "" {
			return upd, ErrDescriptionEmpty
		}
		upd.Description = &description
	}
	if raw, ok := fields["completed"]; ok {
		var completed bool
		if err := json.Unmarshal(raw, &completed); err != nil {
			return upd, ErrUnmarshal
		}
		upd.Completed = &completed
	}

	return upd, ""
}

// parseListQuery reads the task listing parameters. The contract for
// limit and skip is explicit: an absent, non-numeric or non-positive
// value means unrestricted, it is never an error.
func parseListQuery(c *gin.Context) models.TaskFilter {
	var filter models.TaskFilter

	switch c.Query("completed") {
	case "true":
		t := true
		filter.Completed = &t
	case "false":
		f := false
		filter.Completed = &f
	}

	if sortBy := c.Query("sortBy"); sortBy != "" {
		field, direction, _ := strings.Cut(sortBy, ":")
		filter.SortBy = field
		filter.SortDesc = direction == "desc"
	}

	filter.Limit = parseNonNegative(c.Query("limit"))
	filter.Skip = parseNonNegative(c.Query("skip"))

	return filter
}

func parseNonNegative(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
