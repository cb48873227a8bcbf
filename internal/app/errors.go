package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	ErrUnmarshal         = "invalid_request_body"
	ErrInvalidUpdates    = "invalid_updates"
	ErrNameRequired      = "name_required"
	ErrInvalidEmail      = "invalid_email"
	ErrEmailTaken        = "email_already_taken"
	ErrPasswordTooShort  = "password_too_short"
	ErrPasswordForbidden = "password_contains_password"
	ErrUnderage          = "underage"
	ErrDescriptionEmpty  = "description_required"
	ErrFileRequired      = "avatar_file_required"
	ErrFileTooLarge      = "file_too_large"
	ErrBadFileType       = "unsupported_file_type"
	ErrInvalidImage      = "invalid_image"

	ErrUnableToLogin = "unable_to_login"
	ErrUnauthorized  = "unauthorized"

	ErrNotFound       = "not_found"
	ErrTaskNotFound   = "task_not_found"
	ErrAvatarNotFound = "avatar_not_found"

	ErrCreateUser   = "internal_create_user_error"
	ErrUpdateUser   = "internal_update_user_error"
	ErrDeleteUser   = "internal_delete_user_error"
	ErrProcessLogin = "internal_login_error"
	ErrIssueToken   = "internal_issue_token_error"
	ErrRevokeToken  = "internal_revoke_token_error"
	ErrCreateTask   = "internal_create_task_error"
	ErrGetTask      = "internal_get_task_error"
	ErrListTasks    = "internal_list_tasks_error"
	ErrUpdateTask   = "internal_update_task_error"
	ErrDeleteTask   = "internal_delete_task_error"
	ErrStoreAvatar  = "internal_store_avatar_error"
	ErrLoadAvatar   = "internal_load_avatar_error"

	ErrServiceUnavailable = "service_unavailable"
)

// errorStatusMap keeps the emitted status set closed: 400, 401, 404, 500
// and 503, nothing else. Ownership mismatches use the same 404 as true
// absence and every auth failure uses the same 401 body.
var errorStatusMap = map[string]int{
	ErrUnmarshal:         http.StatusBadRequest,
	ErrInvalidUpdates:    http.StatusBadRequest,
	ErrNameRequired:      http.StatusBadRequest,
	ErrInvalidEmail:      http.StatusBadRequest,
	ErrEmailTaken:        http.StatusBadRequest,
	ErrPasswordTooShort:  http.StatusBadRequest,
	ErrPasswordForbidden: http.StatusBadRequest,
	ErrUnderage:          http.StatusBadRequest,
	ErrDescriptionEmpty:  http.StatusBadRequest,
	ErrFileRequired:      http.StatusBadRequest,
	ErrFileTooLarge:      http.StatusBadRequest,
	ErrBadFileType:       http.StatusBadRequest,
	ErrInvalidImage:      http.StatusBadRequest,

	ErrUnableToLogin: http.StatusUnauthorized,
	ErrUnauthorized:  http.StatusUnauthorized,

	ErrNotFound:       http.StatusNotFound,
	ErrTaskNotFound:   http.StatusNotFound,
	ErrAvatarNotFound: http.StatusNotFound,

	ErrCreateUser:   http.StatusInternalServerError,
	ErrUpdateUser:   http.StatusInternalServerError,
	ErrDeleteUser:   http.StatusInternalServerError,
	ErrProcessLogin: http.StatusInternalServerError,
	ErrIssueToken:   http.StatusInternalServerError,
	ErrRevokeToken:  http.StatusInternalServerError,
	ErrCreateTask:   http.StatusInternalServerError,
	ErrGetTask:      http.StatusInternalServerError,
	ErrListTasks:    http.StatusInternalServerError,
	ErrUpdateTask:   http.StatusInternalServerError,
	ErrDeleteTask:   http.StatusInternalServerError,
	ErrStoreAvatar:  http.StatusInternalServerError,
	ErrLoadAvatar:   http.StatusInternalServerError,

	ErrServiceUnavailable: http.StatusServiceUnavailable,
}

func statusForError(code string) int {
	if status, ok := errorStatusMap[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, code string, details map[string]string) {
	c.JSON(statusForError(code), ErrorResponse{Error: code, Details: details})
}
