package app

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/task-service/internal/sdk/middleware"
	"github.com/taskhive/task-service/internal/sdk/sqldb"
	"github.com/taskhive/task-service/internal/services/avatar"
	"github.com/taskhive/task-service/internal/services/sentry"
)

// maxAvatarSize limits uploads to 1 MB, checked before the file is read.
const maxAvatarSize = 1 << 20

var allowedAvatarExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

func (a *App) HandleUploadAvatar(c *gin.Context) {
	user, err := middleware.GetUser(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		writeError(c, ErrFileRequired, nil)
		return
	}

	if fileHeader.Size > maxAvatarSize {
		writeError(c, ErrFileTooLarge, nil)
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedAvatarExtensions[ext] {
		writeError(c, ErrBadFileType, nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		a.toSentry(c, "upload_avatar", "multipart", sentry.LevelError, err)
		writeError(c, ErrStoreAvatar, nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAvatarSize))
	if err != nil {
		a.toSentry(c, "upload_avatar", "read", sentry.LevelError, err)
		writeError(c, ErrStoreAvatar, nil)
		return
	}

	if err := a.avatars.Save(c.Request.Context(), user.ID, data); err != nil {
		if errors.Is(err, avatar.ErrInvalidImage) {
			writeError(c, ErrInvalidImage, nil)
			return
		}
		a.toSentry(c, "upload_avatar", "storage", sentry.LevelError, err)
		writeError(c, ErrStoreAvatar, nil)
		return
	}

	c.Status(http.StatusOK)
}

// HandleGetAvatar is public: anyone holding a user id can fetch the
// avatar PNG.
func (a *App) HandleGetAvatar(c *gin.Context) {
	userID := c.Param("id")

	if _, err := a.db.GetUserByID(c.Request.Context(), userID); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			writeError(c, ErrAvatarNotFound, nil)
			return
		}
		a.toSentry(c, "get_avatar", "db", sentry.LevelError, err)
		writeError(c, ErrLoadAvatar, nil)
		return
	}

	data, err := a.avatars.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, avatar.ErrNotFound) {
			writeError(c, ErrAvatarNotFound, nil)
			return
		}
		a.toSentry(c, "get_avatar", "storage", sentry.LevelError, err)
		writeError(c, ErrLoadAvatar, nil)
		return
	}

	c.Data(http.StatusOK, "image/png", data)
}

func (a *App) HandleDeleteAvatar(c *gin.Context) {
	user, err := middleware.GetUser(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	if err := a.avatars.Delete(c.Request.Context(), user.ID); err != nil && !errors.Is(err, avatar.ErrNotFound) {
		a.toSentry(c, "delete_avatar", "storage", sentry.LevelError, err)
		writeError(c, ErrStoreAvatar, nil)
		return
	}

	c.Status(http.StatusOK)
}
