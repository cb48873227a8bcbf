package app

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/task-service/internal/sdk/middleware"
	"github.com/taskhive/task-service/internal/sdk/models"
	"github.com/taskhive/task-service/internal/sdk/sqldb"
	"github.com/taskhive/task-service/internal/services/avatar"
	"github.com/taskhive/task-service/internal/services/sentry"
)

func (a *App) HandleRegister(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, ErrUnmarshal, nil)
		return
	}

	errCode, validationErrors := validateRegisterInput(req)
	if errCode != "" {
		writeError(c, errCode, validationErrors)
		return
	}

	hashedPassword, err := a.hash.HashPassword(req.Password)
	if err != nil {
		a.toSentry(c, "register", "bcrypt", sentry.LevelError, err)
		writeError(c, ErrCreateUser, nil)
		return
	}

	age := defaultAge
	if req.Age != nil {
		age = *req.Age
	}

	newUser := models.NewUser{
		Name:     strings.TrimSpace(req.Name),
		Email:    normalizeEmail(req.Email),
		Password: hashedPassword,
		Age:      age,
	}

	user, err := a.db.CreateUser(c.Request.Context(), newUser)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBDuplicatedEntry) {
			writeError(c, ErrEmailTaken, map[string]string{"email": ErrEmailTaken})
			return
		}
		a.toSentry(c, "register", "db", sentry.LevelError, err)
		writeError(c, ErrCreateUser, nil)
		return
	}

	token, err := a.issueToken(c, "register", user.ID)
	if err != nil {
		writeError(c, ErrIssueToken, nil)
		return
	}

	go func() {
		if err := a.email.SendWelcome(user.Email, user.Name); err != nil {
			slog.Warn("welcome email failed", "error", err)
		}
	}()

	c.JSON(http.StatusCreated, AuthResponse{User: toUserResponse(user), Token: token})
}

func (a *App) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, ErrUnmarshal, nil)
		return
	}

	user, err := a.db.GetUserByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			writeError(c, ErrUnableToLogin, nil)
			return
		}
		a.toSentry(c, "login", "db", sentry.LevelError, err)
		writeError(c, ErrProcessLogin, nil)
		return
	}

	// Unknown email and wrong password answer identically so callers
	// cannot enumerate accounts.
	if !a.hash.CheckPassword(req.Password, user.Password) {
		writeError(c, ErrUnableToLogin, nil)
		return
	}

	token, err := a.issueToken(c, "login", user.ID)
	if err != nil {
		writeError(c, ErrIssueToken, nil)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{User: toUserResponse(user), Token: token})
}

// issueToken signs a session token and appends it to the user's session
// list, enabling multi-device sessions.
func (a *App) issueToken(c *gin.Context, handler, userID string) (string, error) {
	token, err := a.jwt.Sign(c.Request.Context(), userID)
	if err != nil {
		a.toSentry(c, handler, "jwt", sentry.LevelError, err)
		return "", err
	}
	if err := a.db.AddSessionToken(c.Request.Context(), userID, token); err != nil {
		a.toSentry(c, handler, "db_token", sentry.LevelError, err)
		return "", err
	}
	return token, nil
}

func (a *App) HandleMe(c *gin.Context) {
	user, err := middleware.GetUser(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

func (a *App) HandleUpdateMe(c *gin.Context) {
	user, err := middleware.GetUser(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	fields, errCode := decodeUpdateBody(c, allowedUserUpdates)
	if errCode != "" {
		writeError(c, errCode, nil)
		return
	}

	upd, errCode, validationErrors := parseUserUpdate(fields)
	if errCode != "" {
		writeError(c, errCode, validationErrors)
		return
	}

	// Re-hash only when the stored password value actually changes.
	if _, ok := fields["password"]; ok {
		hashed, err := a.hash.HashPassword(string(upd.Password))
		if err != nil {
			a.toSentry(c, "update_user", "bcrypt", sentry.LevelError, err)
			writeError(c, ErrUpdateUser, nil)
			return
		}
		upd.Password = hashed
	} else {
		upd.Password = nil
	}

	updated, err := a.db.UpdateUser(c.Request.Context(), user.ID, upd)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBDuplicatedEntry) {
			writeError(c, ErrEmailTaken, map[string]string{"email": ErrEmailTaken})
			return
		}
		a.toSentry(c, "update_user", "db", sentry.LevelError, err)
		writeError(c, ErrUpdateUser, nil)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(updated))
}

func (a *App) HandleDeleteMe(c *gin.Context) {
	user, err := middleware.GetUser(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	if err := a.db.DeleteUser(c.Request.Context(), user.ID); err != nil {
		a.toSentry(c, "delete_user", "db", sentry.LevelError, err)
		writeError(c, ErrDeleteUser, nil)
		return
	}

	// The avatar object lives outside the transaction; best-effort.
	if err := a.avatars.Delete(c.Request.Context(), user.ID); err != nil && !errors.Is(err, avatar.ErrNotFound) {
		a.toSentry(c, "delete_user", "avatar", sentry.LevelWarning, err)
	}

	go func() {
		if err := a.email.SendGoodbye(user.Email, user.Name); err != nil {
			slog.Warn("goodbye email failed", "error", err)
		}
	}()

	c.JSON(http.StatusOK, toUserResponse(user))
}

func (a *App) HandleLogout(c *gin.Context) {
	user, err := middleware.GetUser(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}
	token, err := middleware.GetToken(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	// Revokes the current session only; other devices stay logged in.
	if err := a.db.DeleteSessionToken(c.Request.Context(), user.ID, token); err != nil {
		a.toSentry(c, "logout", "db", sentry.LevelError, err)
		writeError(c, ErrRevokeToken, nil)
		return
	}

	c.Status(http.StatusOK)
}

func (a *App) HandleLogoutAll(c *gin.Context) {
	user, err := middleware.GetUser(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	if err := a.db.DeleteSessionTokens(c.Request.Context(), user.ID); err != nil {
		a.toSentry(c, "logout_all", "db", sentry.LevelError, err)
		writeError(c, ErrRevokeToken, nil)
		return
	}

	c.Status(http.StatusOK)
}
