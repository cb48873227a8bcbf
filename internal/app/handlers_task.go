package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/task-service/internal/sdk/middleware"
	"github.com/taskhive/task-service/internal/sdk/models"
	"github.com/taskhive/task-service/internal/sdk/sqldb"
	"github.com/taskhive/task-service/internal/services/sentry"
)

func (a *App) HandleCreateTask(c *gin.Context) {
	user, err := middleware.GetUser(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, ErrUnmarshal, nil)
		return
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		writeError(c, ErrDescriptionEmpty, map[string]string{"description": ErrDescriptionEmpty})
		return
	}

	task, err := a.db.CreateTask(c.Request.Context(), models.NewTask{
		Description: description,
		Completed:   req.Completed,
		OwnerID:     user.ID, // owner always comes from the caller
	})
	if err != nil {
		a.toSentry(c, "create_task", "db", sentry.LevelError, err)
		writeError(c, ErrCreateTask, nil)
		return
	}

	c.JSON(http.StatusCreated, task)
}

func (a *App) HandleListTasks(c *gin.Context) {
	user, err := middleware.GetUser(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	filter := parseListQuery(c)

	tasks, err := a.db.ListTasks(c.Request.Context(), user.ID, filter)
	if err != nil {
		a.toSentry(c, "list_tasks", "db", sentry.LevelError, err)
		writeError(c, ErrListTasks, nil)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	c.JSON(http.StatusOK, tasks)
}

func (a *App) HandleGetTask(c *gin.Context) {
	user, err := middleware.GetUser(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	task, err := a.db.GetTask(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		// Someone else's task answers exactly like a missing one.
		if errors.Is(err, sqldb.ErrDBNotFound) {
			writeError(c, ErrTaskNotFound, nil)
			return
		}
		a.toSentry(c, "get_task", "db", sentry.LevelError, err)
		writeError(c, ErrGetTask, nil)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (a *App) HandleUpdateTask(c *gin.Context) {
	user, err := middleware.GetUser(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	fields, errCode := decodeUpdateBody(c, allowedTaskUpdates)
	if errCode != "" {
		writeError(c, errCode, nil)
		return
	}

	upd, errCode := parseTaskUpdate(fields)
	if errCode != "" {
		writeError(c, errCode, nil)
		return
	}

	task, err := a.db.UpdateTask(c.Request.Context(), user.ID, c.Param("id"), upd)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			writeError(c, ErrTaskNotFound, nil)
			return
		}
		a.toSentry(c, "update_task", "db", sentry.LevelError, err)
		writeError(c, ErrUpdateTask, nil)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (a *App) HandleDeleteTask(c *gin.Context) {
	user, err := middleware.GetUser(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	task, err := a.db.DeleteTask(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			writeError(c, ErrTaskNotFound, nil)
			return
		}
		a.toSentry(c, "delete_task", "db", sentry.LevelError, err)
		writeError(c, ErrDeleteTask, nil)
		return
	}

	c.JSON(http.StatusOK, task)
}
