package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/task-service/internal/sdk/middleware"
)

// RegisterRoutes wires the full HTTP surface.
func RegisterRoutes(a *App) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: ErrNotFound})
	})

	authenticate := middleware.Authenticate(a.jwt, a.db)

	health := router.Group("/health")
	{
		health.GET("/liveness", a.HandleLiveness)
		health.GET("/readiness", a.HandleReadiness)
	}

	user := router.Group("/user")
	{
		user.POST("", a.HandleRegister)
		user.POST("/login", a.HandleLogin)
		user.GET("/:id/avatar", a.HandleGetAvatar)
	}

	me := router.Group("/user", authenticate)
	{
		me.GET("/me", a.HandleMe)
		me.PATCH("/me", a.HandleUpdateMe)
		me.DELETE("/me", a.HandleDeleteMe)
		me.POST("/logout", a.HandleLogout)
		me.POST("/logoutAll", a.HandleLogoutAll)
		me.POST("/me/avatar", a.HandleUploadAvatar)
		me.DELETE("/me/avatar", a.HandleDeleteAvatar)
	}

	task := router.Group("/task", authenticate)
	{
		task.POST("", a.HandleCreateTask)
		task.GET("", a.HandleListTasks)
		task.GET("/:id", a.HandleGetTask)
		task.PATCH("/:id", a.HandleUpdateTask)
		task.DELETE("/:id", a.HandleDeleteTask)
	}

	return router
}
