package handlers

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskscope/internal/constants"
	"github.com/yukikurage/taskscope/internal/middleware"
	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/services"
	"gorm.io/gorm"
)

// Services bundles what the HTTP layer depends on.
type Services struct {
	Auth    *services.AuthService
	Account *services.AccountService
	Task    *services.TaskService
	OTP     *services.OTPService
	Token   *services.TokenService
}

// SetupRouter registers middleware and every API route on r.
func SetupRouter(r *gin.Engine, db *gorm.DB, store sessions.Store, svc Services) {
	r.Use(middleware.RequestID())
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	authHandler := NewAuthHandler(svc.Auth)
	otpHandler := NewOTPHandler(svc.OTP)
	tokenHandler := NewTokenHandler(svc.Auth, svc.Token)
	accountHandler := NewAccountHandler(svc.Account)
	taskHandler := NewTaskHandler(svc.Task)

	requireAuth := middleware.RequireAuth(svc.Auth, svc.Token)

	// Health check endpoint
	r.GET("/health", Health(db))

	api := r.Group("/api/v1")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
			auth.POST("/otp/request", otpHandler.Request)
			auth.POST("/otp/verify", otpHandler.Verify)
		}

		// Token routes (public)
		api.POST("/token", tokenHandler.Obtain)
		api.POST("/token/refresh", tokenHandler.Refresh)

		// Account routes. The user listing is scoped per role, so plain
		// users get an empty page; everything else is staff only.
		accounts := api.Group("/accounts")
		accounts.Use(requireAuth)
		{
			accounts.GET("/users", accountHandler.ListUsers)

			staff := accounts.Group("", middleware.RequireStaff())
			staff.POST("/users", middleware.RequireRole(models.RoleSuperAdmin), accountHandler.CreateUser)
			staff.PUT("/users/:id/manager", middleware.RequireRole(models.RoleSuperAdmin), middleware.RequireIDParam(), accountHandler.AssignManager)
			staff.GET("/admins", accountHandler.ListStaff)
			staff.POST("/admins", middleware.RequireRole(models.RoleSuperAdmin), accountHandler.CreateStaff)
		}
		api.GET("/dashboard", requireAuth, middleware.RequireStaff(), accountHandler.Dashboard)

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", middleware.RequireIDParam(), taskHandler.GetTask)
			tasks.PATCH("/:id", middleware.RequireIDParam(), taskHandler.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireIDParam(), taskHandler.DeleteTask)
			tasks.GET("/:id/report", middleware.RequireIDParam(), taskHandler.GetTaskReport)
		}
	}
}
