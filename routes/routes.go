package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"nimblevision/config"
	"nimblevision/controllers"
	"nimblevision/middleware"
	"nimblevision/utils"
)

// NewRouter builds the engine with the global middleware chain and all routes
func NewRouter(limiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
	}))

	origins := config.AllowedOrigins()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !(len(origins) == 1 && origins[0] == "*"),
	}))

	SetupRoutes(r, limiter)
	return r
}

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, limiter *middleware.RateLimiter) {
	utils.RegisterValidators()

	r.GET("/health", controllers.HealthCheck)
	r.GET("/metrics", middleware.MetricsHandler())

	r.NoRoute(func(c *gin.Context) {
		utils.Fail(c, http.StatusNotFound, "Route not found")
	})

	// Public routes (no authentication required)
	public := r.Group("/api")
	{
		auth := public.Group("/auth")
		if limiter != nil {
			auth.Use(limiter.Handler())
		}
		{
			auth.POST("/login", controllers.Login)
			auth.POST("/register", controllers.Register)
			auth.POST("/forgot-password", controllers.ForgotPassword)
			auth.POST("/reset-password", controllers.ResetPassword)
		}
	}

	// Protected routes (authentication required)
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/auth/me", controllers.Me)
		protected.POST("/auth/refresh", controllers.RefreshToken)
		protected.POST("/auth/change-password", controllers.ChangePassword)

		users := protected.Group("/users")
		users.Use(middleware.PrimaryUserAuthMiddleware())
		{
			users.GET("", controllers.GetUsers)
			users.POST("", controllers.CreateUser)
			users.GET("/:id", controllers.GetUserByID)
			users.PATCH("/:id/status", controllers.UpdateUserStatus)
			users.DELETE("/:id", controllers.DeleteUser)

			users.POST("/:id/devices", controllers.AddDevice)
			users.GET("/:id/devices", controllers.GetUserDevices)
			users.PUT("/:id/devices/bulk", controllers.BulkUpdateDevices)
			users.PATCH("/:id/devices/:deviceId", controllers.UpdateDevice)
			users.DELETE("/:id/devices/:deviceId", controllers.DeleteDevice)
		}

		plans := protected.Group("/plans")
		{
			plans.GET("", controllers.GetPlans)
			plans.GET("/profile/:profile", controllers.GetPlansByProfile)
			plans.GET("/:id", controllers.GetPlanByID)

			admin := plans.Group("")
			admin.Use(middleware.AdminAuthMiddleware())
			admin.POST("", controllers.CreatePlan)
			admin.PATCH("/:id", controllers.UpdatePlan)
			admin.DELETE("/:id", controllers.DeletePlan)
		}

		cities := protected.Group("/cities")
		cities.Use(middleware.AdminAuthMiddleware())
		{
			cities.GET("", controllers.GetCities)
			cities.GET("/state/:state", controllers.GetCitiesByState)
			cities.GET("/:id", controllers.GetCityByID)
			cities.POST("", controllers.CreateCity)
			cities.PATCH("/:id", controllers.UpdateCity)
			cities.DELETE("/:id", controllers.DeleteCity)
		}

		subscriptions := protected.Group("/subscriptions")
		{
			subscriptions.GET("", controllers.GetSubscriptions)
			subscriptions.POST("", controllers.CreateSubscription)
			subscriptions.GET("/device/:deviceId", controllers.GetSubscriptionsByDevice)
			subscriptions.GET("/:id", controllers.GetSubscriptionByID)
			subscriptions.PATCH("/:id/status", controllers.UpdateSubscriptionStatus)
			subscriptions.POST("/:id/payment-order", controllers.CreatePaymentOrder)
			subscriptions.POST("/:id/verify-payment", controllers.VerifyPayment)
		}

		tanks := protected.Group("/tanks")
		{
			tanks.GET("", controllers.GetTanks)
			tanks.POST("", controllers.CreateTank)
			tanks.GET("/device/:deviceId", controllers.GetTankByDevice)
			tanks.GET("/:id", controllers.GetTankByID)
			tanks.PATCH("/:id", controllers.UpdateTank)
			tanks.DELETE("/:id", controllers.DeleteTank)
			tanks.POST("/:id/sync", controllers.SyncTank)
		}

		complaints := protected.Group("/complaints")
		{
			complaints.GET("", controllers.GetComplaints)
			complaints.POST("", controllers.CreateComplaint)
			complaints.GET("/status/:status", middleware.AdminAuthMiddleware(), controllers.GetComplaintsByStatus)
			complaints.GET("/:id", controllers.GetComplaintByID)
			complaints.PATCH("/:id", controllers.UpdateComplaint)
			complaints.DELETE("/:id", controllers.DeleteComplaint)
		}

		engineers := protected.Group("/service-engineers")
		{
			engineers.GET("", controllers.GetServiceEngineers)
			engineers.POST("", controllers.CreateServiceEngineer)
			engineers.GET("/pincode/:pincode", controllers.GetServiceEngineersByPincode)
			engineers.GET("/:id", controllers.GetServiceEngineerByID)
			engineers.PATCH("/:id", controllers.UpdateServiceEngineer)
			engineers.DELETE("/:id", controllers.DeleteServiceEngineer)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			admin.GET("/dashboard", controllers.AdminDashboard)
			admin.GET("/audit-logs", controllers.GetAuditLogs)
		}
	}
}
