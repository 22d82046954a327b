package routes

import (
	"brand-review-api/controllers"
	"brand-review-api/middleware"
	"brand-review-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Brand Review API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Brands and their commercial pipeline
			brands := protected.Group("/brands")
			{
				brands.GET("", controllers.GetBrands)
				brands.GET("/:id", controllers.GetBrand)
				brands.GET("/:id/deals", controllers.GetBrandDeals)
				brands.POST("", middleware.RequireRole(models.RoleBusinessDevelopment, models.RoleAdmin), controllers.CreateBrand)
			}

			deals := protected.Group("/deals")
			{
				deals.POST("", middleware.RequireRole(models.RoleBusinessDevelopment, models.RoleAdmin), controllers.CreateDeal)
				deals.PUT("/:id/stage", middleware.RequireRole(models.RoleBusinessDevelopment, models.RoleAdmin), controllers.UpdateDealStage)
			}

			// Medical standards review workflow
			reviews := protected.Group("/review-submissions")
			{
				reviews.GET("", controllers.ListReviewSubmissions)
				reviews.GET("/grade-preview", controllers.GradePreview)
				reviews.GET("/:id", controllers.GetReviewSubmission)
				reviews.GET("/:id/history", controllers.GetSubmissionHistory)
				reviews.GET("/:id/records", controllers.GetSubmissionRecords)

				reviews.POST("", middleware.RequireRole(models.RoleBusinessDevelopment, models.RoleAdmin), controllers.CreateReviewSubmission)
				reviews.POST("/:id/approve-bd", middleware.RequireRole(models.RoleBusinessDevelopment, models.RoleAdmin), controllers.ApproveBD)
				reviews.POST("/:id/scores", middleware.RequireRole(models.RoleMedicalReviewer, models.RoleAdmin), controllers.SubmitScores)
				reviews.POST("/:id/decision", middleware.RequireRole(models.RoleMedicalReviewer, models.RoleAdmin), controllers.RecordFinalDecision)
				reviews.POST("/:id/reopen", middleware.RequireRole(models.RoleMedicalReviewer, models.RoleAdmin), controllers.ReopenSubmission)
			}

			// Review queue dashboard
			queue := protected.Group("/review-queue")
			{
				queue.GET("", controllers.GetReviewQueue)
				queue.GET("/stats", controllers.GetReviewQueueStats)
			}

			// Notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetMyNotifications)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
			}
		}
	}
}
