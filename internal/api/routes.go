package api

import (
	"net/http"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/metrics"
	"gymdesk/platform/internal/realtime"
	"gymdesk/platform/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services groups everything the HTTP layer calls into.
type Services struct {
	Auth         service.AuthService
	Gym          service.GymService
	Plan         service.PlanService
	Membership   service.MembershipService
	Payment      service.PaymentService
	SaaS         service.SaaSService
	Accounting   service.AccountingService
	Store        service.StoreService
	Community    service.CommunityService
	Progress     service.ProgressService
	Notification service.NotificationService
}

// RouterOptions holds the settings routes depend on.
type RouterOptions struct {
	RequestsPerMinute int
	Streamer          *realtime.Streamer
	Log               *zap.SugaredLogger
}

func SetupRoutes(router *gin.Engine, svc Services, opts RouterOptions) {
	authHandler := NewAuthHandler(svc.Auth)
	gymHandler := NewGymHandler(svc.Gym)
	planHandler := NewPlanHandler(svc.Plan)
	membershipHandler := NewMembershipHandler(svc.Membership)
	billingHandler := NewBillingHandler(svc.Payment, svc.SaaS)
	accountingHandler := NewAccountingHandler(svc.Accounting)
	storeHandler := NewStoreHandler(svc.Store)
	communityHandler := NewCommunityHandler(svc.Community)
	progressHandler := NewProgressHandler(svc.Progress)
	notificationHandler := NewNotificationHandler(svc.Notification, opts.Streamer, opts.Log)

	adminOnly := RoleMiddleware(domain.RoleAdmin, domain.RoleSuperAdmin)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	// Outside /api/v1 so proxies can route upgrades separately
	router.GET("/ws/notifications", AuthMiddleware(svc.Auth), notificationHandler.Stream)

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/register-gym", gymHandler.RegisterGym)
			authGroup.POST("/login", authHandler.Login)
		}
		// Signup pages show the gym's branding before the member has an account
		apiV1.GET("/gyms/:code", gymHandler.GetPublic)
		apiV1.GET("/saas/tiers", billingHandler.ListTiers)
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(svc.Auth), RateLimitMiddleware(opts.RequestsPerMinute))
	{
		protected.GET("/me", authHandler.Me)
		protected.PUT("/me/profile", authHandler.UpdateProfile)

		// --- Gym ---
		protected.GET("/gym", gymHandler.GetGym)
		gymAdmin := protected.Group("/gym", adminOnly)
		{
			gymAdmin.PUT("/branding", gymHandler.UpdateBranding)
			gymAdmin.PUT("/payout-account", gymHandler.SetPayoutAccount)
			gymAdmin.GET("/members", gymHandler.ListMembers)
		}

		// --- Uploads (presigned PUT URLs) ---
		uploads := protected.Group("/uploads")
		{
			uploads.POST("/logo", adminOnly, gymHandler.RequestLogoUpload)
			uploads.POST("/products", adminOnly, storeHandler.RequestImageUpload)
			uploads.POST("/posts", communityHandler.RequestImageUpload)
			uploads.POST("/progress", progressHandler.RequestPhotoUpload)
		}

		// --- Workout and nutrition plans ---
		plans := protected.Group("/plans")
		{
			plans.POST("/workout", planHandler.GenerateWorkoutPlan)
			plans.POST("/nutrition", planHandler.GenerateNutritionPlan)
			plans.GET("", planHandler.ListPlans)
			plans.GET("/:planId", planHandler.GetPlan)
			plans.GET("/:planId/days", planHandler.GetSchedule)
			plans.POST("/:planId/deactivate", planHandler.DeactivatePlan)
		}
		protected.GET("/today", planHandler.GetToday)
		protected.POST("/days/:dayId/complete", planHandler.CompleteSession)
		protected.GET("/completions", planHandler.ListCompletions)

		// --- Memberships ---
		membershipPlans := protected.Group("/membership-plans")
		{
			membershipPlans.GET("", membershipHandler.ListPlans)
			membershipPlans.POST("", adminOnly, membershipHandler.CreatePlan)
			membershipPlans.PUT("/:planId", adminOnly, membershipHandler.UpdatePlan)
			membershipPlans.DELETE("/:planId", adminOnly, membershipHandler.DeletePlan)
			membershipPlans.POST("/:planId/purchase", membershipHandler.Purchase)
		}
		memberships := protected.Group("/memberships")
		{
			memberships.GET("", membershipHandler.List)
			memberships.POST("", adminOnly, membershipHandler.Enroll)
			memberships.POST("/:membershipId/renew", membershipHandler.Renew)
			memberships.POST("/:membershipId/cancel", membershipHandler.Cancel)
		}

		// --- Store ---
		store := protected.Group("/store/products")
		{
			store.GET("", storeHandler.ListProducts)
			store.POST("", adminOnly, storeHandler.CreateProduct)
			store.PUT("/:productId", adminOnly, storeHandler.UpdateProduct)
			store.DELETE("/:productId", adminOnly, storeHandler.DeleteProduct)
			store.POST("/:productId/purchase", storeHandler.Purchase)
		}

		// --- Billing ---
		protected.POST("/checkout/confirm", billingHandler.ConfirmCheckout)
		saas := protected.Group("/saas", adminOnly)
		{
			saas.GET("/quote", billingHandler.QuoteUpgrade)
			saas.POST("/upgrade", billingHandler.StartUpgrade)
		}
		accounting := protected.Group("/accounting", adminOnly)
		{
			accounting.GET("/revenue", accountingHandler.RevenueReport)
			accounting.GET("/dashboard", accountingHandler.Dashboard)
			accounting.GET("/payments", accountingHandler.ListPayments)
		}

		// --- Community ---
		posts := protected.Group("/posts")
		{
			posts.GET("", communityHandler.Feed)
			posts.POST("", communityHandler.CreatePost)
			posts.GET("/:postId", communityHandler.GetPost)
			posts.DELETE("/:postId", communityHandler.DeletePost)
			posts.POST("/:postId/comments", communityHandler.Comment)
			posts.POST("/:postId/like", communityHandler.Like)
			posts.DELETE("/:postId/like", communityHandler.Unlike)
			posts.POST("/:postId/report", communityHandler.Report)
			posts.PUT("/:postId/hidden", adminOnly, communityHandler.SetPostHidden)
		}
		moderation := protected.Group("/moderation", adminOnly)
		{
			moderation.GET("/reported", communityHandler.ListReported)
			moderation.PUT("/comments/:commentId/hidden", communityHandler.SetCommentHidden)
		}

		// --- Progress ---
		progress := protected.Group("/progress")
		{
			progress.GET("/biometrics", progressHandler.ListBiometrics)
			progress.POST("/biometrics", progressHandler.RecordBiometrics)
			progress.GET("/photos", progressHandler.ListPhotos)
			progress.POST("/photos", progressHandler.ConfirmPhoto)
		}

		// --- Notifications ---
		notifications := protected.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.POST("/read", notificationHandler.MarkAllRead)
			notifications.POST("/:notificationId/read", notificationHandler.MarkRead)
		}
	}
}
