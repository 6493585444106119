package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/atlastours/atlas-api/internal/apperror"
	"github.com/atlastours/atlas-api/internal/middleware"
	"github.com/atlastours/atlas-api/internal/models"
)

// Router builds the full HTTP surface: API routes under /api/v1, the
// Stripe webhook, and the server-rendered pages.
func (h *Handler) Router(rdb *redis.Client) *gin.Engine {
	if !h.Cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(apperror.Handler(h.Log, h.Cfg.Development()))
	r.NoRoute(apperror.NoRoute)

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	r.MaxMultipartMemory = 10 << 20
	r.Static("/img", "public/img")
	r.LoadHTMLGlob("web/templates/*.html")

	protect := middleware.Protect(h.Tokens, h.LoadActiveUser)
	optional := middleware.OptionalAuth(h.Tokens, h.LoadActiveUser)

	// Server-rendered pages.
	r.GET("/", optional, h.Overview)
	r.GET("/tour/:slug", optional, h.TourDetail)
	r.GET("/login", optional, h.LoginForm)
	r.GET("/me", protect, h.Account)
	r.GET("/my-tours", protect, h.MyTours)

	// The webhook authenticates by signature, not by session, and must
	// stay outside the rate limiter.
	r.POST("/webhook-checkout", h.StripeWebhook)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(h.Cfg.RateLimit, rdb, h.Log))

	users := api.Group("/users")
	{
		users.POST("/signup", h.Signup)
		users.POST("/login", h.Login)
		users.GET("/logout", h.Logout)
		users.POST("/forgotPassword", h.ForgotPassword)
		users.PATCH("/resetPassword/:token", h.ResetPassword)

		users.Use(protect)
		users.PATCH("/updateMyPassword", h.UpdatePassword)
		users.GET("/me", h.GetMe)
		users.PATCH("/updateMe", h.UpdateMe)
		users.DELETE("/deleteMe", h.DeleteMe)

		admin := users.Group("", middleware.RestrictTo(models.RoleAdmin))
		userRes := h.userResource()
		admin.GET("", userRes.List)
		admin.POST("", h.CreateUser)
		admin.GET("/:id", userRes.GetOne)
		admin.PATCH("/:id", userRes.Update)
		admin.DELETE("/:id", userRes.Delete)
	}

	tours := api.Group("/tours")
	{
		tourRes := h.tourResource()
		tours.GET("", tourRes.List)
		tours.GET("/top-5-cheap", h.AliasTopTours)
		tours.GET("/tour-stats", h.TourStats)
		tours.GET("/monthly-plan/:year", protect,
			middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide, models.RoleGuide), h.MonthlyPlan)
		tours.GET("/tours-within/:distance/center/:latlng/unit/:unit", h.ToursWithin)
		tours.GET("/distances/:latlng/unit/:unit", h.TourDistances)
		tours.GET("/:id", tourRes.GetOne)

		editors := tours.Group("", protect, middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide))
		editors.POST("", tourRes.Create)
		editors.PATCH("/:id", h.UpdateTour)
		editors.DELETE("/:id", tourRes.Delete)
	}

	reviewRes := h.reviewResource()
	reviews := api.Group("/reviews", protect)
	{
		reviews.GET("", reviewRes.List)
		reviews.POST("", middleware.RestrictTo(models.RoleUser), reviewRes.Create)
		reviews.GET("/:id", reviewRes.GetOne)
		reviews.PATCH("/:id", middleware.RestrictTo(models.RoleUser, models.RoleAdmin), reviewRes.Update)
		reviews.DELETE("/:id", middleware.RestrictTo(models.RoleUser, models.RoleAdmin), reviewRes.Delete)
	}

	// Reviews nested under a tour share the same resource, scoped by the
	// parent route identifier.
	nested := tours.Group("/:id/reviews", protect)
	{
		nested.GET("", h.withTourParam(reviewRes.List))
		nested.POST("", middleware.RestrictTo(models.RoleUser), h.withTourParam(reviewRes.Create))
	}

	bookings := api.Group("/bookings", protect)
	{
		bookingRes := h.bookingResource()
		bookings.GET("/checkout-session/:tourId", h.CheckoutSession)
		bookings.GET("/my-tours", h.MyBookedTours)

		staff := bookings.Group("", middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide))
		staff.GET("", bookingRes.List)
		staff.POST("", bookingRes.Create)
		staff.GET("/:id", bookingRes.GetOne)
		staff.PATCH("/:id", bookingRes.Update)
		staff.DELETE("/:id", bookingRes.Delete)
	}

	return r
}

// withTourParam renames the tour route parameter so the nested review
// routes can share the top-level resource scoping.
func (h *Handler) withTourParam(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Params = append(c.Params, gin.Param{Key: "tourId", Value: c.Param("id")})
		next(c)
	}
}
