package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/openpress/blog-api/internal/config"
	"github.com/openpress/blog-api/internal/handler"
	"github.com/openpress/blog-api/internal/middleware"
	"github.com/openpress/blog-api/internal/model"
	"github.com/openpress/blog-api/internal/repository"
)

// Handlers groups the handler set wired by main.
type Handlers struct {
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Posts    *handler.PostHandler
	Taxonomy *handler.TaxonomyHandler
}

// Register wires every route. Public reads carry the Redis response
// cache; protected routes run the Auth middleware (bearer token, session
// purpose, active principal) and role-gated routes add RequireRole on
// top. rdb may be nil, in which case caching is disabled.
func Register(e *echo.Echo, cfg config.Config, h Handlers, users *repository.UserRepo, rdb *redis.Client) {
	e.GET("/health", handler.Health)

	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)
	auth := middleware.Auth(cfg.JWTSecret, users)
	staff := middleware.RequireRole(model.RoleModerator, model.RoleAdmin)
	admin := middleware.RequireRole(model.RoleAdmin)

	// Identity endpoints. Everything except /me is reachable without a
	// token; logout is a stateless acknowledgment.
	a := e.Group("/api/auth")
	a.POST("/register", h.Auth.Register)
	a.POST("/login", h.Auth.Login)
	a.POST("/logout", h.Auth.Logout)
	a.POST("/refresh-token", h.Auth.Refresh)
	a.POST("/forgot-password", h.Auth.ForgotPassword)
	a.POST("/reset-password", h.Auth.ResetPassword)
	a.GET("/me", h.Auth.Me, auth)

	// Users: listing and detail are public, management is protected.
	u := e.Group("/api/users")
	u.GET("", h.Users.List, cache)
	u.GET("/:id", h.Users.Get)
	u.POST("", h.Users.Create, auth, admin)
	u.PUT("/:id", h.Users.Update, auth)
	u.DELETE("/:id", h.Users.Delete, auth, admin)

	// Posts: public reads, author-only writes (ownership enforced in the
	// repository transaction).
	p := e.Group("/api/posts")
	p.GET("", h.Posts.List, cache)
	p.GET("/:id", h.Posts.Get)
	p.POST("", h.Posts.Create, auth)
	p.PUT("/:id", h.Posts.Update, auth)
	p.DELETE("/:id", h.Posts.Delete, auth)

	// Categories and tags: public listings, staff-only mutations.
	cg := e.Group("/api/categories")
	cg.GET("", h.Taxonomy.ListCategories, cache)
	cg.POST("", h.Taxonomy.CreateCategory, auth, staff)
	cg.PUT("/:id", h.Taxonomy.UpdateCategory, auth, staff)
	cg.DELETE("/:id", h.Taxonomy.DeleteCategory, auth, staff)

	tg := e.Group("/api/tags")
	tg.GET("", h.Taxonomy.ListTags, cache)
	tg.POST("", h.Taxonomy.CreateTag, auth, staff)
	tg.PUT("/:id", h.Taxonomy.UpdateTag, auth, staff)
	tg.DELETE("/:id", h.Taxonomy.DeleteTag, auth, staff)
}
