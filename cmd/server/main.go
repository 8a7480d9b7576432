package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/openpress/blog-api/internal/config"
	"github.com/openpress/blog-api/internal/database"
	"github.com/openpress/blog-api/internal/handler"
	"github.com/openpress/blog-api/internal/queue"
	"github.com/openpress/blog-api/internal/repository"
	"github.com/openpress/blog-api/internal/router"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	users := repository.NewUserRepo(db)
	posts := repository.NewPostRepo(db)
	categories := repository.NewCategoryRepo(db)
	tags := repository.NewTagRepo(db)

	h := router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users),
		Users:    handler.NewUserHandler(cfg, users, posts),
		Posts:    handler.NewPostHandler(posts),
		Taxonomy: handler.NewTaxonomyHandler(categories, tags),
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; response caching disabled")
	}

	// Background consumer that drains password-reset notifications.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, cfg, h, users, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
