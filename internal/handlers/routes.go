package handlers

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"charactermemory/internal/memory"
	"charactermemory/internal/middleware"
	"charactermemory/internal/mood"
	"charactermemory/internal/orchestrator"
	"charactermemory/internal/relationship"
	"charactermemory/internal/storage"
)

// RegisterRoutes builds the fiber app: middleware stack, Prometheus metrics,
// and the routes named in SPEC_FULL.md section 4.8.
func RegisterRoutes(orch *orchestrator.Orchestrator, memEngine *memory.Engine, relEngine *relationship.Engine, registry *storage.Registry, moodStore *mood.Store, authToken string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "charactermemory",
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	prom := fiberprometheus.New("charactermemory")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	healthHandler := NewHealthHandler(moodStore)
	chatHandler := NewChatHandler(orch)
	memoryHandler := NewMemoryHandler(memEngine, registry)
	relationshipHandler := NewRelationshipHandler(relEngine)

	app.Get("/health", healthHandler.Handle)

	auth := middleware.BearerAuth(authToken)

	app.Post("/chat", auth, chatHandler.Handle)

	characters := app.Group("/characters", auth)
	characters.Get("/:id/memory-summary/:userId", memoryHandler.Summary)
	characters.Get("/:id/memories/:userId", memoryHandler.List)
	characters.Post("/:id/memories/:userId", memoryHandler.Create)
	characters.Put("/:id/memories/:userId/:memId", memoryHandler.Update)
	characters.Delete("/:id/memories/:userId/:memId", memoryHandler.Delete)

	app.Get("/relationship/:userId/:characterId", auth, relationshipHandler.GetState)
	app.Get("/leaderboard", auth, relationshipHandler.Leaderboard)
	app.Get("/nft-rewards", auth, relationshipHandler.NFTRewards)
	app.Post("/set-wallet", auth, relationshipHandler.SetWallet)

	return app
}
