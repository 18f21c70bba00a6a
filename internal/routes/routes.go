package routes

import (
	"github.com/alirzan/SessionBookBack/internal/config"
	"github.com/alirzan/SessionBookBack/internal/handlers"
	"github.com/alirzan/SessionBookBack/internal/middleware"
	"github.com/alirzan/SessionBookBack/internal/repository"
	"github.com/alirzan/SessionBookBack/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	currencyRepo := repository.NewCurrencyRepository(db)
	packageRepo := repository.NewPackageRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	userPackageRepo := repository.NewUserPackageRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	currencyService := services.NewCurrencyService(db, currencyRepo)
	catalogService := services.NewCatalogService(db, packageRepo, priceRepo, currencyRepo)
	scheduleService := services.NewScheduleService(db, templateRepo, slotRepo, packageRepo)
	userPackageService := services.NewUserPackageService(db, userPackageRepo, packageRepo, priceRepo, bookingRepo)
	bookingService := services.NewBookingService(
		db,
		bookingRepo,
		slotRepo,
		userPackageRepo,
		packageRepo,
		priceRepo,
		cfg.BookingLockTimeout,
	)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	currencyHandler := handlers.NewCurrencyHandler(currencyService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService)
	userPackageHandler := handlers.NewUserPackageHandler(userPackageService)
	bookingHandler := handlers.NewBookingHandler(bookingService)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))
	admin := middleware.AdminOnly()

	currencies := authProtected.Group("/currencies")
	currencies.Get("", currencyHandler.List)
	currencies.Put("", admin, currencyHandler.Upsert)

	packages := authProtected.Group("/packages")
	packages.Get("", catalogHandler.ListPackages)
	packages.Post("", admin, catalogHandler.CreatePackage)
	packages.Put("/:id", admin, catalogHandler.UpdatePackage)
	packages.Delete("/:id", admin, catalogHandler.DeletePackage)

	authProtected.Get("/durations", catalogHandler.ListDurations)

	prices := authProtected.Group("/prices")
	prices.Get("", catalogHandler.ListPrices)
	prices.Post("", admin, catalogHandler.SetPrice)

	templates := authProtected.Group("/schedule/templates")
	templates.Get("", scheduleHandler.ListTemplates)
	templates.Post("", admin, scheduleHandler.CreateTemplate)
	templates.Put("/:id", admin, scheduleHandler.UpdateTemplate)
	templates.Delete("/:id", admin, scheduleHandler.DeleteTemplate)

	schedule := authProtected.Group("/schedule")
	schedule.Post("/generate", admin, scheduleHandler.GenerateSlots)
	schedule.Get("/slots", scheduleHandler.ListSlots)

	userPackages := authProtected.Group("/user-packages")
	userPackages.Get("", userPackageHandler.List)
	userPackages.Post("", userPackageHandler.Purchase)
	userPackages.Get("/:id", userPackageHandler.Get)
	userPackages.Post("/:id/deactivate", userPackageHandler.Deactivate)

	bookings := authProtected.Group("/bookings")
	bookings.Get("", bookingHandler.List)
	bookings.Post("", bookingHandler.Create)
	bookings.Get("/:id", bookingHandler.Get)
	bookings.Put("/:id", bookingHandler.Update)
	bookings.Delete("/:id", admin, bookingHandler.Delete)
}
