package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/njbartlett/pfnext-backend/internal/config"
	"github.com/njbartlett/pfnext-backend/internal/handlers"
	"github.com/njbartlett/pfnext-backend/internal/middleware"
	"github.com/njbartlett/pfnext-backend/internal/notifier"
	"github.com/njbartlett/pfnext-backend/internal/policy"
	"github.com/njbartlett/pfnext-backend/internal/repository"
	"github.com/njbartlett/pfnext-backend/internal/services"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	personRepo := repository.NewPersonRepository(db)
	tempPasswordRepo := repository.NewTempPasswordRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	sessionTypeRepo := repository.NewSessionTypeRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	backupRepo := repository.NewBackupRepository(db)

	var mailer services.Notifier
	if cfg.SMTPHost != "" {
		mailer = notifier.NewSMTPNotifier(
			cfg.SMTPHost, cfg.SMTPPort,
			cfg.SMTPUsername, cfg.SMTPPassword,
			cfg.MailFromName, cfg.MailFromAddress,
		)
	} else {
		mailer = notifier.LogNotifier{}
	}

	recoveryService := services.NewRecoveryService(
		personRepo,
		personRepo,
		tempPasswordRepo,
		mailer,
		time.Duration(cfg.TempPasswordTTLMins)*time.Minute,
		time.Duration(cfg.TempPasswordResendMins)*time.Minute,
	)
	authService := services.NewAuthService(personRepo, recoveryService)
	catalogService := services.NewCatalogService(sessionRepo, sessionTypeRepo, locationRepo, personRepo)
	bookingService := services.NewBookingService(
		db,
		sessionRepo,
		bookingRepo,
		time.Duration(cfg.CancelCutoffMins)*time.Minute,
	)

	tokenTTL := time.Duration(cfg.AccessTokenTTLMins) * time.Minute
	authHandler := handlers.NewAuthHandler(authService, recoveryService, cfg.JWTSecret, tokenTTL, cfg.ResetURL)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	personHandler := handlers.NewPersonHandler(authService)
	backupHandler := handlers.NewBackupHandler(backupRepo)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/change_password", authHandler.ChangePassword)
	auth.Post("/request_pwd_reset", authHandler.RequestPasswordReset)
	auth.Post("/reset_pwd", authHandler.ResetPassword)
	auth.Get("/validate", middleware.AuthRequired(cfg.JWTSecret), authHandler.Validate)

	protected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	sessions := protected.Group("/sessions")
	sessions.Get("", catalogHandler.ListSessions)
	sessions.Get("/by_date", catalogHandler.ListSessionsByDate)
	sessions.Post("", middleware.RoleRequired(policy.ActionManageSessions), catalogHandler.CreateSession)
	sessions.Put("/:id", middleware.RoleRequired(policy.ActionManageSessions), catalogHandler.UpdateSession)
	sessions.Delete("/:id", middleware.RoleRequired(policy.ActionManageSessions), catalogHandler.DeleteSession)

	sessionTypes := protected.Group("/session_types")
	sessionTypes.Get("", catalogHandler.ListSessionTypes)
	sessionTypes.Post("", middleware.RoleRequired(policy.ActionManageSessions), catalogHandler.CreateSessionType)
	sessionTypes.Put("/:id", middleware.RoleRequired(policy.ActionManageSessions), catalogHandler.UpdateSessionType)
	sessionTypes.Delete("/:id", middleware.RoleRequired(policy.ActionManageSessions), catalogHandler.DeleteSessionType)

	locations := protected.Group("/locations")
	locations.Get("", catalogHandler.ListLocations)
	locations.Post("", middleware.RoleRequired(policy.ActionManageSessions), catalogHandler.CreateLocation)
	locations.Put("/:id", middleware.RoleRequired(policy.ActionManageSessions), catalogHandler.UpdateLocation)
	locations.Delete("/:id", middleware.RoleRequired(policy.ActionManageSessions), catalogHandler.DeleteLocation)

	bookings := protected.Group("/bookings")
	bookings.Get("", bookingHandler.ListBookings)
	bookings.Post("", bookingHandler.CreateBooking)
	bookings.Delete("", bookingHandler.CancelBooking)
	bookings.Put("/attended", middleware.RoleRequired(policy.ActionMarkAttendance), bookingHandler.MarkAttended)

	protected.Get("/stats/attendance", middleware.RoleRequired(policy.ActionViewStats), bookingHandler.AttendanceStats)
	protected.Get("/people", middleware.RoleRequired(policy.ActionManagePeople), personHandler.ListPersons)
	protected.Get("/people/:id", middleware.RoleRequired(policy.ActionManagePeople), personHandler.GetPerson)
	protected.Get("/backup", middleware.RoleRequired(policy.ActionExportData), backupHandler.Export)
}
