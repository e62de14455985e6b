package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/AlexZinkM/xelis-wallet/docs"
	"github.com/AlexZinkM/xelis-wallet/internal/handler"
	"github.com/AlexZinkM/xelis-wallet/internal/middleware"
)

// SetupRouter sets up router with handlers
func SetupRouter(walletHandler *handler.WalletHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	// Swagger UI
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Wallet endpoints
	r.Route("/wallet", func(r chi.Router) {
		r.Get("/address", walletHandler.GetAddress)
		r.Get("/balance", walletHandler.GetBalance)
		r.Get("/history", walletHandler.History)
		r.Get("/status", walletHandler.Status)

		r.Group(func(r chi.Router) {
			// Only allow requests with Content-Type: application/json
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Post("/transfer", walletHandler.Transfer)
			r.Post("/password", walletHandler.SetPassword)
		})
	})

	return r
}
