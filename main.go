package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"github.com/wealthjourney/backend/src/config"
	"github.com/wealthjourney/backend/src/database"
	"github.com/wealthjourney/backend/src/exchange"
	"github.com/wealthjourney/backend/src/handlers"
	"github.com/wealthjourney/backend/src/logger"
	"github.com/wealthjourney/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter *rate.Limiter

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(config.Cfg.AllowedOrigins))
	for _, origin := range config.Cfg.AllowedOrigins {
		allowed[origin] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("WealthJourney backend server starting...")

	limiter = rate.NewLimiter(rate.Limit(config.Cfg.RateLimitRPS), config.Cfg.RateLimitBurst)

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	rateFetcher := exchange.NewYahooRateFetcher(config.Cfg.RateFetchTimeout)
	rateAdapter := exchange.NewAdapter(rateFetcher, config.Cfg.RateFreshnessWindow)

	investmentService := services.NewInvestmentService()
	portfolioService := services.NewPortfolioService(investmentService, rateAdapter)
	priceService := services.NewMarketDataService(config.Cfg.MarketDataTimeout)

	walletHandler := handlers.NewWalletHandler()
	budgetHandler := handlers.NewBudgetHandler()
	investmentHandler := handlers.NewInvestmentHandler(investmentService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, rateAdapter, priceService)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(config.Cfg.PriceRefreshCron, func() {
		logger.L.Info("Running scheduled price refresh")
		if err := priceService.RefreshHeldPrices(context.Background()); err != nil {
			logger.L.Error("Scheduled price refresh failed", "error", err)
		}
	}); err != nil {
		logger.L.Error("Invalid price refresh schedule", "cron", config.Cfg.PriceRefreshCron, "error", err)
	} else {
		scheduler.Start()
		defer scheduler.Stop()
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "WealthJourney Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/wallets", walletHandler.ListWallets)
		r.Post("/wallets", walletHandler.CreateWallet)
		r.Get("/wallets/{id}", walletHandler.GetWallet)
		r.Put("/wallets/{id}", walletHandler.UpdateWallet)
		r.Delete("/wallets/{id}", walletHandler.DeleteWallet)

		r.Get("/budgets", budgetHandler.ListBudgets)
		r.Post("/budgets", budgetHandler.CreateBudget)
		r.Put("/budgets/{id}", budgetHandler.UpdateBudget)
		r.Delete("/budgets/{id}", budgetHandler.DeleteBudget)

		r.Get("/investments", investmentHandler.ListInvestments)
		r.Post("/investments", investmentHandler.CreateInvestment)
		r.Get("/investments/input-config", investmentHandler.GetInputConfig)
		r.Get("/investments/{id}", investmentHandler.GetInvestment)
		r.Put("/investments/{id}", investmentHandler.UpdateInvestment)
		r.Delete("/investments/{id}", investmentHandler.DeleteInvestment)
		r.Get("/investments/{id}/transactions", investmentHandler.ListTransactions)
		r.Post("/investments/{id}/transactions", investmentHandler.RecordTransaction)
		r.Delete("/transactions/{id}", investmentHandler.DeleteTransaction)

		r.Get("/portfolio/summary", portfolioHandler.GetSummary)
		r.Get("/exchange-rate", portfolioHandler.GetExchangeRate)
		r.Get("/market/price", portfolioHandler.GetMarketPrice)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
