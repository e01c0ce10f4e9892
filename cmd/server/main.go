package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wrenbank/banking-api/internal/events"
	"github.com/wrenbank/banking-api/internal/handler"
	"github.com/wrenbank/banking-api/internal/ledger"
	"github.com/wrenbank/banking-api/internal/middleware"
	"github.com/wrenbank/banking-api/internal/models"
	"github.com/wrenbank/banking-api/internal/redisclient"
	"github.com/wrenbank/banking-api/internal/repository"
	"github.com/wrenbank/banking-api/internal/ws"
)

func main() {
	// Amounts go over the wire as JSON numbers, matching the API contract.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional Redis event mirror. The service is fully functional without
	// it; all ledger state is in-memory and process-lifetime only.
	var publisher *events.Publisher
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redis, err := redisclient.NewClient(redisAddr, "", 0)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redis.Close()
		publisher = events.NewPublisher(redis.Client)
		log.Printf("Mirroring events to Redis streams at %s", redisAddr)
	}

	// Stores, fan-out, engine.
	accounts := repository.NewInMemoryAccountRepository()
	transactions := repository.NewInMemoryTransactionRepository()

	registry := events.NewRegistry()
	broadcaster := events.NewBroadcaster(registry, publisher)
	go broadcaster.Run(ctx)

	svc := ledger.NewService(accounts, transactions, broadcaster)

	if getEnv("SEED_DEMO_DATA", "false") == "true" {
		seedDemoData(svc)
	}

	accountHandler := handler.NewAccountHandler(svc, svc)
	transactionHandler := handler.NewTransactionHandler(svc, svc)
	wsHandler := ws.NewHandler(svc, registry)

	// Setup router
	router := gin.Default()
	router.Use(middleware.LoggingMiddleware())

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Welcome to the Banking API",
			"endpoints": gin.H{
				"rest_api":        "/api/accounts, /api/transactions, /api/transfers",
				"websocket":       "/api/ws/transactions, /api/ws/transactions/{account_id}",
				"websocket_stats": "/api/ws/stats",
			},
		})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":                "healthy",
			"websocket_connections": registry.Stats(),
		})
	})

	api := router.Group("/api")
	{
		api.POST("/accounts", accountHandler.CreateAccount)
		api.GET("/accounts", accountHandler.ListAccounts)
		api.GET("/accounts/:accountId", accountHandler.GetAccount)
		api.PUT("/accounts/:accountId", accountHandler.UpdateAccount)
		api.DELETE("/accounts/:accountId", accountHandler.DeleteAccount)

		api.POST("/transactions", transactionHandler.CreateTransaction)
		api.GET("/transactions", transactionHandler.ListTransactions)
		api.GET("/transactions/:transactionId", transactionHandler.GetTransaction)
		api.GET("/accounts/:accountId/transactions", transactionHandler.ListAccountTransactions)
		api.POST("/transfers", transactionHandler.Transfer)

		api.GET("/ws/transactions", wsHandler.StreamAll)
		api.GET("/ws/transactions/:accountId", wsHandler.StreamAccount)
		api.GET("/ws/stats", wsHandler.Stats)
	}

	port := getEnv("PORT", "8080")
	log.Printf("Banking API starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// seedDemoData creates a couple of funded demo accounts so the real-time
// stream has something to show right after startup.
func seedDemoData(svc *ledger.Service) {
	seeds := []struct {
		holder  string
		accType string
		opening decimal.Decimal
	}{
		{"Alice Demo", models.AccountTypeChecking, decimal.NewFromInt(1000)},
		{"Bob Demo", models.AccountTypeSavings, decimal.NewFromInt(500)},
	}
	for _, s := range seeds {
		account, err := svc.CreateAccount(ledger.CreateAccountCommand{
			AccountHolder: s.holder,
			AccountType:   s.accType,
		})
		if err != nil {
			log.Printf("Failed to seed account for %s: %v", s.holder, err)
			continue
		}
		if _, err := svc.Deposit(ledger.DepositCommand{
			AccountID:   account.ID,
			Amount:      s.opening,
			Description: "Opening deposit",
		}); err != nil {
			log.Printf("Failed to seed opening deposit for %s: %v", s.holder, err)
		}
		log.Printf("Seeded account %s (%s)", account.ID, s.holder)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
