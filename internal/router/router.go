package router

import (
	"time"

	"souqi/config"
	"souqi/internal/domain"
	"souqi/internal/handler"
	"souqi/internal/middleware"
	"souqi/internal/repository"
	"souqi/internal/service"
	"souqi/internal/ws"
	"souqi/pkg/cloudinary"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Setup wires repositories, services, and handlers. Everything is constructed
// once here and passed down explicitly; no package-level singletons. The
// billing service is returned for the renewal scheduler.
func Setup(cfg *config.Config, db *gorm.DB, cloud cloudinary.Client, node *snowflake.Node) (*gin.Engine, *service.Billing) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	walletRepo := repository.NewWalletRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)

	// Services
	events := ws.NewEventsHub()
	processor := service.NewProcessor(db, walletRepo, node)
	commission := service.NewCommissionEngine(&cfg.Commission)
	billing := service.NewBilling(db, subRepo, processor, cfg.Billing)
	escrow := service.NewEscrowManager(db, orderRepo, processor, commission, billing, cfg.Commission.VATRateBps, events)

	// Handlers
	walletHandler := handler.NewWalletHandler(walletRepo)
	orderHandler := handler.NewOrderHandler(escrow, orderRepo, cloud)
	subHandler := handler.NewSubscriptionHandler(billing)
	webhookHandler := handler.NewWebhookHandler(&cfg.Webhook, escrow, processor, events)
	adminHandler := handler.NewAdminHandler(escrow, processor, walletRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)
	adminMw := middleware.RequireRole(domain.RoleAdmin)

	api := r.Group("/api/v1")
	{
		wallet := api.Group("/wallet", authMw)
		{
			wallet.GET("", walletHandler.GetWallet)
			wallet.GET("/ledger", walletHandler.GetLedger)
		}

		orders := api.Group("/orders", authMw)
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.POST("/:id/receipt", orderHandler.UploadReceipt)
			orders.POST("/:id/deliver", orderHandler.MarkDelivered)
			orders.POST("/:id/confirm", orderHandler.ConfirmReceipt)
			orders.POST("/:id/cancel", orderHandler.Cancel)
			orders.POST("/:id/dispute", orderHandler.Dispute)
		}

		sub := api.Group("/subscription", authMw)
		{
			sub.GET("", subHandler.Get)
			sub.POST("/subscribe", subHandler.Subscribe)
			sub.POST("/cancel", subHandler.Cancel)
			sub.POST("/retention-offer", subHandler.RetentionOffer)
		}

		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/bank-receipt", webhookHandler.BankReceipt)
			webhooks.POST("/deposit", webhookHandler.Deposit)
		}

		admin := api.Group("/admin", authMw, adminMw)
		{
			admin.POST("/orders/:id/resolve", adminHandler.ResolveOrder)
			admin.POST("/wallets/:ownerId/freeze", adminHandler.FreezeWallet)
			admin.POST("/wallets/:ownerId/unfreeze", adminHandler.UnfreezeWallet)
			admin.GET("/wallets/:ownerId/audit", adminHandler.AuditWallet)
			admin.POST("/withdrawals", adminHandler.Withdraw)
		}
	}

	r.GET("/ws/events", ws.UpgradeEventsWS(&cfg.JWT, events))

	return r, billing
}
