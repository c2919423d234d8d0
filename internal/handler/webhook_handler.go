package handler

import (
	"net/http"

	"souqi/config"
	"souqi/internal/domain"
	"souqi/internal/service"
	"souqi/internal/ws"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// WebhookHandler receives signals from the external payment collaborators:
// bank-receipt review outcomes and confirmed wallet top-ups. Requests carry
// the shared secret in X-Webhook-Secret, checked against its bcrypt hash.
type WebhookHandler struct {
	cfg       *config.WebhookConfig
	escrow    *service.EscrowManager
	processor *service.Processor
	events    *ws.EventsHub
}

func NewWebhookHandler(cfg *config.WebhookConfig, escrow *service.EscrowManager, processor *service.Processor, events *ws.EventsHub) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, escrow: escrow, processor: processor, events: events}
}

func (h *WebhookHandler) authorized(c *gin.Context) bool {
	secret := c.GetHeader("X-Webhook-Secret")
	if h.cfg.SecretHash == "" || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h.cfg.SecretHash), []byte(secret)) == nil
}

type bankReceiptEvent struct {
	OrderID       uint   `json:"order_id" binding:"required"`
	AmountHalalas int64  `json:"amount_halalas" binding:"required"`
	Reference     string `json:"reference"`
}

// BankReceipt drives PendingVerification -> InProgress once the review
// collaborator confirms the buyer's transfer.
func (h *WebhookHandler) BankReceipt(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}
	var ev bankReceiptEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	order, err := h.escrow.ConfirmBankReceipt(ev.OrderID, ev.AmountHalalas, ev.Reference)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type depositEvent struct {
	UserID        uint   `json:"user_id" binding:"required"`
	AmountHalalas int64  `json:"amount_halalas" binding:"required"`
	Reference     string `json:"reference"`
}

// Deposit credits a confirmed top-up to the user's wallet.
func (h *WebhookHandler) Deposit(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}
	var ev depositEvent
	if err := c.ShouldBindJSON(&ev); err != nil || ev.AmountHalalas <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	mv, err := h.processor.Process(ev.UserID, domain.TxTypeDeposit, ev.AmountHalalas, "deposit "+ev.Reference)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.events != nil {
		h.events.WalletEvent(ev.UserID, mv.NewBalance)
	}
	c.JSON(http.StatusOK, gin.H{"balance_halalas": mv.NewBalance})
}
