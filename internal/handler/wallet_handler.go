package handler

import (
	"net/http"
	"strconv"

	"souqi/internal/middleware"
	"souqi/internal/repository"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	walletRepo *repository.WalletRepository
}

func NewWalletHandler(walletRepo *repository.WalletRepository) *WalletHandler {
	return &WalletHandler{walletRepo: walletRepo}
}

// GetWallet returns the caller's wallet, creating it on first use.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID := middleware.GetUserID(c)
	w, err := h.walletRepo.GetOrCreate(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	entries, err := h.walletRepo.Entries(w.ID, 10, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wallet": w,
		"ledger": entries,
	})
}

// GetLedger returns the caller's ledger history newest-first.
func (h *WalletHandler) GetLedger(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	w, err := h.walletRepo.GetOrCreate(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	entries, err := h.walletRepo.Entries(w.ID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ledger": entries})
}
