package handler

import (
	"net/http"
	"strconv"

	"souqi/internal/domain"
	"souqi/internal/repository"
	"souqi/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler covers the manual-intervention surface: dispute resolution,
// wallet freezes, approved withdrawals, and ledger audits.
type AdminHandler struct {
	escrow     *service.EscrowManager
	processor  *service.Processor
	walletRepo *repository.WalletRepository
}

func NewAdminHandler(escrow *service.EscrowManager, processor *service.Processor, walletRepo *repository.WalletRepository) *AdminHandler {
	return &AdminHandler{escrow: escrow, processor: processor, walletRepo: walletRepo}
}

type resolveRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

func (h *AdminHandler) ResolveOrder(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Outcome != domain.ResolveRelease && req.Outcome != domain.ResolveRefund {
		c.JSON(http.StatusBadRequest, gin.H{"error": "outcome must be RELEASE or REFUND"})
		return
	}
	order, err := h.escrow.Resolve(orderID(c), req.Outcome)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *AdminHandler) FreezeWallet(c *gin.Context) {
	h.setWalletStatus(c, domain.WalletFrozen)
}

func (h *AdminHandler) UnfreezeWallet(c *gin.Context) {
	h.setWalletStatus(c, domain.WalletActive)
}

func (h *AdminHandler) setWalletStatus(c *gin.Context, status string) {
	w, err := h.walletRepo.SetStatus(ownerID(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": w})
}

type withdrawalRequest struct {
	OwnerID       uint   `json:"owner_id" binding:"required"`
	AmountHalalas int64  `json:"amount_halalas" binding:"required"`
	Reference     string `json:"reference"`
}

// Withdraw debits an approved payout from a user wallet. Settlement with the
// banking network happens outside this core; the ledger records the exit.
func (h *AdminHandler) Withdraw(c *gin.Context) {
	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountHalalas <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	mv, err := h.processor.Process(req.OwnerID, domain.TxTypeWithdrawal, req.AmountHalalas, "withdrawal "+req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance_halalas": mv.NewBalance})
}

// AuditWallet recomputes the balance from the ledger and reports drift.
// The two figures must always agree.
func (h *AdminHandler) AuditWallet(c *gin.Context) {
	w, err := h.walletRepo.GetByOwnerID(ownerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	sum, err := h.walletRepo.SumEntries(w.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wallet":             w,
		"ledger_sum_halalas": sum,
		"consistent":         sum == w.BalanceHalalas,
	})
}

func ownerID(c *gin.Context) uint {
	id, _ := strconv.ParseUint(c.Param("ownerId"), 10, 64)
	return uint(id)
}
