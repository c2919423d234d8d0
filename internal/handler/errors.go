package handler

import (
	"errors"
	"net/http"

	"souqi/internal/repository"
	"souqi/internal/service"

	"github.com/gin-gonic/gin"
)

// respondError maps service/repository sentinels to HTTP statuses. Financial
// failures are explicit and typed; nothing here retries.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrWalletNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrSubscriptionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrSelfPurchase),
		errors.Is(err, service.ErrPaymentVerificationMissing),
		errors.Is(err, service.ErrReceiptAmountMismatch),
		errors.Is(err, service.ErrAlreadySubscribed),
		errors.Is(err, service.ErrSubscriptionLapsed),
		errors.Is(err, repository.ErrInvalidAmount):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrWalletFrozen):
		c.JSON(http.StatusLocked, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
