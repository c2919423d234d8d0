package handler

import (
	"errors"
	"net/http"

	"souqi/internal/middleware"
	"souqi/internal/repository"
	"souqi/internal/service"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	billing *service.Billing
}

func NewSubscriptionHandler(billing *service.Billing) *SubscriptionHandler {
	return &SubscriptionHandler{billing: billing}
}

func (h *SubscriptionHandler) Get(c *gin.Context) {
	sub, err := h.billing.Get(middleware.GetUserID(c))
	if errors.Is(err, repository.ErrSubscriptionNotFound) {
		c.JSON(http.StatusOK, gin.H{"subscription": nil})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	sub, err := h.billing.Subscribe(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscription": sub})
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	sub, err := h.billing.Cancel(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

func (h *SubscriptionHandler) RetentionOffer(c *gin.Context) {
	sub, err := h.billing.ApplyRetentionOffer(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}
