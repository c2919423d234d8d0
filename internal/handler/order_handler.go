package handler

import (
	"net/http"
	"strconv"
	"strings"

	"souqi/internal/domain"
	"souqi/internal/middleware"
	"souqi/internal/repository"
	"souqi/internal/service"
	"souqi/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderHandler struct {
	escrow    *service.EscrowManager
	orderRepo *repository.OrderRepository
	cloud     cloudinary.Client
}

func NewOrderHandler(escrow *service.EscrowManager, orderRepo *repository.OrderRepository, cloud cloudinary.Client) *OrderHandler {
	return &OrderHandler{escrow: escrow, orderRepo: orderRepo, cloud: cloud}
}

type createOrderRequest struct {
	SellerID      uint   `json:"seller_id" binding:"required"`
	SellerName    string `json:"seller_name"`
	ItemTitle     string `json:"service_title" binding:"required"`
	Category      string `json:"category" binding:"required"`
	AmountHalalas int64  `json:"amount_halalas" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// CreateOrder opens an escrow purchase. Amount and method are validated here;
// the ledger layer never sees raw input.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.AmountHalalas <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}
	if req.PaymentMethod != domain.PaymentMethodWallet && req.PaymentMethod != domain.PaymentMethodBankTransfer {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment method"})
		return
	}

	order, err := h.escrow.CreateOrder(service.CreateOrderInput{
		BuyerID:       middleware.GetUserID(c),
		BuyerName:     middleware.GetUserName(c),
		SellerID:      req.SellerID,
		SellerName:    req.SellerName,
		ItemTitle:     req.ItemTitle,
		Category:      req.Category,
		AmountHalalas: req.AmountHalalas,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := h.orderRepo.ListByParty(userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderRepo.GetByID(orderID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	userID := middleware.GetUserID(c)
	if order.BuyerID != userID && order.SellerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a party to this order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UploadReceipt takes the bank-transfer receipt image, stores it, and moves
// the order to PendingVerification.
func (h *OrderHandler) UploadReceipt(c *gin.Context) {
	userID := middleware.GetUserID(c)
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	folder := "souqi/receipts/" + strconv.FormatUint(uint64(userID), 10)
	publicID := "receipt_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	url, err := h.cloud.UploadImage(c.Request.Context(), f, folder, publicID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	order, err := h.escrow.AttachReceipt(orderID(c), userID, url, c.PostForm("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	order, err := h.escrow.MarkDelivered(orderID(c), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *OrderHandler) ConfirmReceipt(c *gin.Context) {
	order, err := h.escrow.ConfirmReceipt(orderID(c), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	order, err := h.escrow.Cancel(orderID(c), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *OrderHandler) Dispute(c *gin.Context) {
	order, err := h.escrow.Dispute(orderID(c), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func orderID(c *gin.Context) uint {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	return uint(id)
}
