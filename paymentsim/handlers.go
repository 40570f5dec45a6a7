package paymentsim

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"gavel/models"
)

type createTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Currency    string          `json:"currency" binding:"required"`
	PayerID     string          `json:"payer_id" binding:"required"`
	AuctionID   string          `json:"auction_id" binding:"required"`
	Description string          `json:"description"`
}

type resolveTransactionRequest struct {
	Status models.TransactionStatus `json:"status" binding:"required"`
}

// Routes mounts the simulator's REST surface.
func (s *Simulator) Routes(router gin.IRouter) {
	router.POST("/payments", s.createTransactionHandler)
	router.POST("/payments/:transaction_id/process", s.resolveTransactionHandler)
	router.GET("/transactions", s.listTransactionsHandler)
	router.GET("/transactions/:transaction_id", s.getTransactionHandler)
}

func (s *Simulator) createTransactionHandler(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, link := s.Create(CreateParams{
		Amount:      req.Amount,
		Currency:    req.Currency,
		PayerID:     req.PayerID,
		AuctionID:   req.AuctionID,
		Description: req.Description,
	})
	c.JSON(http.StatusCreated, gin.H{
		"transaction_id": tx.TransactionID,
		"payment_link":   link,
		"status":         tx.Status,
	})
}

func (s *Simulator) resolveTransactionHandler(c *gin.Context) {
	var req resolveTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := s.Resolve(c.Param("transaction_id"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrTransactionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrAlreadyResolved):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id": tx.TransactionID,
		"status":         tx.Status,
	})
}

func (s *Simulator) listTransactionsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.List())
}

func (s *Simulator) getTransactionHandler(c *gin.Context) {
	tx, err := s.Get(c.Param("transaction_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tx)
}
