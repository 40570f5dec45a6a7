package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"gavel/auction"
	"gavel/bidding"
	"gavel/gateway"
	"gavel/models"
	"gavel/payment"
)

type createAuctionRequest struct {
	ID            string          `json:"id" binding:"required"`
	Description   string          `json:"description" binding:"required"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	CreatorID     string          `json:"creator_id" binding:"required"`
	EndTime       time.Time       `json:"end_time" binding:"required"`
}

type submitBidRequest struct {
	AuctionID string          `json:"auction_id" binding:"required"`
	BidderID  string          `json:"bidder_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
}

type subscriptionRequest struct {
	AuctionID string `json:"auction_id" binding:"required"`
	ClientID  string `json:"client_id" binding:"required"`
}

type paymentWebhookRequest struct {
	AuctionID     string                   `json:"auction_id" binding:"required"`
	Status        models.PaymentResolution `json:"status" binding:"required"`
	TransactionID string                   `json:"transaction_id"`
}

// SetupRouter mounts the coordination surface.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/auctions", s.createAuctionHandler)
	router.GET("/auctions", s.listAuctionsHandler)
	router.POST("/bids", s.submitBidHandler)
	router.POST("/subscriptions", s.subscribeHandler)
	router.DELETE("/subscriptions", s.unsubscribeHandler)
	router.POST("/webhook/payment", s.paymentWebhookHandler)
	router.GET("/payments/pending", s.pendingPaymentsHandler)
	router.GET("/events/:client_id", headersMiddleware(), s.eventStreamHandler)

	return router
}

func (s *Server) createAuctionHandler(c *gin.Context) {
	var req createAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := s.manager.Create(auction.CreateParams{
		ID:            req.ID,
		Description:   req.Description,
		StartingPrice: req.StartingPrice,
		CreatorID:     req.CreatorID,
		EndTime:       req.EndTime,
	})
	if err != nil {
		switch {
		case errors.Is(err, auction.ErrDuplicateAuction):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, auction.ErrInvalidSchedule):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (s *Server) listAuctionsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.ListActive())
}

func (s *Server) submitBidHandler(c *gin.Context) {
	var req submitBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recorded, err := s.arbiter.Submit(req.AuctionID, req.BidderID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, bidding.ErrAuctionNotActive):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, bidding.ErrInvalidAmount), errors.Is(err, bidding.ErrBidTooLow):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "bid accepted",
		"auction_id": req.AuctionID,
		"amount":     recorded.Amount,
	})
}

func (s *Server) subscribeHandler(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.router.Subscribe(req.AuctionID, req.ClientID)
	c.JSON(http.StatusOK, gin.H{
		"message":    "subscribed",
		"auction_id": req.AuctionID,
		"client_id":  req.ClientID,
	})
}

func (s *Server) unsubscribeHandler(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.router.Unsubscribe(req.AuctionID, req.ClientID); err != nil {
		if errors.Is(err, gateway.ErrUnknownSubscription) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "unsubscribed",
		"auction_id": req.AuctionID,
		"client_id":  req.ClientID,
	})
}

func (s *Server) paymentWebhookHandler(c *gin.Context) {
	var req paymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pending, err := s.orchestrator.HandleWebhook(req.AuctionID, req.Status, req.TransactionID)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, payment.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "payment status processed",
		"auction_id": pending.AuctionID,
		"status":     req.Status,
	})
}

func (s *Server) pendingPaymentsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.orchestrator.Pending())
}
