package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/katikolakarthik/manvi/internal/apperr"
	"github.com/katikolakarthik/manvi/internal/domain"
	"github.com/katikolakarthik/manvi/internal/service"
)

type paymentHandler struct {
	payments service.PaymentService
}

func (h *paymentHandler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	order, err := h.payments.CreateProviderOrder(c.Request.Context(), service.CreateProviderOrderInput{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

func (h *paymentHandler) validatePayment(c *gin.Context) {
	var req settleRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	in := req.input()
	res, err := h.payments.VerifyAndSettlePayment(c.Request.Context(), currentActor(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Payment verified successfully and order created",
		"orderId":   in.ProviderOrderID,
		"paymentId": in.ProviderPaymentID,
		"payment": paymentSummary{
			ID:                res.Payment.ID,
			RazorpayPaymentID: res.Payment.RazorpayPaymentID,
			Amount:            res.Payment.Amount,
			Status:            res.Payment.Status,
			OrderID:           res.Payment.OrderID,
		},
		"order": res.Order,
	})
}

func (h *paymentHandler) fetchOrder(c *gin.Context) {
	order, err := h.payments.FetchProviderOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

func (h *paymentHandler) listAll(c *gin.Context) {
	payments, err := h.payments.ListPayments(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	renderPayments(c, payments)
}

func (h *paymentHandler) listMine(c *gin.Context) {
	payments, err := h.payments.ListUserPayments(c.Request.Context(), currentActor(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	renderPayments(c, payments)
}

func renderPayments(c *gin.Context, payments []domain.PaymentWithOrder) {
	if payments == nil {
		payments = []domain.PaymentWithOrder{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(payments), "payments": payments})
}

func (h *paymentHandler) refund(c *gin.Context) {
	var req refundRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	res, err := h.payments.Refund(c.Request.Context(), service.RefundInput{
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
		Reason:    req.Reason,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment refunded successfully",
		"refund":  refundSummary{ID: res.ID, Amount: res.Amount, Reason: res.Reason},
	})
}

type orderHandler struct {
	orders service.OrderService
}

func (h *orderHandler) place(c *gin.Context) {
	var req placeOrderRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	order, err := h.orders.PlaceOrder(c.Request.Context(), currentActor(c), service.PlaceOrderInput{
		Items:           toItemInputs(req.Items),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order": order})
}

func (h *orderHandler) get(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

func (h *orderHandler) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// HealthChecker reports datastore health.
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

func healthHandler(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := db.Health(c.Request.Context())
		if stats["status"] != "up" {
			c.JSON(http.StatusServiceUnavailable, stats)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func notFound(c *gin.Context) {
	fail(c, apperr.NotFoundErr("Route not found"))
}
