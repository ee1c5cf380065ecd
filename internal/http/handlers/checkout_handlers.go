package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/storefront/internal/checkout"
	"github.com/rogerio-castellano/storefront/internal/models"
)

func checkoutView(d checkout.Draft) CheckoutResponse {
	return CheckoutResponse{Draft: d, Tiers: checkoutSvc.Tiers()}
}

// BeginCheckoutHandler godoc
// @Summary Start checkout from the current cart
// @Tags checkout
// @Produce json
// @Success 201 {object} CheckoutResponse
// @Failure 409 {object} ErrorResponse
// @Router /checkout [post]
// @Security SessionAuth
func BeginCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	d, err := checkoutSvc.Begin(r.Context())
	if err != nil {
		writeError(w, "Iniciar compra", err)
		return
	}
	respond(w, http.StatusCreated, checkoutView(d))
}

// GetCheckoutHandler godoc
// @Summary Checkout in progress
// @Tags checkout
// @Produce json
// @Success 200 {object} CheckoutResponse
// @Failure 404 {object} ErrorResponse
// @Router /checkout [get]
// @Security SessionAuth
func GetCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	d, err := checkoutSvc.Current(r.Context())
	if err != nil {
		writeError(w, "Cargar compra", err)
		return
	}
	respond(w, http.StatusOK, checkoutView(d))
}

// UpdateAddressHandler godoc
// @Summary Save the shipping address as typed
// @Description The address is validated only when a shipping method is selected
// @Tags checkout
// @Accept json
// @Produce json
// @Param address body models.Address true "Shipping address"
// @Success 200 {object} CheckoutResponse
// @Failure 404 {object} ErrorResponse
// @Router /checkout/address [put]
// @Security SessionAuth
func UpdateAddressHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Guardar dirección"

	var addr models.Address
	if err := readJSON(w, r, &addr); err != nil {
		badRequest(w, action, "invalid input")
		return
	}
	d, err := checkoutSvc.UpdateAddress(r.Context(), addr)
	if err != nil {
		writeError(w, action, err)
		return
	}
	respond(w, http.StatusOK, checkoutView(d))
}

// SelectShippingHandler godoc
// @Summary Validate the address and price the order with a shipping method
// @Tags checkout
// @Accept json
// @Produce json
// @Param shipping body ShippingRequest true "Shipping method"
// @Success 200 {object} CheckoutResponse
// @Failure 400 {object} ErrorResponse
// @Router /checkout/shipping [put]
// @Security SessionAuth
func SelectShippingHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Elegir envío"

	var req ShippingRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, action, "invalid input")
		return
	}
	d, err := checkoutSvc.SelectShipping(r.Context(), req.Tier)
	if err != nil {
		writeError(w, action, err)
		return
	}
	respond(w, http.StatusOK, checkoutView(d))
}

// StartPaymentHandler godoc
// @Summary Open a PayPal order for the checkout total
// @Tags checkout
// @Produce json
// @Success 200 {object} PaymentResponse
// @Failure 402 {object} ErrorResponse
// @Router /checkout/payment [post]
// @Security SessionAuth
func StartPaymentHandler(w http.ResponseWriter, r *http.Request) {
	d, err := checkoutSvc.StartPayment(r.Context())
	if err != nil {
		writeError(w, "Iniciar pago", err)
		return
	}
	respond(w, http.StatusOK, PaymentResponse{ProviderOrderID: d.Payment.ProviderOrderID, ApproveURL: d.Payment.ApproveURL})
}

// CapturePaymentHandler godoc
// @Summary Capture the approved payment and record the order
// @Description A 502 with kind order_not_recorded means the money was taken but no order exists; calling again retries only the order
// @Tags checkout
// @Produce json
// @Param orderId path string true "PayPal order ID"
// @Success 201 {object} models.Order
// @Failure 402 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /checkout/payment/{orderId}/capture [post]
// @Security SessionAuth
func CapturePaymentHandler(w http.ResponseWriter, r *http.Request) {
	order, err := checkoutSvc.CompletePayment(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, "Confirmar pago", err)
		return
	}
	respond(w, http.StatusCreated, order)
}

// AbandonCheckoutHandler godoc
// @Summary Drop the checkout in progress
// @Tags checkout
// @Success 204 "Abandoned"
// @Failure 409 {object} ErrorResponse
// @Router /checkout [delete]
// @Security SessionAuth
func AbandonCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := checkoutSvc.Abandon(r.Context()); err != nil {
		writeError(w, "Cancelar compra", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetShippingTiersHandler godoc
// @Summary Shipping methods and their cost
// @Tags checkout
// @Produce json
// @Success 200 {array} checkout.Tier
// @Router /checkout/shipping-tiers [get]
func GetShippingTiersHandler(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, checkoutSvc.Tiers())
}
