package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/storefront/internal/admin"
	"github.com/rogerio-castellano/storefront/internal/backend"
	"github.com/rogerio-castellano/storefront/internal/cart"
	"github.com/rogerio-castellano/storefront/internal/checkout"
	"github.com/rogerio-castellano/storefront/internal/notice"
	"github.com/sirupsen/logrus"
)

// Error kinds reported in ErrorResponse.Kind.
const (
	KindAuth             = "auth"
	KindValidation       = "validation"
	KindNotFound         = "not_found"
	KindStock            = "stock"
	KindPayment          = "payment"
	KindOrderNotRecorded = "order_not_recorded"
	KindReconciliation   = "reconciliation"
	KindConflict         = "conflict"
	KindUnavailable      = "unavailable"
	KindInternal         = "internal"
)

// readJSON tries to read the body of a request and converts it into JSON
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	maxBytes := 1048576 // one megabyte
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	err := dec.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}

	err = dec.Decode(&struct{}{})
	if err != io.EOF {
		return errors.New("body must have only a single json value")
	}

	return nil
}

// writeJSON takes a response status code and arbitrary data and writes a json response to the client
func writeJSON(w http.ResponseWriter, status int, data any, headers ...http.Header) error {
	out, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	if len(headers) > 0 {
		for key, value := range headers[0] {
			w.Header()[key] = value
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(out)
	if err != nil {
		return fmt.Errorf("failed to write to response: %w", err)
	}

	return nil
}

func respond(w http.ResponseWriter, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		logrus.WithError(err).Warn("Failed to write JSON response")
	}
}

func idParam(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// badRequest answers a request the handler could not even decode.
func badRequest(w http.ResponseWriter, action, msg string) {
	respond(w, http.StatusBadRequest, ErrorResponse{Kind: KindValidation, Action: action, Message: msg})
}

// classify maps an error from the stores to a status, a kind and the notice
// level it deserves.
func classify(err error) (int, string, notice.Level) {
	var nr *checkout.OrderNotRecordedError
	switch {
	case errors.As(err, &nr):
		return http.StatusBadGateway, KindOrderNotRecorded, notice.Critical
	case errors.Is(err, checkout.ErrReconciliationLocked):
		return http.StatusConflict, KindReconciliation, notice.Warning
	case errors.Is(err, checkout.ErrPaymentFailed):
		return http.StatusPaymentRequired, KindPayment, notice.Error
	case errors.Is(err, backend.ErrUnauthorized),
		errors.Is(err, cart.ErrAuthRequired),
		errors.Is(err, cart.ErrSessionExpired):
		return http.StatusUnauthorized, KindAuth, notice.Warning
	case errors.Is(err, checkout.ErrInvalidAddress),
		errors.Is(err, admin.ErrInvalidProduct),
		errors.Is(err, admin.ErrInvalidStatus),
		errors.Is(err, admin.ErrZeroDelta),
		errors.Is(err, admin.ErrInvalidCSV),
		errors.Is(err, admin.ErrUnknownFormat),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrUnknownTier),
		errors.Is(err, checkout.ErrNoShipping):
		return http.StatusBadRequest, KindValidation, notice.Warning
	case errors.Is(err, backend.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, checkout.ErrNoDraft):
		return http.StatusNotFound, KindNotFound, notice.Warning
	case errors.Is(err, backend.ErrStockConflict),
		errors.Is(err, checkout.ErrCartNeedsAttention):
		return http.StatusConflict, KindStock, notice.Warning
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrPaymentNotStarted),
		errors.Is(err, checkout.ErrPaymentMismatch),
		errors.Is(err, cart.ErrClosed):
		return http.StatusConflict, KindConflict, notice.Warning
	case errors.Is(err, backend.ErrUnavailable),
		errors.Is(err, backend.ErrMalformedReply):
		return http.StatusServiceUnavailable, KindUnavailable, notice.Error
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
		return http.StatusBadRequest, KindValidation, notice.Warning
	}
	return http.StatusInternalServerError, KindInternal, notice.Error
}

// writeError turns err into a notice naming the action and its cause, both
// in the response and in the notice feed.
func writeError(w http.ResponseWriter, action string, err error) {
	status, kind, level := classify(err)
	resp := ErrorResponse{Kind: kind, Action: action, Message: err.Error()}

	var verr *checkout.ValidationError
	var aerr *admin.ValidationError
	var nr *checkout.OrderNotRecordedError
	switch {
	case errors.As(err, &verr):
		resp.Fields = verr.Fields
	case errors.As(err, &aerr):
		resp.Fields = aerr.Fields
	case errors.As(err, &nr):
		resp.Message = "Tu pago se realizó pero el pedido no pudo registrarse. Nuestro equipo ya fue avisado; no vuelvas a pagar."
		resp.Details = map[string]string{
			"draft":             nr.DraftID,
			"paypal_order_id":   nr.ProviderOrderID,
			"paypal_capture_id": nr.CaptureID,
			"total":             nr.Total.StringFixed(2),
		}
	}

	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("action", action).Error("Request failed")
	}
	notices.Notify(notice.Notice{Level: level, Action: action, Message: resp.Message})
	respond(w, status, resp)
}
