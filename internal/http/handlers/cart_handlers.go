package handlers

import (
	"net/http"

	"github.com/rogerio-castellano/storefront/internal/cart"
)

func cartSnapshot() CartResponse {
	return CartResponse{
		State:         string(shopCart.State()),
		Items:         shopCart.Items(),
		Total:         shopCart.Total(),
		Count:         shopCart.Count(),
		ExpiryPending: shopCart.ExpiryPending(),
	}
}

// GetCartHandler godoc
// @Summary Current cart
// @Description Loads the cart on first use, after a failure or when refresh is set
// @Tags cart
// @Produce json
// @Param refresh query bool false "Reload from the backend"
// @Success 200 {object} CartResponse
// @Failure 401 {object} ErrorResponse
// @Router /cart [get]
// @Security SessionAuth
func GetCartHandler(w http.ResponseWriter, r *http.Request) {
	state := shopCart.State()
	if state == cart.StateUninitialized || state == cart.StateError || parseBool(r.URL.Query().Get("refresh")) {
		if err := shopCart.Load(r.Context()); err != nil {
			writeError(w, "Cargar carrito", err)
			return
		}
	}
	respond(w, http.StatusOK, cartSnapshot())
}

// AddCartItemHandler godoc
// @Summary Add a product to the cart
// @Tags cart
// @Accept json
// @Produce json
// @Param item body AddToCartRequest true "Product and quantity"
// @Success 200 {object} CartResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /cart/items [post]
// @Security SessionAuth
func AddCartItemHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Agregar al carrito"

	var req AddToCartRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, action, "invalid input")
		return
	}
	if err := shopCart.Add(r.Context(), req.ProductID, req.Quantity); err != nil {
		writeError(w, action, err)
		return
	}
	respond(w, http.StatusOK, cartSnapshot())
}

// UpdateCartItemHandler godoc
// @Summary Change the quantity of a cart line
// @Description Quantities above the last known stock are clamped to it
// @Tags cart
// @Accept json
// @Produce json
// @Param id path int true "Cart line ID"
// @Param quantity body QuantityRequest true "New quantity"
// @Success 200 {object} CartResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /cart/items/{id} [patch]
// @Security SessionAuth
func UpdateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Actualizar cantidad"

	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, action, err.Error())
		return
	}
	var req QuantityRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, action, "invalid input")
		return
	}
	if err := shopCart.UpdateQuantity(r.Context(), id, req.Quantity); err != nil {
		writeError(w, action, err)
		return
	}
	respond(w, http.StatusOK, cartSnapshot())
}

// RemoveCartItemHandler godoc
// @Summary Remove a cart line
// @Tags cart
// @Produce json
// @Param id path int true "Cart line ID"
// @Success 200 {object} CartResponse
// @Failure 404 {object} ErrorResponse
// @Router /cart/items/{id} [delete]
// @Security SessionAuth
func RemoveCartItemHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Eliminar del carrito"

	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, action, err.Error())
		return
	}
	if err := shopCart.Remove(r.Context(), id); err != nil {
		writeError(w, action, err)
		return
	}
	respond(w, http.StatusOK, cartSnapshot())
}

// ClearCartHandler godoc
// @Summary Empty the cart
// @Tags cart
// @Produce json
// @Success 200 {object} CartResponse
// @Router /cart [delete]
// @Security SessionAuth
func ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	if err := shopCart.Clear(r.Context()); err != nil {
		writeError(w, "Vaciar carrito", err)
		return
	}
	respond(w, http.StatusOK, cartSnapshot())
}

// CheckCartExpiryHandler godoc
// @Summary Ask the backend to expire stale cart lines
// @Tags cart
// @Produce json
// @Success 200 {object} models.ExpiryReport
// @Router /cart/expiry-check [post]
// @Security SessionAuth
func CheckCartExpiryHandler(w http.ResponseWriter, r *http.Request) {
	report, err := shopCart.CheckExpiry(r.Context())
	if err != nil {
		writeError(w, "Verificar carrito", err)
		return
	}
	respond(w, http.StatusOK, report)
}
