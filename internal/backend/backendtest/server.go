// Package backendtest runs an in-process imitation of the store backend for
// tests: products, a single shopper cart, orders and failure injection.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/storefront/internal/models"
	"github.com/shopspring/decimal"
)

const (
	Username = "ana"
	Password = "secret"
)

type Server struct {
	*httptest.Server

	mu         sync.Mutex
	token      string
	user       models.User
	products   map[int]*models.Product
	lines      []models.CartItem
	nextLine   int
	orders     []models.Order
	nextOrder  int
	expiry     models.ExpiryReport
	failures   map[string][]int
	calls      map[string]int
	realtime   string
	stockGuard bool
}

func New() *Server {
	s := &Server{
		token:      "test-token",
		user:       models.User{ID: 1, Username: Username, Email: "ana@example.com"},
		products:   map[int]*models.Product{},
		nextLine:   100,
		nextOrder:  1,
		failures:   map[string][]int{},
		calls:      map[string]int{},
		realtime:   "realtime-secret",
		stockGuard: true,
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// BaseURL is the api root the client should be configured with.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) SetStaff(staff bool) {
	s.mu.Lock()
	s.user.IsStaff = staff
	s.mu.Unlock()
}

func (s *Server) AddProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.products[p.ID] = &cp
}

func (s *Server) SetStock(productID, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[productID]; ok {
		p.Stock = stock
	}
}

// SetStockGuard toggles the 409 the fake returns when a cart quantity would
// exceed stock.
func (s *Server) SetStockGuard(on bool) {
	s.mu.Lock()
	s.stockGuard = on
	s.mu.Unlock()
}

// PutLine inserts a cart line directly, bypassing stock checks.
func (s *Server) PutLine(productID, quantity int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextLine
	s.nextLine++
	s.lines = append(s.lines, models.CartItem{ID: id, Product: productID, Quantity: quantity})
	return id
}

// ClearLines empties the cart behind the client's back.
func (s *Server) ClearLines() {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()
}

func (s *Server) Lines() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderLines()
}

func (s *Server) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Order(nil), s.orders...)
}

func (s *Server) SetExpiryReport(r models.ExpiryReport) {
	s.mu.Lock()
	s.expiry = r
	s.mu.Unlock()
}

// FailNext makes the next call to method+path (for example
// "/api/carrito/100/") answer with status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], status)
}

// Calls reports how many requests hit method+path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login/", s.login)
		r.Get("/productos/", s.listProducts)
		r.Get("/productos/{id}/", s.getProduct)
		r.Get("/productos/{id}/stock-visible/", s.stockVisible)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Post("/logout/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
			r.Post("/realtime/auth/", s.realtimeAuth)

			r.Get("/carrito/", s.getCart)
			r.Post("/carrito/agregar/", s.addToCart)
			r.Delete("/carrito/vaciar/", s.clearCart)
			r.Post("/carrito/verificar-expiracion/", s.verifyExpiry)
			r.Put("/carrito/{id}/", s.updateLine)
			r.Delete("/carrito/{id}/", s.deleteLine)

			r.Post("/pedidos/", s.createOrder)
			r.Get("/pedidos/", s.listOrders)
			r.Patch("/pedidos/{id}/", s.updateOrder)

			r.Post("/productos/", s.createProduct)
			r.Put("/productos/{id}/", s.updateProduct)
			r.Delete("/productos/{id}/", s.deleteProduct)
			r.Post("/productos/{id}/ajustar-stock/", s.adjustStock)
		})
	})
	return r
}

// record counts the call and serves an injected failure if one is queued.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		s.mu.Lock()
		s.calls[key]++
		var status int
		if queued := s.failures[key]; len(queued) > 0 {
			status = queued[0]
			s.failures[key] = queued[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token "+s.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token inválido."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func idParam(r *http.Request) int {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	return id
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid input"})
		return
	}
	if creds.Username != Username || creds.Password != Password {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Credenciales inválidas"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-123", Path: "/"})

	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"token": s.token, "usuario": user})
}

func (s *Server) realtimeAuth(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-CSRFToken") == "" {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "CSRF token missing"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"auth": s.realtime})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[idParam(r)]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No encontrado."})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) stockVisible(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[idParam(r)]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No encontrado."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"producto_id": p.ID, "stock_visible": p.Stock})
}

// renderLines joins lines with their products; callers hold s.mu.
func (s *Server) renderLines() []models.CartItem {
	out := make([]models.CartItem, 0, len(s.lines))
	for _, l := range s.lines {
		item := l
		if p, ok := s.products[l.Product]; ok {
			item.ProductID = p.ID
			item.Name = p.Name
			item.Price = p.Price
			item.Available = p.Stock
		}
		out = append(out, item)
	}
	return out
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.renderLines())
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int `json:"producto_id"`
		Quantity  int `json:"cantidad_prod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cantidad inválida"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[req.ProductID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Producto no encontrado"})
		return
	}
	for i, l := range s.lines {
		if l.Product == req.ProductID {
			if s.stockGuard && l.Quantity+req.Quantity > p.Stock {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "Stock insuficiente"})
				return
			}
			s.lines[i].Quantity += req.Quantity
			writeJSON(w, http.StatusOK, s.lines[i])
			return
		}
	}
	if s.stockGuard && req.Quantity > p.Stock {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Stock insuficiente"})
		return
	}
	line := models.CartItem{ID: s.nextLine, Product: req.ProductID, Quantity: req.Quantity}
	s.nextLine++
	s.lines = append(s.lines, line)
	writeJSON(w, http.StatusCreated, line)
}

func (s *Server) updateLine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"cantidad_prod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cantidad inválida"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := idParam(r)
	for i, l := range s.lines {
		if l.ID != id {
			continue
		}
		if p, ok := s.products[l.Product]; ok && s.stockGuard && req.Quantity > p.Stock {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "Stock insuficiente"})
			return
		}
		s.lines[i].Quantity = req.Quantity
		writeJSON(w, http.StatusOK, s.lines[i])
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No encontrado."})
}

func (s *Server) deleteLine(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := idParam(r)
	for i, l := range s.lines {
		if l.ID == id {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No encontrado."})
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) verifyExpiry(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := s.expiry
	for _, e := range report.Expired {
		for i, l := range s.lines {
			if l.ID == e.ID {
				s.lines = append(s.lines[:i], s.lines[i+1:]...)
				break
			}
		}
	}
	s.expiry = models.ExpiryReport{}
	if report.Expired == nil {
		report.Expired = []models.ExpiredItem{}
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Lines) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pedido inválido"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range req.Lines {
		if p, ok := s.products[l.ProductID]; ok {
			p.Stock -= l.Quantity
		}
	}
	order := models.Order{
		ID:           s.nextOrder,
		User:         s.user.ID,
		Status:       models.OrderPaid,
		Lines:        req.Lines,
		Address:      req.Address,
		ShippingTier: req.ShippingTier,
		Total:        req.Total,
		PaymentID:    req.PaymentID,
	}
	s.nextOrder++
	s.orders = append(s.orders, order)
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.Order{}, s.orders...)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"estado"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()

	id := idParam(r)
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i].Status = req.Status
			writeJSON(w, http.StatusOK, s.orders[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No encontrado."})
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid input"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.products {
		if existing.Name == p.Name {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"nombre": {"ya existe"}})
			return
		}
	}
	p.ID = len(s.products) + 1
	for s.products[p.ID] != nil {
		p.ID++
	}
	s.products[p.ID] = &p
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid input"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := idParam(r)
	if _, ok := s.products[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No encontrado."})
		return
	}
	p.ID = id
	s.products[id] = &p
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := idParam(r)
	if _, ok := s.products[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No encontrado."})
		return
	}
	delete(s.products, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int `json:"delta"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[idParam(r)]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No encontrado."})
		return
	}
	if p.Stock+req.Delta < 0 {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "el stock no puede ser negativo"})
		return
	}
	p.Stock += req.Delta
	writeJSON(w, http.StatusOK, p)
}

// Product builds a catalog product with a decimal price.
func Product(id int, name, price string, stock int) models.Product {
	return models.Product{
		ID:        id,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Threshold: 2,
		Category:  "camisetas",
		Size:      "M",
	}
}

func (s *Server) String() string {
	return fmt.Sprintf("backendtest.Server(%s)", s.URL)
}
