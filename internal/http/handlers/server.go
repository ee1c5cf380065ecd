package handlers

import (
	"context"

	"github.com/rogerio-castellano/storefront/internal/admin"
	"github.com/rogerio-castellano/storefront/internal/backend"
	"github.com/rogerio-castellano/storefront/internal/cart"
	"github.com/rogerio-castellano/storefront/internal/catalog"
	"github.com/rogerio-castellano/storefront/internal/checkout"
	"github.com/rogerio-castellano/storefront/internal/notice"
	"github.com/rogerio-castellano/storefront/internal/session"
	"github.com/rogerio-castellano/storefront/internal/stock"
)

// Authenticator is the slice of the backend client the auth handlers use.
type Authenticator interface {
	Login(ctx context.Context, creds backend.Credentials) (backend.LoginResult, error)
	Logout(ctx context.Context) error
}

var (
	authenticator Authenticator
	sess          *session.Session
	shopCart      *cart.Store
	catalogSvc    *catalog.Catalog
	stockFetcher  *stock.Fetcher
	checkoutSvc   *checkout.Orchestrator
	adminSvc      *admin.Service
	notices       notice.Notifier = notice.Discard
	noticeFeed    *notice.Feed
)

func SetAuthenticator(a Authenticator) {
	authenticator = a
}

func SetSession(s *session.Session) {
	sess = s
}

func SetCart(c *cart.Store) {
	shopCart = c
}

func SetCatalog(c *catalog.Catalog) {
	catalogSvc = c
}

func SetStockFetcher(f *stock.Fetcher) {
	stockFetcher = f
}

func SetCheckout(o *checkout.Orchestrator) {
	checkoutSvc = o
}

func SetAdmin(s *admin.Service) {
	adminSvc = s
}

// SetNotices makes f both the sink of handler errors and the source of
// GET /notices.
func SetNotices(f *notice.Feed) {
	noticeFeed = f
	notices = f
}
