package admin

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rogerio-castellano/storefront/internal/models"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var ErrUnknownFormat = errors.New("unknown export format")

var orderColumns = []string{"id", "estado", "cliente", "email", "ciudad", "metodo_envio", "unidades", "total", "paypal_order_id", "created_at"}

// ExportOrders writes the orders in status (all when empty) to w.
func (s *Service) ExportOrders(ctx context.Context, w io.Writer, format, status string) error {
	format = strings.ToLower(format)
	if format != FormatCSV && format != FormatJSON {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	orders, err := s.Orders(ctx, status)
	if err != nil {
		return err
	}
	return WriteOrders(w, format, orders)
}

// WriteOrders encodes orders to w in format.
func WriteOrders(w io.Writer, format string, orders []models.Order) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(orders)
	case FormatCSV:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(orderColumns); err != nil {
		return err
	}
	for _, o := range orders {
		record := []string{
			strconv.Itoa(o.ID),
			o.Status,
			o.Address.FullName,
			o.Address.Email,
			o.Address.City,
			o.ShippingTier,
			strconv.Itoa(orderUnits(o)),
			o.Total.StringFixed(2),
			o.PaymentID,
			o.CreatedAt,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
