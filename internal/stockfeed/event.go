package stockfeed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

const (
	EventStockUpdated   = "stock-updated"
	EventCarritoUpdated = "carrito-updated"
	EventActualizacion  = "actualizacion"
)

// Events lists every event the updater binds on the stock channel.
var Events = []string{EventStockUpdated, EventCarritoUpdated, EventActualizacion}

var (
	ErrUnknownEvent = errors.New("unknown stock event")
	ErrMissingStock = errors.New("stock event carries no stock value")
)

// StockChange is the canonical form of every stock event.
type StockChange struct {
	ProductID int `json:"producto_id"`
	NewStock  int `json:"stock"`
}

// Event is one of StockUpdated, CarritoUpdated or Actualizacion.
type Event interface {
	Name() string
	Change() StockChange
}

type StockUpdated struct {
	ProductID   intish `json:"producto_id"`
	StockActual intish `json:"stock_actual"`
}

func (StockUpdated) Name() string { return EventStockUpdated }

func (e StockUpdated) Change() StockChange {
	return StockChange{ProductID: int(e.ProductID), NewStock: int(e.StockActual)}
}

type CarritoUpdated struct {
	ProductID   intish  `json:"producto_id"`
	StockActual *intish `json:"stock_actual,omitempty"`
	NuevoStock  *intish `json:"nuevo_stock,omitempty"`
}

func (CarritoUpdated) Name() string { return EventCarritoUpdated }

// Change prefers stock_actual over nuevo_stock.
func (e CarritoUpdated) Change() StockChange {
	c := StockChange{ProductID: int(e.ProductID)}
	switch {
	case e.StockActual != nil:
		c.NewStock = int(*e.StockActual)
	case e.NuevoStock != nil:
		c.NewStock = int(*e.NuevoStock)
	}
	return c
}

type Actualizacion struct {
	ProductID  intish `json:"producto_id"`
	NuevoStock intish `json:"nuevo_stock"`
}

func (Actualizacion) Name() string { return EventActualizacion }

func (e Actualizacion) Change() StockChange {
	return StockChange{ProductID: int(e.ProductID), NewStock: int(e.NuevoStock)}
}

// Decode parses the payload of the named event.
func Decode(name string, payload []byte) (Event, error) {
	switch name {
	case EventStockUpdated:
		var raw struct {
			ProductID   *intish `json:"producto_id"`
			StockActual *intish `json:"stock_actual"`
		}
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		if raw.ProductID == nil {
			return nil, fmt.Errorf("decode %s: missing producto_id", name)
		}
		if raw.StockActual == nil {
			return nil, fmt.Errorf("decode %s: %w", name, ErrMissingStock)
		}
		return StockUpdated{ProductID: *raw.ProductID, StockActual: *raw.StockActual}, nil

	case EventCarritoUpdated:
		var ev CarritoUpdated
		var id struct {
			ProductID *intish `json:"producto_id"`
		}
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		if err := json.Unmarshal(payload, &id); err != nil || id.ProductID == nil {
			return nil, fmt.Errorf("decode %s: missing producto_id", name)
		}
		if ev.StockActual == nil && ev.NuevoStock == nil {
			return nil, fmt.Errorf("decode %s: %w", name, ErrMissingStock)
		}
		return ev, nil

	case EventActualizacion:
		var raw struct {
			ProductID  *intish `json:"producto_id"`
			NuevoStock *intish `json:"nuevo_stock"`
		}
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		if raw.ProductID == nil {
			return nil, fmt.Errorf("decode %s: missing producto_id", name)
		}
		if raw.NuevoStock == nil {
			return nil, fmt.Errorf("decode %s: %w", name, ErrMissingStock)
		}
		return Actualizacion{ProductID: *raw.ProductID, NuevoStock: *raw.NuevoStock}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// intish accepts a JSON number or a numeric string.
type intish int

func (i *intish) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	*i = intish(n)
	return nil
}
