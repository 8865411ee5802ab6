package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"rostrum/contexts/appeals-desk/recheck-service/ports"
)

// MemoryGateway is the in-process provider fake for local runs and tests.
// A payment verifies when its proof equals "paid:<order_id>".
type MemoryGateway struct {
	mu     sync.Mutex
	orders map[string]ports.Order

	// CreateOrderErr and VerifyErr force gateway failures in tests.
	CreateOrderErr error
	VerifyErr      error
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{orders: make(map[string]ports.Order)}
}

func (g *MemoryGateway) CreateOrder(_ context.Context, amount float64, currency string) (ports.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateOrderErr != nil {
		return ports.Order{}, g.CreateOrderErr
	}
	order := ports.Order{
		OrderID:  "order-" + uuid.NewString(),
		Amount:   amount,
		Currency: currency,
	}
	g.orders[order.OrderID] = order
	return order, nil
}

func (g *MemoryGateway) VerifyPayment(_ context.Context, orderID, paymentID, proof string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.VerifyErr != nil {
		return false, g.VerifyErr
	}
	if _, ok := g.orders[strings.TrimSpace(orderID)]; !ok {
		return false, fmt.Errorf("unknown order %q", orderID)
	}
	if strings.TrimSpace(paymentID) == "" {
		return false, nil
	}
	return strings.TrimSpace(proof) == "paid:"+strings.TrimSpace(orderID), nil
}

// Proof returns the accepted proof string for an order.
func Proof(orderID string) string {
	return "paid:" + strings.TrimSpace(orderID)
}
