package procurement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineRemaining is the matching position of one order line
type LineRemaining struct {
	OrderLineID     uuid.UUID       `json:"orderLineId"`
	LineNo          int             `json:"lineNo"`
	ItemID          uuid.UUID       `json:"itemId"`
	ItemCode        string          `json:"itemCode"`
	Tracked         bool            `json:"tracked"`
	Ordered         decimal.Decimal `json:"ordered"`
	Received        decimal.Decimal `json:"received"`
	Remaining       decimal.Decimal `json:"remaining"`
	Billed          decimal.Decimal `json:"billed"`
	RemainingToBill decimal.Decimal `json:"remainingToBill"`
}

// ReceivingSummary lists what is left to receive and bill on an order
type ReceivingSummary struct {
	PurchaseOrderID uuid.UUID           `json:"purchaseOrderId"`
	Status          PurchaseOrderStatus `json:"status"`
	Lines           []LineRemaining     `json:"lines"`
	FullyReceived   bool                `json:"fullyReceived"`
}

// Line returns the position of an order line
func (s *ReceivingSummary) Line(orderLineID uuid.UUID) (LineRemaining, bool) {
	for _, l := range s.Lines {
		if l.OrderLineID == orderLineID {
			return l, true
		}
	}
	return LineRemaining{}, false
}

// ComputeRemaining derives remaining quantities from posted receipts.
// Draft receipts never reduce what is left to receive. Direct bills reduce what is left to bill.
func ComputeRemaining(order *PurchaseOrder, receipts []*PurchaseReceipt, bills []*PurchaseBill) *ReceivingSummary {
	received := make(map[uuid.UUID]decimal.Decimal, len(order.Lines))
	for _, r := range receipts {
		if !r.IsPosted() {
			continue
		}
		for _, l := range r.Lines {
			if l.OrderLineID != nil {
				received[*l.OrderLineID] = received[*l.OrderLineID].Add(l.Quantity)
			}
		}
	}
	billed := make(map[uuid.UUID]decimal.Decimal, len(order.Lines))
	for _, b := range bills {
		if b.IsReceiptMatched() {
			continue
		}
		for _, l := range b.Lines {
			if l.OrderLineID != nil {
				billed[*l.OrderLineID] = billed[*l.OrderLineID].Add(l.Quantity)
			}
		}
	}

	summary := &ReceivingSummary{
		PurchaseOrderID: order.ID,
		Status:          order.Status,
		Lines:           make([]LineRemaining, 0, len(order.Lines)),
		FullyReceived:   true,
	}
	for _, l := range order.Lines {
		pos := LineRemaining{
			OrderLineID: l.ID,
			LineNo:      l.LineNo,
			ItemID:      l.ItemID,
			ItemCode:    l.ItemCode,
			Tracked:     l.Tracked,
			Ordered:     l.Quantity,
			Received:    received[l.ID],
			Billed:      billed[l.ID],
		}
		pos.Remaining = clampZero(pos.Ordered.Sub(pos.Received))
		pos.RemainingToBill = clampZero(pos.Ordered.Sub(pos.Billed))
		if l.Tracked && pos.Remaining.IsPositive() {
			summary.FullyReceived = false
		}
		summary.Lines = append(summary.Lines, pos)
	}
	return summary
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// RequestedLine asks for a quantity of one order line
type RequestedLine struct {
	OrderLineID uuid.UUID
	Quantity    decimal.Decimal
}

// AllocateReceipt resolves a receipt request against the remaining quantities.
// An empty request takes everything left on the tracked lines.
func AllocateReceipt(order *PurchaseOrder, summary *ReceivingSummary, requested []RequestedLine) ([]Allocation, error) {
	if len(order.TrackedLines()) == 0 {
		return nil, newNoTrackedLinesError()
	}
	if len(requested) == 0 {
		var out []Allocation
		for _, l := range order.TrackedLines() {
			pos, _ := summary.Line(l.ID)
			if pos.Remaining.IsPositive() {
				out = append(out, Allocation{Line: l, Quantity: pos.Remaining})
			}
		}
		if len(out) == 0 {
			return nil, newNothingToReceiveError()
		}
		return out, nil
	}

	out, err := allocate(order, requested, func(l *PurchaseOrderLine, pos LineRemaining) (decimal.Decimal, error) {
		if !l.Tracked {
			return decimal.Zero, newNotTrackedLineError(l)
		}
		return pos.Remaining, nil
	}, summary)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, newNothingToReceiveError()
	}
	return out, nil
}

// AllocateBill resolves a convert-to-bill request. An empty request selects every order line
// with its unbilled quantity; tracked lines are rejected by the bill itself.
func AllocateBill(order *PurchaseOrder, summary *ReceivingSummary, requested []RequestedLine) ([]Allocation, error) {
	if len(requested) == 0 {
		var out []Allocation
		var tracked []int
		for _, l := range order.Lines {
			if l.Tracked {
				tracked = append(tracked, l.LineNo)
				continue
			}
			pos, _ := summary.Line(l.ID)
			if pos.RemainingToBill.IsPositive() {
				out = append(out, Allocation{Line: l, Quantity: pos.RemainingToBill})
			}
		}
		if len(tracked) > 0 {
			return nil, NewTrackedItemRequiresReceiptError(tracked)
		}
		return out, nil
	}

	return allocate(order, requested, func(l *PurchaseOrderLine, pos LineRemaining) (decimal.Decimal, error) {
		return pos.RemainingToBill, nil
	}, summary)
}

func allocate(
	order *PurchaseOrder,
	requested []RequestedLine,
	limit func(*PurchaseOrderLine, LineRemaining) (decimal.Decimal, error),
	summary *ReceivingSummary,
) ([]Allocation, error) {
	merged := make(map[uuid.UUID]decimal.Decimal, len(requested))
	seen := make([]uuid.UUID, 0, len(requested))
	for _, r := range requested {
		if r.Quantity.IsNegative() {
			return nil, newNegativeRequestError(r.OrderLineID)
		}
		if _, ok := merged[r.OrderLineID]; !ok {
			seen = append(seen, r.OrderLineID)
		}
		merged[r.OrderLineID] = merged[r.OrderLineID].Add(r.Quantity)
	}

	var out []Allocation
	for _, id := range seen {
		qty := merged[id]
		line := order.Line(id)
		if line == nil {
			return nil, newUnknownOrderLineError(id)
		}
		pos, _ := summary.Line(id)
		available, err := limit(line, pos)
		if err != nil {
			return nil, err
		}
		if qty.GreaterThan(available) {
			return nil, NewExceedsRemainingQuantityError(line.ID, line.LineNo, qty, available)
		}
		if qty.IsZero() {
			continue
		}
		out = append(out, Allocation{Line: *line, Quantity: qty})
	}
	return out, nil
}
