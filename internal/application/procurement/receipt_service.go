package procurement

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/erp/ledger/internal/application/command"
	inventoryapp "github.com/erp/ledger/internal/application/inventory"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/procurement"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateReceipt creates a DRAFT receipt from the remaining quantities of an order
func (s *Service) CreateReceipt(ctx context.Context, meta command.Command, orderID uuid.UUID, req CreateReceiptRequest) (*ReceiptResponse, error) {
	order, err := s.reads.PurchaseOrders().FindByIDForTenant(ctx, meta.TenantID, orderID)
	if err != nil {
		return nil, err
	}
	receiptDate := dateOr(req.ReceiptDate, order.OrderDate)

	meta.Action = "purchase_receipt.create"
	meta.EntityType = procurement.AggregateTypePurchaseReceipt
	meta.Request = struct {
		OrderID uuid.UUID `json:"purchaseOrderId"`
		CreateReceiptRequest
	}{orderID, req}
	meta.LockKeys = []string{order.LockKey()}
	meta.EffectiveDates = []time.Time{receiptDate}

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*ReceiptResponse, error) {
		order, err := tx.PurchaseOrders().FindByIDForUpdate(ctx, meta.TenantID, orderID)
		if err != nil {
			return nil, err
		}
		receipt, err := s.draftReceipt(ctx, tx, order, receiptDate, toRequestedLines(req.Lines))
		if err != nil {
			return nil, err
		}
		tx.SetEntity(receipt.ID)
		tx.AddMetadata("purchaseOrderId", orderID.String())
		tx.AddMetadata("receiptNumber", receipt.ReceiptNumber)
		tx.Collect(receipt)
		return ToReceiptResponse(receipt), nil
	})
	return resp, err
}

// GetReceipt returns a goods receipt
func (s *Service) GetReceipt(ctx context.Context, tenantID, receiptID uuid.UUID) (*ReceiptResponse, error) {
	receipt, err := s.reads.PurchaseReceipts().FindByIDForTenant(ctx, tenantID, receiptID)
	if err != nil {
		return nil, err
	}
	return ToReceiptResponse(receipt), nil
}

// PostReceipt posts a DRAFT receipt: stock moves for its lines and Dr Inventory / Cr GRNI
func (s *Service) PostReceipt(ctx context.Context, meta command.Command, receiptID uuid.UUID) (*PostReceiptResponse, error) {
	draft, err := s.reads.PurchaseReceipts().FindByIDForTenant(ctx, meta.TenantID, receiptID)
	if err != nil {
		return nil, err
	}

	meta.Action = "purchase_receipt.post"
	meta.EntityType = procurement.AggregateTypePurchaseReceipt
	meta.EntityID = receiptID
	meta.Request = struct {
		ReceiptID uuid.UUID `json:"receiptId"`
	}{receiptID}
	meta.LockKeys = receiptLockKeys(draft)
	meta.EffectiveDates = []time.Time{draft.ReceiptDate}

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*PostReceiptResponse, error) {
		var order *procurement.PurchaseOrder
		if draft.PurchaseOrderID != nil {
			// the order row is locked before the receipt, same as every other matching command
			if order, err = tx.PurchaseOrders().FindByIDForUpdate(ctx, meta.TenantID, *draft.PurchaseOrderID); err != nil {
				return nil, err
			}
		}
		receipt, err := tx.PurchaseReceipts().FindByIDForUpdate(ctx, meta.TenantID, receiptID)
		if err != nil {
			return nil, err
		}
		if err := receipt.EnsurePostable(); err != nil {
			return nil, err
		}
		if order != nil {
			if err := s.checkReceiptAgainstOrder(ctx, tx, order, receipt); err != nil {
				return nil, err
			}
		}

		moves, err := s.postReceipt(ctx, tx, receipt)
		if err != nil {
			return nil, err
		}
		tx.AddMetadata("receiptNumber", receipt.ReceiptNumber)
		tx.AddMetadata("total", receipt.Total.StringFixed(2))
		tx.Collect(receipt)
		return &PostReceiptResponse{
			Receipt:        ToReceiptResponse(receipt),
			JournalEntryID: receipt.JournalEntryID,
			StockMoves:     moves,
		}, nil
	})
	return resp, err
}

// ReceiveAndBill receives the requested quantities, posts the receipt and drafts the matching bill
func (s *Service) ReceiveAndBill(ctx context.Context, meta command.Command, orderID uuid.UUID, req ReceiveAndBillRequest) (*ReceiveAndBillResponse, error) {
	order, err := s.reads.PurchaseOrders().FindByIDForTenant(ctx, meta.TenantID, orderID)
	if err != nil {
		return nil, err
	}
	receiptDate := dateOr(req.ReceiptDate, order.OrderDate)
	billDate := dateOr(req.BillDate, receiptDate)

	meta.Action = "purchase_order.receive_and_bill"
	meta.EntityType = procurement.AggregateTypePurchaseOrder
	meta.EntityID = orderID
	meta.Request = struct {
		OrderID uuid.UUID `json:"purchaseOrderId"`
		ReceiveAndBillRequest
	}{orderID, req}
	meta.LockKeys = append([]string{order.LockKey()}, orderStockLockKeys(order)...)
	meta.EffectiveDates = []time.Time{receiptDate, billDate}

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*ReceiveAndBillResponse, error) {
		order, err := tx.PurchaseOrders().FindByIDForUpdate(ctx, meta.TenantID, orderID)
		if err != nil {
			return nil, err
		}
		receipt, err := s.draftReceipt(ctx, tx, order, receiptDate, toRequestedLines(req.Lines))
		if err != nil {
			return nil, err
		}
		moves, err := s.postReceipt(ctx, tx, receipt)
		if err != nil {
			return nil, err
		}
		if err := verifyPostedTotal(receipt, moves); err != nil {
			return nil, err
		}

		number, err := tx.Sequences().Next(ctx, meta.TenantID, shared.SequencePurchaseBill)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate bill number: %w", err)
		}
		bill, err := procurement.NewBillFromReceipt(receipt, number, billDate, s.accounts.PaymentTermDays, s.accounts.InventoryAccount)
		if err != nil {
			return nil, err
		}
		if err := tx.PurchaseBills().Save(ctx, bill); err != nil {
			return nil, err
		}

		tx.AddMetadata("receiptId", receipt.ID.String())
		tx.AddMetadata("billId", bill.ID.String())
		tx.AddMetadata("total", receipt.Total.StringFixed(2))
		tx.Collect(receipt, bill)
		return &ReceiveAndBillResponse{
			Receipt:        ToReceiptResponse(receipt),
			Bill:           ToBillResponse(bill),
			JournalEntryID: receipt.JournalEntryID,
			StockMoves:     moves,
		}, nil
	})
	return resp, err
}

// draftReceipt allocates the request against what is left on the order and saves a DRAFT receipt
func (s *Service) draftReceipt(ctx context.Context, tx *command.Tx, order *procurement.PurchaseOrder, date time.Time, requested []procurement.RequestedLine) (*procurement.PurchaseReceipt, error) {
	if err := order.EnsureOpenForMatching("receive"); err != nil {
		return nil, err
	}
	summary, err := summarize(ctx, tx, order)
	if err != nil {
		return nil, err
	}
	allocations, err := procurement.AllocateReceipt(order, summary, requested)
	if err != nil {
		return nil, err
	}
	number, err := tx.Sequences().Next(ctx, order.TenantID, shared.SequencePurchaseReceipt)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate receipt number: %w", err)
	}
	receipt, err := procurement.NewReceiptFromOrder(order, number, date, allocations)
	if err != nil {
		return nil, err
	}
	if err := tx.PurchaseReceipts().Save(ctx, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// checkReceiptAgainstOrder re-validates a draft's quantities against the posted receipts,
// since several drafts may have been cut from the same remaining quantity.
func (s *Service) checkReceiptAgainstOrder(ctx context.Context, tx *command.Tx, order *procurement.PurchaseOrder, receipt *procurement.PurchaseReceipt) error {
	if err := order.EnsureOpenForMatching("post receipt for"); err != nil {
		return err
	}
	summary, err := summarize(ctx, tx, order)
	if err != nil {
		return err
	}
	requested := make([]procurement.RequestedLine, 0, len(receipt.Lines))
	for _, l := range receipt.Lines {
		if l.OrderLineID != nil {
			requested = append(requested, procurement.RequestedLine{OrderLineID: *l.OrderLineID, Quantity: l.Quantity})
		}
	}
	if len(requested) == 0 {
		return nil
	}
	_, err = procurement.AllocateReceipt(order, summary, requested)
	return err
}

// postReceipt writes the GRNI entry, then one IN move per line, then marks the receipt POSTED
func (s *Service) postReceipt(ctx context.Context, tx *command.Tx, receipt *procurement.PurchaseReceipt) ([]StockMoveResponse, error) {
	if err := receipt.EnsurePostable(); err != nil {
		return nil, err
	}

	var entryID *uuid.UUID
	if receipt.Total.IsPositive() {
		sourceID := receipt.ID
		entry, err := s.posting.Post(ctx, tx, ledgerapp.PostingRequest{
			TenantID:    receipt.TenantID,
			Date:        receipt.ReceiptDate,
			Description: "Goods received " + receipt.ReceiptNumber,
			SourceType:  ledger.SourcePurchaseReceipt,
			SourceID:    &sourceID,
			System:      true,
			Lines: []ledger.LineInput{
				{AccountCode: s.accounts.InventoryAccount, Debit: receipt.Total, Memo: receipt.ReceiptNumber},
				{AccountCode: s.accounts.GRNIAccount, Credit: receipt.Total, Memo: receipt.ReceiptNumber},
			},
		})
		if err != nil {
			return nil, err
		}
		entryID = &entry.ID
	}

	// ledger rows are locked in key order
	lines := slices.Clone(receipt.Lines)
	slices.SortStableFunc(lines, func(a, b procurement.PurchaseReceiptLine) int {
		return strings.Compare(receiptLineKey(receipt, a).LockKey(), receiptLineKey(receipt, b).LockKey())
	})

	moves := make([]StockMoveResponse, 0, len(lines))
	for _, line := range lines {
		lineID := line.ID
		total := line.LineTotal
		result, err := s.costing.ApplyStockMove(ctx, tx, inventory.MoveRequest{
			TenantID:        receipt.TenantID,
			ItemID:          line.ItemID,
			LocationID:      receipt.LocationID,
			MoveDate:        receipt.ReceiptDate,
			Direction:       inventory.DirectionIn,
			Quantity:        line.Quantity,
			UnitCostApplied: line.NetUnitCost(),
			TotalCost:       &total,
			SourceType:      inventory.SourcePurchaseReceipt,
			SourceID:        receipt.ID,
			SourceLineID:    &lineID,
			JournalEntryID:  entryID,
		})
		if err != nil {
			return nil, err
		}
		moves = append(moves, toStockMoveResponse(result))
	}

	if err := receipt.Post(entryID); err != nil {
		return nil, err
	}
	if err := tx.PurchaseReceipts().Save(ctx, receipt); err != nil {
		return nil, err
	}

	s.logger.Info("purchase receipt posted",
		zap.String("tenant_id", receipt.TenantID.String()),
		zap.String("receipt_id", receipt.ID.String()),
		zap.String("receipt_number", receipt.ReceiptNumber),
		zap.String("total", receipt.Total.StringFixed(2)),
		zap.Int("stock_moves", len(moves)),
	)
	return moves, nil
}

// verifyPostedTotal cross-checks the value put into stock with the receipt total
func verifyPostedTotal(receipt *procurement.PurchaseReceipt, moves []StockMoveResponse) error {
	if len(moves) == 0 {
		return nil
	}
	values := make([]decimal.Decimal, len(moves))
	for i, m := range moves {
		values[i] = m.TotalCostApplied
	}
	if posted := valueobject.SumMoney(values...); !valueobject.MoneyEqual(posted, receipt.Total) {
		return procurement.NewRoundingMismatchError(receipt.Total, posted)
	}
	return nil
}

func receiptLineKey(r *procurement.PurchaseReceipt, l procurement.PurchaseReceiptLine) inventory.CostKey {
	return inventory.CostKey{TenantID: r.TenantID, ItemID: l.ItemID, LocationID: r.LocationID}
}

// receiptLockKeys returns the order key followed by the stock keys of the receipt lines
func receiptLockKeys(r *procurement.PurchaseReceipt) []string {
	var keys []string
	if r.PurchaseOrderID != nil {
		keys = append(keys, procurement.OrderLockKey(r.TenantID, *r.PurchaseOrderID))
	}
	items := make([]uuid.UUID, len(r.Lines))
	for i, l := range r.Lines {
		items[i] = l.ItemID
	}
	return append(keys, stockLockKeys(r.TenantID, r.LocationID, items)...)
}

// orderStockLockKeys returns the stock keys of every tracked order line
func orderStockLockKeys(o *procurement.PurchaseOrder) []string {
	tracked := o.TrackedLines()
	items := make([]uuid.UUID, len(tracked))
	for i, l := range tracked {
		items[i] = l.ItemID
	}
	return stockLockKeys(o.TenantID, o.LocationID, items)
}

func toStockMoveResponse(r *inventoryapp.MoveResult) StockMoveResponse {
	m := r.Move
	out := StockMoveResponse{
		ID:               m.ID,
		ItemID:           m.ItemID,
		LocationID:       m.LocationID,
		MoveDate:         m.MoveDate.Format(time.DateOnly),
		Direction:        string(m.Direction),
		Quantity:         m.Quantity,
		UnitCostApplied:  m.UnitCostApplied,
		TotalCostApplied: m.TotalCostApplied,
	}
	if r.RequiresRecalcFromDate != nil {
		from := r.RequiresRecalcFromDate.Format(time.DateOnly)
		out.RecalcFromDate = &from
	}
	return out
}
