package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/application/command"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/procurement"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConvertToBill drafts a bill straight from non-inventory order lines
func (s *Service) ConvertToBill(ctx context.Context, meta command.Command, orderID uuid.UUID, req ConvertToBillRequest) (*BillResponse, error) {
	order, err := s.reads.PurchaseOrders().FindByIDForTenant(ctx, meta.TenantID, orderID)
	if err != nil {
		return nil, err
	}
	billDate := dateOr(req.BillDate, order.OrderDate)

	meta.Action = "purchase_order.convert_to_bill"
	meta.EntityType = procurement.AggregateTypePurchaseBill
	meta.Request = struct {
		OrderID uuid.UUID `json:"purchaseOrderId"`
		ConvertToBillRequest
	}{orderID, req}
	meta.LockKeys = []string{order.LockKey()}
	meta.EffectiveDates = []time.Time{billDate}

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*BillResponse, error) {
		order, err := tx.PurchaseOrders().FindByIDForUpdate(ctx, meta.TenantID, orderID)
		if err != nil {
			return nil, err
		}
		if err := order.EnsureOpenForMatching("convert to bill"); err != nil {
			return nil, err
		}
		summary, err := summarize(ctx, tx, order)
		if err != nil {
			return nil, err
		}
		allocations, err := procurement.AllocateBill(order, summary, toRequestedLines(req.Lines))
		if err != nil {
			return nil, err
		}
		number, err := tx.Sequences().Next(ctx, meta.TenantID, shared.SequencePurchaseBill)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate bill number: %w", err)
		}
		bill, err := procurement.NewBillFromOrderLines(order, number, billDate, s.accounts.PaymentTermDays, allocations)
		if err != nil {
			return nil, err
		}
		if err := tx.PurchaseBills().Save(ctx, bill); err != nil {
			return nil, err
		}
		tx.SetEntity(bill.ID)
		tx.AddMetadata("purchaseOrderId", orderID.String())
		tx.AddMetadata("billNumber", bill.BillNumber)
		tx.AddMetadata("total", bill.Total.StringFixed(2))
		tx.Collect(bill)
		return ToBillResponse(bill), nil
	})
	return resp, err
}

// GetBill returns a vendor bill
func (s *Service) GetBill(ctx context.Context, tenantID, billID uuid.UUID) (*BillResponse, error) {
	bill, err := s.reads.PurchaseBills().FindByIDForTenant(ctx, tenantID, billID)
	if err != nil {
		return nil, err
	}
	return ToBillResponse(bill), nil
}

// PostBill recognizes the payable. Receipt-matched bills clear GRNI; direct bills
// debit the expense accounts of their lines.
func (s *Service) PostBill(ctx context.Context, meta command.Command, billID uuid.UUID) (*BillResponse, error) {
	draft, err := s.reads.PurchaseBills().FindByIDForTenant(ctx, meta.TenantID, billID)
	if err != nil {
		return nil, err
	}

	meta.Action = "purchase_bill.post"
	meta.EntityType = procurement.AggregateTypePurchaseBill
	meta.EntityID = billID
	meta.Request = struct {
		BillID uuid.UUID `json:"billId"`
	}{billID}
	meta.LockKeys = billLockKeys(draft)
	meta.EffectiveDates = []time.Time{draft.BillDate}

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*BillResponse, error) {
		bill, err := tx.PurchaseBills().FindByIDForUpdate(ctx, meta.TenantID, billID)
		if err != nil {
			return nil, err
		}
		if err := bill.EnsurePostable(); err != nil {
			return nil, err
		}

		var entryID *uuid.UUID
		if bill.Total.IsPositive() {
			sourceID := bill.ID
			entry, err := s.posting.Post(ctx, tx, ledgerapp.PostingRequest{
				TenantID:    bill.TenantID,
				Date:        bill.BillDate,
				Description: "Vendor bill " + bill.BillNumber,
				SourceType:  ledger.SourcePurchaseBill,
				SourceID:    &sourceID,
				System:      bill.IsReceiptMatched(),
				Lines:       s.billEntryLines(bill),
			})
			if err != nil {
				return nil, err
			}
			entryID = &entry.ID
		}
		if err := bill.Post(entryID); err != nil {
			return nil, err
		}
		if err := tx.PurchaseBills().Save(ctx, bill); err != nil {
			return nil, err
		}

		tx.AddMetadata("billNumber", bill.BillNumber)
		tx.AddMetadata("total", bill.Total.StringFixed(2))
		tx.Collect(bill)
		s.logger.Info("purchase bill posted",
			zap.String("tenant_id", bill.TenantID.String()),
			zap.String("bill_id", bill.ID.String()),
			zap.String("bill_number", bill.BillNumber),
			zap.Bool("receipt_matched", bill.IsReceiptMatched()),
		)
		return ToBillResponse(bill), nil
	})
	return resp, err
}

// RecordPayment applies an externally settled payment to a posted bill
func (s *Service) RecordPayment(ctx context.Context, meta command.Command, billID uuid.UUID, req RecordPaymentRequest) (*BillResponse, error) {
	draft, err := s.reads.PurchaseBills().FindByIDForTenant(ctx, meta.TenantID, billID)
	if err != nil {
		return nil, err
	}
	paymentDate := dateOr(req.PaymentDate, time.Now().UTC())

	meta.Action = "purchase_bill.record_payment"
	meta.EntityType = procurement.AggregateTypePurchaseBill
	meta.EntityID = billID
	meta.Request = struct {
		BillID uuid.UUID `json:"billId"`
		RecordPaymentRequest
	}{billID, req}
	meta.LockKeys = billLockKeys(draft)
	meta.EffectiveDates = []time.Time{paymentDate}

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*BillResponse, error) {
		bill, err := tx.PurchaseBills().FindByIDForUpdate(ctx, meta.TenantID, billID)
		if err != nil {
			return nil, err
		}
		if err := bill.RecordPayment(req.Amount); err != nil {
			return nil, err
		}
		if err := tx.PurchaseBills().Save(ctx, bill); err != nil {
			return nil, err
		}
		tx.AddMetadata("amount", req.Amount.StringFixed(2))
		tx.AddMetadata("paymentDate", paymentDate.Format(time.DateOnly))
		if req.Reference != "" {
			tx.AddMetadata("reference", req.Reference)
		}
		tx.Collect(bill)
		return ToBillResponse(bill), nil
	})
	return resp, err
}

// billEntryLines builds Dr GRNI (or the line accounts) / Cr AP
func (s *Service) billEntryLines(bill *procurement.PurchaseBill) []ledger.LineInput {
	memo := bill.BillNumber
	if bill.IsReceiptMatched() {
		return []ledger.LineInput{
			{AccountCode: s.accounts.GRNIAccount, Debit: bill.Total, Memo: memo},
			{AccountCode: s.accounts.PayableAccount, Credit: bill.Total, Memo: memo},
		}
	}
	codes, amounts := bill.AmountsByAccount()
	lines := make([]ledger.LineInput, 0, len(codes)+1)
	for _, code := range codes {
		if amounts[code].IsZero() {
			continue
		}
		lines = append(lines, ledger.LineInput{AccountCode: code, Debit: amounts[code], Memo: memo})
	}
	return append(lines, ledger.LineInput{AccountCode: s.accounts.PayableAccount, Credit: bill.Total, Memo: memo})
}

func billLockKeys(b *procurement.PurchaseBill) []string {
	if b.PurchaseOrderID == nil {
		return nil
	}
	return []string{procurement.OrderLockKey(b.TenantID, *b.PurchaseOrderID)}
}
