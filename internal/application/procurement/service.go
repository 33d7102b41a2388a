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
	"github.com/erp/ledger/internal/domain/procurement"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountingConfig holds the accounts purchasing posts to
type AccountingConfig struct {
	InventoryAccount string
	GRNIAccount      string
	PayableAccount   string
	PaymentTermDays  int
}

// Service handles purchase orders, goods receipts and vendor bills
type Service struct {
	executor *command.Executor
	reads    command.Repositories
	posting  *ledgerapp.PostingService
	costing  *inventoryapp.CostingService
	accounts AccountingConfig
	logger   *zap.Logger
}

// NewService creates a new procurement Service.
// reads serves lookups done before a command takes its locks.
func NewService(
	executor *command.Executor,
	reads command.Repositories,
	posting *ledgerapp.PostingService,
	costing *inventoryapp.CostingService,
	accounts AccountingConfig,
	logger *zap.Logger,
) *Service {
	if accounts.PaymentTermDays <= 0 {
		accounts.PaymentTermDays = 30
	}
	return &Service{
		executor: executor,
		reads:    reads,
		posting:  posting,
		costing:  costing,
		accounts: accounts,
		logger:   logger,
	}
}

// Create creates a DRAFT purchase order
func (s *Service) Create(ctx context.Context, meta command.Command, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	meta.Action = "purchase_order.create"
	meta.EntityType = procurement.AggregateTypePurchaseOrder
	meta.Request = req
	meta.EffectiveDates = []time.Time{req.OrderDate}

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*PurchaseOrderResponse, error) {
		if _, err := tx.Locations().FindByIDForTenant(ctx, meta.TenantID, req.LocationID); err != nil {
			return nil, err
		}
		lines, err := resolveLines(ctx, tx, meta.TenantID, req.Lines)
		if err != nil {
			return nil, err
		}
		number, err := tx.Sequences().Next(ctx, meta.TenantID, shared.SequencePurchaseOrder)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate order number: %w", err)
		}
		order, err := procurement.NewPurchaseOrder(meta.TenantID, number, req.VendorID, req.VendorName,
			req.LocationID, req.OrderDate, currencyOf(req.Currency), lines)
		if err != nil {
			return nil, err
		}
		order.Notes = req.Notes
		if err := tx.PurchaseOrders().Save(ctx, order); err != nil {
			return nil, err
		}
		tx.SetEntity(order.ID)
		tx.AddMetadata("orderNumber", order.OrderNumber)
		tx.AddMetadata("total", order.Total.StringFixed(2))
		tx.Collect(order)
		return ToPurchaseOrderResponse(order), nil
	})
	return resp, err
}

// GetByID returns a purchase order
func (s *Service) GetByID(ctx context.Context, tenantID, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.reads.PurchaseOrders().FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	return ToPurchaseOrderResponse(order), nil
}

// Update edits a DRAFT order, or an APPROVED one nothing references yet
func (s *Service) Update(ctx context.Context, meta command.Command, orderID uuid.UUID, req UpdatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	var moved []time.Time
	if req.OrderDate != nil {
		moved = append(moved, *req.OrderDate)
	}
	return s.mutateOrder(ctx, meta, orderID, "purchase_order.update", req, moved,
		func(ctx context.Context, tx *command.Tx, order *procurement.PurchaseOrder) error {
			linked, err := tx.PurchaseOrders().CountLinkedDocuments(ctx, meta.TenantID, orderID)
			if err != nil {
				return err
			}
			if err := order.CanEdit(linked); err != nil {
				return err
			}
			in := procurement.UpdateInput{
				VendorName: req.VendorName,
				LocationID: req.LocationID,
				OrderDate:  req.OrderDate,
				Notes:      req.Notes,
			}
			if req.LocationID != nil {
				if _, err := tx.Locations().FindByIDForTenant(ctx, meta.TenantID, *req.LocationID); err != nil {
					return err
				}
			}
			if req.Lines != nil {
				if in.Lines, err = resolveLines(ctx, tx, meta.TenantID, req.Lines); err != nil {
					return err
				}
			}
			return order.Update(in, linked)
		})
}

// Approve moves a DRAFT order to APPROVED
func (s *Service) Approve(ctx context.Context, meta command.Command, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	return s.mutateOrder(ctx, meta, orderID, "purchase_order.approve", nil, nil,
		func(_ context.Context, _ *command.Tx, order *procurement.PurchaseOrder) error {
			return order.Approve()
		})
}

// Cancel moves a DRAFT or APPROVED order to CANCELLED. Posted receipts and bills stay as they are.
func (s *Service) Cancel(ctx context.Context, meta command.Command, orderID uuid.UUID, req CancelPurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	return s.mutateOrder(ctx, meta, orderID, "purchase_order.cancel", req, nil,
		func(_ context.Context, tx *command.Tx, order *procurement.PurchaseOrder) error {
			if req.Reason != "" {
				tx.AddMetadata("reason", req.Reason)
			}
			return order.Cancel(req.Reason)
		})
}

// Delete removes an order nothing references
func (s *Service) Delete(ctx context.Context, meta command.Command, orderID uuid.UUID) error {
	dates, err := s.orderDates(ctx, meta.TenantID, orderID)
	if err != nil {
		return err
	}
	meta.Action = "purchase_order.delete"
	meta.EntityType = procurement.AggregateTypePurchaseOrder
	meta.EntityID = orderID
	meta.Request = struct {
		OrderID uuid.UUID `json:"purchaseOrderId"`
	}{orderID}
	meta.LockKeys = []string{procurement.OrderLockKey(meta.TenantID, orderID)}
	meta.EffectiveDates = dates

	_, _, err = command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (struct{}, error) {
		order, err := tx.PurchaseOrders().FindByIDForUpdate(ctx, meta.TenantID, orderID)
		if err != nil {
			return struct{}{}, err
		}
		if err := checkOrderDate(order, dates); err != nil {
			return struct{}{}, err
		}
		linked, err := tx.PurchaseOrders().CountLinkedDocuments(ctx, meta.TenantID, orderID)
		if err != nil {
			return struct{}{}, err
		}
		if err := order.EnsureDeletable(linked); err != nil {
			return struct{}{}, err
		}
		order.MarkDeleted()
		if err := tx.PurchaseOrders().Delete(ctx, meta.TenantID, orderID); err != nil {
			return struct{}{}, err
		}
		tx.AddMetadata("orderNumber", order.OrderNumber)
		tx.Collect(order)
		return struct{}{}, nil
	})
	return err
}

// ReceivingSummary returns ordered, received and billed quantities per line
func (s *Service) ReceivingSummary(ctx context.Context, tenantID, orderID uuid.UUID) (*procurement.ReceivingSummary, error) {
	order, err := s.reads.PurchaseOrders().FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	return summarize(ctx, s.reads, order)
}

// mutateOrder runs an in-place state change on a locked order
func (s *Service) mutateOrder(
	ctx context.Context,
	meta command.Command,
	orderID uuid.UUID,
	action string,
	req any,
	moved []time.Time,
	mutate func(ctx context.Context, tx *command.Tx, order *procurement.PurchaseOrder) error,
) (*PurchaseOrderResponse, error) {
	dates, err := s.orderDates(ctx, meta.TenantID, orderID)
	if err != nil {
		return nil, err
	}
	meta.Action = action
	meta.EntityType = procurement.AggregateTypePurchaseOrder
	meta.EntityID = orderID
	meta.Request = struct {
		OrderID uuid.UUID `json:"purchaseOrderId"`
		Body    any       `json:"body,omitempty"`
	}{orderID, req}
	meta.LockKeys = []string{procurement.OrderLockKey(meta.TenantID, orderID)}
	meta.EffectiveDates = append(dates, moved...)

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*PurchaseOrderResponse, error) {
		order, err := tx.PurchaseOrders().FindByIDForUpdate(ctx, meta.TenantID, orderID)
		if err != nil {
			return nil, err
		}
		if err := checkOrderDate(order, dates); err != nil {
			return nil, err
		}
		from := order.Status
		if err := mutate(ctx, tx, order); err != nil {
			return nil, err
		}
		if err := tx.PurchaseOrders().Save(ctx, order); err != nil {
			return nil, err
		}
		if from != order.Status {
			tx.AddMetadata("fromStatus", from.String())
			tx.AddMetadata("toStatus", order.Status.String())
		}
		tx.Collect(order)
		return ToPurchaseOrderResponse(order), nil
	})
	return resp, err
}

// orderDates reads the order date the period guard checks before any lock is taken.
// A missing order yields no dates so a replayed delete still returns its stored result.
func (s *Service) orderDates(ctx context.Context, tenantID, orderID uuid.UUID) ([]time.Time, error) {
	order, err := s.reads.PurchaseOrders().FindByIDForTenant(ctx, tenantID, orderID)
	if shared.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []time.Time{order.OrderDate}, nil
}

// checkOrderDate rejects a command whose order was redated after the guard ran
func checkOrderDate(order *procurement.PurchaseOrder, guarded []time.Time) error {
	if len(guarded) == 0 || slices.ContainsFunc(guarded, order.OrderDate.Equal) {
		return nil
	}
	return shared.ErrConcurrencyConflict
}

// resolveLines snapshots the catalog items into order line inputs
func resolveLines(ctx context.Context, tx *command.Tx, tenantID uuid.UUID, in []OrderLineInput) ([]procurement.LineInput, error) {
	ids := make([]uuid.UUID, 0, len(in))
	for _, l := range in {
		ids = append(ids, l.ItemID)
	}
	items, err := tx.Items().FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	out := make([]procurement.LineInput, 0, len(in))
	for i, l := range in {
		item, ok := items[l.ItemID]
		if !ok {
			return nil, shared.NewDomainError(inventory.CodeItemNotFound, fmt.Sprintf("Line %d: item not found", i+1)).
				WithDetails(map[string]any{"lineNo": i + 1, "itemId": l.ItemID.String()})
		}
		if !item.IsActive {
			return nil, shared.NewDomainError(procurement.CodeInvalidLine, fmt.Sprintf("Line %d: item %s is inactive", i+1, item.Code)).
				WithDetails(map[string]any{"lineNo": i + 1, "itemId": l.ItemID.String()})
		}
		out = append(out, procurement.LineInput{
			ItemID:             item.ID,
			ItemCode:           item.Code,
			ItemName:           item.Name,
			Tracked:            item.Tracked,
			ExpenseAccountCode: item.ExpenseAccountCode,
			Quantity:           l.Quantity,
			UnitCost:           l.UnitCost,
			Discount:           l.Discount,
			Description:        l.Description,
		})
	}
	return out, nil
}

// summarize computes remaining quantities from the order's receipts and bills
func summarize(ctx context.Context, repos command.Repositories, order *procurement.PurchaseOrder) (*procurement.ReceivingSummary, error) {
	receipts, err := repos.PurchaseReceipts().ListByOrder(ctx, order.TenantID, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipts: %w", err)
	}
	bills, err := repos.PurchaseBills().ListByOrder(ctx, order.TenantID, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bills: %w", err)
	}
	return procurement.ComputeRemaining(order, receipts, bills), nil
}

// stockLockKeys returns the ledger keys of the given lines at a location
func stockLockKeys(tenantID, locationID uuid.UUID, itemIDs []uuid.UUID) []string {
	keys := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		keys = append(keys, inventory.CostKey{TenantID: tenantID, ItemID: id, LocationID: locationID}.LockKey())
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

func currencyOf(code string) valueobject.Currency {
	if code == "" {
		return valueobject.DefaultCurrency
	}
	return valueobject.Currency(strings.ToUpper(code))
}

func dateOr(d *time.Time, fallback time.Time) time.Time {
	if d != nil && !d.IsZero() {
		return *d
	}
	return fallback
}
