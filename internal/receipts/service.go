package receipts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk/internal/catalog"
	"github.com/tilldesk/tilldesk/internal/stock"
	"github.com/tilldesk/tilldesk/internal/suppliers"
)

// ProductPort is the slice of the catalog the apply step needs.
type ProductPort interface {
	ListProducts(ctx context.Context, filters catalog.ListFilters) ([]catalog.Product, error)
	CreateProduct(ctx context.Context, in catalog.CreateProductInput) (catalog.Product, error)
}

// StockPort is the slice of the stock layer the apply step needs.
type StockPort interface {
	AddStock(ctx context.Context, in stock.AddStockInput) (stock.AddStockResult, error)
	RecordPrice(ctx context.Context, in stock.AddStockInput) error
}

// SupplierPort resolves receipt supplier names against the registry.
type SupplierPort interface {
	List(ctx context.Context, activeOnly bool) ([]suppliers.Supplier, error)
	Create(ctx context.Context, in suppliers.Input) (suppliers.Supplier, error)
}

// Enqueuer submits async import jobs.
type Enqueuer interface {
	EnqueueReceiptImport(ctx context.Context, importID string, in ExtractInput, mode ImportMode) error
}

// Service applies extracted receipts to the catalog and stock.
type Service struct {
	logger    *slog.Logger
	repo      Repository
	extractor Extractor
	products  ProductPort
	stock     StockPort
	suppliers SupplierPort
	enqueuer  Enqueuer
	now       func() time.Time
}

// NewService builds Service. The enqueuer may be nil, which disables the
// async path (imports then run inline).
func NewService(logger *slog.Logger, repo Repository, extractor Extractor, products ProductPort, stockPort StockPort, supplierPort SupplierPort, enqueuer Enqueuer) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		extractor: extractor,
		products:  products,
		stock:     stockPort,
		suppliers: supplierPort,
		enqueuer:  enqueuer,
		now:       time.Now,
	}
}

// Apply runs an extracted receipt against the catalog: items match an
// existing product by name or create a new one, every usable item leaves a
// purchase price record, and restock mode also adds stock. Unusable items
// are reported as skipped rather than failing the batch.
func (s *Service) Apply(ctx context.Context, extracted ExtractedReceipt, mode ImportMode, actorID string) ([]ItemOutcome, error) {
	if !ValidImportMode(mode) {
		return nil, ErrInvalidMode
	}
	if len(extracted.Items) == 0 {
		return nil, ErrNoItems
	}

	supplierID := s.resolveSupplier(ctx, extracted.SupplierName)

	products, err := s.products.ListProducts(ctx, catalog.ListFilters{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	outcomes := make([]ItemOutcome, 0, len(extracted.Items))
	for _, item := range extracted.Items {
		outcome := s.applyItem(ctx, products, item, mode, supplierID, actorID)
		if outcome.Action == ActionCreated && outcome.ProductID != "" {
			// Keep the in-memory view current so a duplicated line on the
			// same receipt matches instead of creating twice.
			products = append(products, catalog.Product{ID: outcome.ProductID, Name: item.Name, IsActive: true})
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (s *Service) applyItem(ctx context.Context, products []catalog.Product, item ExtractedItem, mode ImportMode, supplierID, actorID string) ItemOutcome {
	name := strings.TrimSpace(item.Name)
	if name == "" || item.Quantity <= 0 {
		return ItemOutcome{Name: item.Name, Action: ActionSkipped, Reason: "missing name or quantity"}
	}
	if item.UnitPrice.IsNegative() {
		return ItemOutcome{Name: name, Action: ActionSkipped, Reason: "negative unit price"}
	}

	outcome := ItemOutcome{Name: name, Quantity: item.Quantity, UnitCost: item.UnitPrice}

	if matched, ok := MatchProduct(products, name); ok {
		outcome.ProductID = matched.ID
		outcome.Action = ActionMatched
	} else {
		created, err := s.products.CreateProduct(ctx, catalog.CreateProductInput{
			Name:        name,
			SKU:         newImportedSKU(),
			Unit:        item.Unit,
			RetailPrice: item.UnitPrice,
			CostPrice:   item.UnitPrice,
			ItemType:    catalog.ItemTypeUnit,
		})
		if err != nil {
			s.logger.Warn("receipt item create product", slog.String("name", name), slog.Any("error", err))
			return ItemOutcome{Name: name, Action: ActionSkipped, Reason: "product creation failed"}
		}
		outcome.ProductID = created.ID
		outcome.Action = ActionCreated
	}

	in := stock.AddStockInput{
		ProductID:  outcome.ProductID,
		Quantity:   item.Quantity,
		UnitCost:   item.UnitPrice,
		SupplierID: supplierID,
		Source:     stock.SourceReceipt,
		ActorID:    actorID,
	}
	if mode == ModeRestock {
		if _, err := s.stock.AddStock(ctx, in); err != nil {
			s.logger.Warn("receipt item restock", slog.String("name", name), slog.Any("error", err))
			outcome.Reason = "restock failed"
			return outcome
		}
		outcome.Restocked = true
		return outcome
	}
	if err := s.stock.RecordPrice(ctx, in); err != nil {
		s.logger.Warn("receipt item price record", slog.String("name", name), slog.Any("error", err))
		outcome.Reason = "price record failed"
	}
	return outcome
}

// StartImport records a pending import and queues it for extraction. When
// no queue is configured the import runs inline before returning.
func (s *Service) StartImport(ctx context.Context, in ExtractInput, mode ImportMode, actorID string) (Import, error) {
	if !ValidImportMode(mode) {
		return Import{}, ErrInvalidMode
	}
	imp := Import{
		ID:        uuid.NewString(),
		Mode:      mode,
		Status:    StatusPending,
		CreatedBy: actorID,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, imp); err != nil {
		return Import{}, fmt.Errorf("create import: %w", err)
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueReceiptImport(ctx, imp.ID, in, mode); err != nil {
			return Import{}, fmt.Errorf("enqueue import: %w", err)
		}
		return imp, nil
	}
	return s.runImport(ctx, imp, in)
}

// ProcessImport runs a queued import to completion. It is the worker-side
// entry point for the receipt import task.
func (s *Service) ProcessImport(ctx context.Context, importID string, in ExtractInput) error {
	imp, err := s.repo.Get(ctx, importID)
	if err != nil {
		return err
	}
	if imp.Status != StatusPending {
		return nil
	}
	_, err = s.runImport(ctx, imp, in)
	return err
}

func (s *Service) runImport(ctx context.Context, imp Import, in ExtractInput) (Import, error) {
	extracted, err := s.extractor.Extract(ctx, in)
	if err == nil && len(extracted.Items) == 0 {
		err = ErrNoItems
	}
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, imp.ID, err.Error(), s.now()); markErr != nil {
			s.logger.Error("mark import failed", slog.Any("error", markErr))
		}
		imp.Status = StatusFailed
		imp.Error = err.Error()
		return imp, err
	}

	outcomes, err := s.Apply(ctx, extracted, imp.Mode, imp.CreatedBy)
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, imp.ID, err.Error(), s.now()); markErr != nil {
			s.logger.Error("mark import failed", slog.Any("error", markErr))
		}
		imp.Status = StatusFailed
		imp.Error = err.Error()
		return imp, err
	}

	completedAt := s.now()
	if err := s.repo.MarkCompleted(ctx, imp.ID, outcomes, completedAt); err != nil {
		return imp, fmt.Errorf("mark import completed: %w", err)
	}
	imp.Status = StatusCompleted
	imp.Outcomes = outcomes
	imp.CompletedAt = &completedAt
	return imp, nil
}

// GetImport returns one import with its outcomes.
func (s *Service) GetImport(ctx context.Context, id string) (Import, error) {
	return s.repo.Get(ctx, id)
}

// ListImports returns recent imports, newest first.
func (s *Service) ListImports(ctx context.Context, limit int) ([]Import, error) {
	return s.repo.List(ctx, limit)
}

func (s *Service) resolveSupplier(ctx context.Context, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || s.suppliers == nil {
		return ""
	}
	folded := folder.String(name)
	if all, err := s.suppliers.List(ctx, false); err == nil {
		for _, sup := range all {
			if folder.String(sup.Name) == folded {
				return sup.ID
			}
		}
	}
	created, err := s.suppliers.Create(ctx, suppliers.Input{Name: name})
	if err != nil {
		s.logger.Warn("create supplier from receipt", slog.String("name", name), slog.Any("error", err))
		return ""
	}
	return created.ID
}

// newImportedSKU labels products created from receipts, so staff can find
// and finish them later (real SKU, pricing, reorder level).
func newImportedSKU() string {
	return "IMP-" + strings.ToUpper(uuid.NewString()[:8])
}
