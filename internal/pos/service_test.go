package pos

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tilldesk/tilldesk/internal/credit"
	"github.com/tilldesk/tilldesk/internal/shared"
	"github.com/tilldesk/tilldesk/internal/stock"
)

type fakeStockTx struct {
	batches map[string][]stock.Batch
}

func (f *fakeStockTx) BatchesForUpdate(ctx context.Context, productID string) ([]stock.Batch, error) {
	return append([]stock.Batch(nil), f.batches[productID]...), nil
}

func (f *fakeStockTx) InsertBatch(ctx context.Context, b stock.Batch) error {
	f.batches[b.ProductID] = append(f.batches[b.ProductID], b)
	return nil
}

func (f *fakeStockTx) UpdateBatchQuantity(ctx context.Context, batchID string, quantity float64) error {
	for productID, batches := range f.batches {
		for i := range batches {
			if batches[i].ID == batchID {
				f.batches[productID][i].Quantity = quantity
				return nil
			}
		}
	}
	return stock.ErrNotFound
}

func (f *fakeStockTx) InsertPriceRecord(ctx context.Context, rec stock.PurchasePriceRecord) error {
	return nil
}

type fakeCreditTx struct {
	balances map[string]decimal.Decimal
	entries  []credit.Transaction
}

func (f *fakeCreditTx) CustomerBalanceForUpdate(ctx context.Context, customerID string) (decimal.Decimal, error) {
	b, ok := f.balances[customerID]
	if !ok {
		return decimal.Zero, credit.ErrCustomerNotFound
	}
	return b, nil
}

func (f *fakeCreditTx) InsertTransaction(ctx context.Context, t credit.Transaction) error {
	f.entries = append(f.entries, t)
	return nil
}

func (f *fakeCreditTx) UpdateCustomerBalance(ctx context.Context, customerID string, balance decimal.Decimal) error {
	f.balances[customerID] = balance
	return nil
}

type fakeRepo struct {
	stockTx      *fakeStockTx
	creditTx     *fakeCreditTx
	transactions []Transaction
	failInsert   error
}

type fakeCheckoutTx struct {
	repo *fakeRepo
	// staged writes, applied on commit
	transactions []Transaction
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		stockTx:  &fakeStockTx{batches: make(map[string][]stock.Batch)},
		creditTx: &fakeCreditTx{balances: make(map[string]decimal.Decimal)},
	}
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, CheckoutTx) error) error {
	tx := &fakeCheckoutTx{repo: r}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.transactions = append(r.transactions, tx.transactions...)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filters ListFilters) ([]Transaction, error) {
	return r.transactions, nil
}

func (r *fakeRepo) Get(ctx context.Context, id string) (Transaction, error) {
	for _, t := range r.transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return Transaction{}, ErrNotFound
}

func (tx *fakeCheckoutTx) InsertTransaction(ctx context.Context, t Transaction) error {
	if tx.repo.failInsert != nil {
		return tx.repo.failInsert
	}
	tx.transactions = append(tx.transactions, t)
	return nil
}

func (tx *fakeCheckoutTx) Stock() stock.TxRepository   { return tx.repo.stockTx }
func (tx *fakeCheckoutTx) Credit() credit.TxRepository { return tx.repo.creditTx }

type fakeMetrics struct {
	sales int
}

func (m *fakeMetrics) SaleCompleted() { m.sales++ }

func checkoutFixture(t *testing.T) (*Service, *fakeRepo, *CartService, *fakeMetrics, *shared.Session) {
	t.Helper()
	cartSvc, sess, _, _ := newCartFixture(t)
	repo := newFakeRepo()
	metrics := &fakeMetrics{}
	svc := NewService(repo, cartSvc, metrics, ServiceConfig{AllowShortfall: true})
	return svc, repo, cartSvc, metrics, sess
}

func TestCheckoutCashSale(t *testing.T) {
	svc, repo, cartSvc, metrics, sess := checkoutFixture(t)
	ctx := context.Background()

	repo.stockTx.batches["soap"] = []stock.Batch{
		{ID: "b1", ProductID: "soap", Quantity: 10, UnitCost: decimal.NewFromInt(300)},
	}

	_, err := cartSvc.AddItem(ctx, sess, AddItemInput{ProductID: "soap", Quantity: 3, Discount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	result, err := svc.Checkout(ctx, sess, CheckoutInput{
		PaymentMethod: PaymentCash,
		AmountPaid:    decimal.NewFromInt(2000),
	})
	require.NoError(t, err)

	txn := result.Transaction
	// 500 x 3 - 100 = 1400
	require.True(t, txn.Subtotal.Equal(decimal.NewFromInt(1400)))
	require.True(t, txn.Total.Equal(decimal.NewFromInt(1400)))
	require.True(t, txn.ChangeDue.Equal(decimal.NewFromInt(600)))
	require.Len(t, txn.Items, 1)
	require.NotEmpty(t, txn.Number)

	// Stock came down and the sale was persisted.
	require.InDelta(t, 7, repo.stockTx.batches["soap"][0].Quantity, 0.0001)
	require.Len(t, repo.transactions, 1)
	require.Equal(t, 1, metrics.sales)

	// Cart cleared after commit.
	cart, err := cartSvc.Cart(sess)
	require.NoError(t, err)
	require.Empty(t, cart.Items)
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, _, _, _, sess := checkoutFixture(t)
	_, err := svc.Checkout(context.Background(), sess, CheckoutInput{PaymentMethod: PaymentCash})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutCashUnderpaid(t *testing.T) {
	svc, repo, cartSvc, _, sess := checkoutFixture(t)
	ctx := context.Background()

	repo.stockTx.batches["soap"] = []stock.Batch{{ID: "b1", ProductID: "soap", Quantity: 10}}
	_, err := cartSvc.AddItem(ctx, sess, AddItemInput{ProductID: "soap", Quantity: 3})
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, sess, CheckoutInput{PaymentMethod: PaymentCash, AmountPaid: decimal.NewFromInt(100)})
	require.ErrorIs(t, err, ErrInvalidPayment)

	// Nothing committed, cart untouched.
	require.Empty(t, repo.transactions)
	cart, err := cartSvc.Cart(sess)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
}

func TestCheckoutCreditRequiresCustomer(t *testing.T) {
	svc, _, cartSvc, _, sess := checkoutFixture(t)
	ctx := context.Background()

	_, err := cartSvc.AddItem(ctx, sess, AddItemInput{ProductID: "soap", Quantity: 1})
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, sess, CheckoutInput{PaymentMethod: PaymentCredit})
	require.ErrorIs(t, err, ErrCustomerRequired)
}

func TestCheckoutCreditSalePostsLedger(t *testing.T) {
	svc, repo, cartSvc, _, sess := checkoutFixture(t)
	ctx := context.Background()

	repo.stockTx.batches["soap"] = []stock.Batch{{ID: "b1", ProductID: "soap", Quantity: 10}}
	repo.creditTx.balances["c1"] = decimal.NewFromInt(1000)

	_, err := cartSvc.SetCustomer(ctx, sess, "c1")
	require.NoError(t, err)
	_, err = cartSvc.AddItem(ctx, sess, AddItemInput{ProductID: "soap", Quantity: 2})
	require.NoError(t, err)

	result, err := svc.Checkout(ctx, sess, CheckoutInput{PaymentMethod: PaymentCredit})
	require.NoError(t, err)

	require.NotNil(t, result.CreditEntry)
	require.Equal(t, credit.TypeCreditSale, result.CreditEntry.Type)
	// Wholesale price 450 x 2 = 900 on top of the 1000 balance.
	require.True(t, result.CreditEntry.BalanceAfter.Equal(decimal.NewFromInt(1900)))
	require.True(t, repo.creditTx.balances["c1"].Equal(decimal.NewFromInt(1900)))
	require.Equal(t, result.Transaction.ID, repo.creditTx.entries[0].SaleTransactionID)
}

func TestCheckoutShortfallReported(t *testing.T) {
	svc, repo, cartSvc, _, sess := checkoutFixture(t)
	ctx := context.Background()

	repo.stockTx.batches["soap"] = []stock.Batch{{ID: "b1", ProductID: "soap", Quantity: 2}}

	_, err := cartSvc.AddItem(ctx, sess, AddItemInput{ProductID: "soap", Quantity: 5})
	require.NoError(t, err)

	result, err := svc.Checkout(ctx, sess, CheckoutInput{PaymentMethod: PaymentCash, AmountPaid: decimal.NewFromInt(3000)})
	require.NoError(t, err)

	require.Len(t, result.Deductions, 1)
	require.InDelta(t, 5, result.Deductions[0].Requested, 0.0001)
	require.InDelta(t, 2, result.Deductions[0].Deducted, 0.0001)
	require.InDelta(t, 3, result.Deductions[0].Shortfall, 0.0001)
	require.InDelta(t, 0, repo.stockTx.batches["soap"][0].Quantity, 0.0001)
}

func TestCheckoutWeighedLineDeductsActualWeight(t *testing.T) {
	svc, repo, cartSvc, _, sess := checkoutFixture(t)
	ctx := context.Background()

	repo.stockTx.batches["rice"] = []stock.Batch{{ID: "b1", ProductID: "rice", Quantity: 25}}

	_, err := cartSvc.AddItem(ctx, sess, AddItemInput{ProductID: "rice", ActualWeight: 1.5})
	require.NoError(t, err)

	result, err := svc.Checkout(ctx, sess, CheckoutInput{PaymentMethod: PaymentCash, AmountPaid: decimal.NewFromInt(1800)})
	require.NoError(t, err)

	require.True(t, result.Transaction.Total.Equal(decimal.NewFromInt(1800)))
	require.InDelta(t, 23.5, repo.stockTx.batches["rice"][0].Quantity, 0.0001)
}
