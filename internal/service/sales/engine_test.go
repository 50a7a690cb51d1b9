package sales_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmsales/internal/domain/models"
	"github.com/mamadbah2/farmsales/internal/service/drafts"
	"github.com/mamadbah2/farmsales/internal/service/sales"
)

type fakeRegistry struct {
	lots []models.Lot
	err  error
}

func (f *fakeRegistry) GetLots(context.Context) ([]models.Lot, error) {
	return f.lots, f.err
}

type fakeLedger struct {
	nextID  int64
	created []models.SaleLineItem
	updated map[int64]models.SaleLineItem
	deleted []int64
	err     error
}

func (f *fakeLedger) ListSales(context.Context, models.DateRange) ([]models.SaleRecord, error) {
	return nil, f.err
}

func (f *fakeLedger) CreateSale(_ context.Context, item models.SaleLineItem) (models.SaleRecord, error) {
	if f.err != nil {
		return models.SaleRecord{}, f.err
	}
	f.nextID++
	f.created = append(f.created, item)
	return models.SaleRecord{ID: f.nextID, SaleLineItem: item}, nil
}

func (f *fakeLedger) UpdateSale(_ context.Context, id int64, item models.SaleLineItem) (models.SaleRecord, error) {
	if f.err != nil {
		return models.SaleRecord{}, f.err
	}
	if f.updated == nil {
		f.updated = make(map[int64]models.SaleLineItem)
	}
	f.updated[id] = item
	return models.SaleRecord{ID: id, SaleLineItem: item}, nil
}

func (f *fakeLedger) DeleteSale(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type recordingListener struct {
	committed []models.SaleRecord
	depleted  []models.LotDepleted
}

func (r *recordingListener) SaleCommitted(_ context.Context, record models.SaleRecord) {
	r.committed = append(r.committed, record)
}

func (r *recordingListener) LotDepleted(_ context.Context, event models.LotDepleted) {
	r.depleted = append(r.depleted, event)
}

type fixture struct {
	registry *fakeRegistry
	ledger   *fakeLedger
	drafts   *drafts.Store
	listener *recordingListener
	engine   *sales.Engine
}

func newFixture(lots ...models.Lot) *fixture {
	f := &fixture{
		registry: &fakeRegistry{lots: lots},
		ledger:   &fakeLedger{},
		drafts:   drafts.NewStore(drafts.NewMemoryBuffer(), nil),
		listener: &recordingListener{},
	}
	f.engine = sales.NewEngine(f.registry, f.ledger, f.drafts, nil, f.listener)
	return f
}

func broilerLot() models.Lot {
	return models.Lot{
		ID:               7,
		Code:             "POL-07",
		Name:             "Lote galpon 2",
		Breed:            &models.Breed{ID: 1, Name: "Pollo Broiler", Species: &models.SpeciesRef{ID: 1, Name: "Ave"}},
		Quantity:         intPtr(10),
		QuantityOriginal: 50,
		AcquisitionCost:  500,
	}
}

func saleOf(lotID int64, qty int, price float64) models.SaleLineItem {
	return models.SaleLineItem{LotID: lotID, Date: "2024-06-16", Quantity: qty, UnitPrice: price}
}

func TestCommitSale_Validation(t *testing.T) {
	cases := map[string]models.SaleLineItem{
		"missing lot":       saleOf(0, 1, 10),
		"zero quantity":     saleOf(7, 0, 10),
		"negative quantity": saleOf(7, -1, 10),
		"negative price":    saleOf(7, 1, -0.01),
	}
	for name, item := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(broilerLot())
			_, err := f.engine.CommitSale(context.Background(), item)

			var validationErr *models.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Empty(t, f.ledger.created, "no remote call on invalid input")
		})
	}
}

func TestCommitSale_ComputesCostAndRemainingStock(t *testing.T) {
	f := newFixture(broilerLot())

	result, err := f.engine.CommitSale(context.Background(), saleOf(7, 4, 25))
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.Record.ID)
	assert.Equal(t, 4, result.Record.Quantity)
	assert.Equal(t, 100.0, result.Record.Total)
	assert.Equal(t, "POL-07", result.Record.LotCode)
	assert.Equal(t, "Pollo Broiler", result.Record.AnimalName)
	assert.False(t, result.Clamped)
	assert.Equal(t, 40.0, result.CostOfSale)
	assert.Equal(t, 60.0, result.Margin)
	require.NotNil(t, result.RemainingStock)
	assert.Equal(t, 6, *result.RemainingStock)
	assert.False(t, result.Depleted)

	assert.Len(t, f.listener.committed, 1)
	assert.Empty(t, f.listener.depleted)
}

func TestCommitSale_ClampsAndSignalsDepletion(t *testing.T) {
	f := newFixture(broilerLot())

	result, err := f.engine.CommitSale(context.Background(), saleOf(7, 12, 20))
	require.NoError(t, err)

	assert.True(t, result.Clamped)
	assert.Equal(t, 12, result.RequestedQuantity)
	assert.Equal(t, 10, result.Record.Quantity)
	assert.Equal(t, 200.0, result.Record.Total)
	assert.Equal(t, 0, *result.RemainingStock)
	assert.True(t, result.Depleted)

	require.Len(t, f.listener.depleted, 1)
	assert.Equal(t, int64(7), f.listener.depleted[0].LotID)
	assert.Equal(t, "POL-07", f.listener.depleted[0].LotCode)
	assert.Equal(t, result.Record.ID, f.listener.depleted[0].SaleID)
}

func TestCommitSale_EmptyLotIsRejected(t *testing.T) {
	lot := broilerLot()
	lot.Quantity = intPtr(0)
	f := newFixture(lot)

	_, err := f.engine.CommitSale(context.Background(), saleOf(7, 1, 20))
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Empty(t, f.ledger.created)
}

func TestCommitSale_UnknownLotCommitsWithoutCost(t *testing.T) {
	f := newFixture(broilerLot())

	result, err := f.engine.CommitSale(context.Background(), saleOf(99, 3, 5))
	require.NoError(t, err)
	assert.Zero(t, result.CostOfSale)
	assert.Nil(t, result.RemainingStock)
	assert.False(t, result.Depleted)
	assert.Equal(t, 15.0, result.Margin)
}

func TestCommitSale_LedgerFailureIsPersistenceError(t *testing.T) {
	f := newFixture(broilerLot())
	f.ledger.err = errors.New("502 bad gateway")

	_, err := f.engine.CommitSale(context.Background(), saleOf(7, 10, 20))

	var persistenceErr *models.PersistenceError
	require.ErrorAs(t, err, &persistenceErr)
	assert.Empty(t, f.listener.committed)
	assert.Empty(t, f.listener.depleted)
}

func TestCommitSale_RegistryFailureIsPersistenceError(t *testing.T) {
	f := newFixture()
	f.registry.err = errors.New("timeout")

	_, err := f.engine.CommitSale(context.Background(), saleOf(7, 1, 20))

	var persistenceErr *models.PersistenceError
	require.ErrorAs(t, err, &persistenceErr)
	assert.Empty(t, f.ledger.created)
}

func TestCommitDraft_RemovesOnlyOnSuccess(t *testing.T) {
	f := newFixture(broilerLot())
	_, err := f.engine.StageDraft(saleOf(7, 2, 30))
	require.NoError(t, err)
	_, err = f.engine.StageDraft(saleOf(7, 3, 30))
	require.NoError(t, err)

	f.ledger.err = errors.New("connection refused")
	_, err = f.engine.CommitDraft(context.Background(), 0)
	var persistenceErr *models.PersistenceError
	require.ErrorAs(t, err, &persistenceErr)
	assert.Equal(t, 2, f.drafts.Len())

	f.ledger.err = nil
	result, err := f.engine.CommitDraft(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Record.Quantity)
	assert.Equal(t, 60.0, result.Record.Total)

	remaining := f.drafts.Items()
	require.Len(t, remaining, 1)
	assert.Equal(t, 3, remaining[0].Quantity)
}

func TestCommitDraft_UnknownIndex(t *testing.T) {
	f := newFixture(broilerLot())

	_, err := f.engine.CommitDraft(context.Background(), 3)
	assert.ErrorIs(t, err, drafts.ErrDraftNotFound)
	assert.Empty(t, f.ledger.created)
}

func TestStageDraft_FillsTotal(t *testing.T) {
	f := newFixture(broilerLot())

	staged, err := f.engine.StageDraft(models.SaleLineItem{LotID: 7, Quantity: 3, UnitPrice: 0.1})
	require.NoError(t, err)
	assert.Equal(t, 0.3, staged.Total)
	assert.NotEmpty(t, staged.Date)
	assert.Equal(t, []models.SaleLineItem{staged}, f.engine.Drafts())

	_, err = f.engine.StageDraft(models.SaleLineItem{LotID: 7, Quantity: 0, UnitPrice: 1})
	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Len(t, f.engine.Drafts(), 1)
}

func TestQuote(t *testing.T) {
	f := newFixture(broilerLot())

	q, err := f.engine.Quote(context.Background(), 7, 12, 20)
	require.NoError(t, err)
	assert.Equal(t, 10, q.Quantity)
	assert.True(t, q.Clamped)
	assert.Equal(t, 200.0, q.Total)
	assert.Equal(t, 10.0, q.UnitCost)
	assert.Equal(t, 100.0, q.CostOfSale)
	assert.Equal(t, 100.0, q.Margin)

	_, err = f.engine.Quote(context.Background(), 99, 1, 20)
	assert.ErrorIs(t, err, sales.ErrLotNotFound)
}

func TestUpdateAndDeleteSale(t *testing.T) {
	f := newFixture(broilerLot())

	record, err := f.engine.UpdateSale(context.Background(), 5, saleOf(7, 2, 12.345))
	require.NoError(t, err)
	assert.Equal(t, 24.69, record.Total)

	_, err = f.engine.UpdateSale(context.Background(), 0, saleOf(7, 2, 1))
	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	require.NoError(t, f.engine.DeleteSale(context.Background(), 5))
	assert.Equal(t, []int64{5}, f.ledger.deleted)

	f.ledger.err = errors.New("boom")
	var persistenceErr *models.PersistenceError
	assert.ErrorAs(t, f.engine.DeleteSale(context.Background(), 6), &persistenceErr)
}

func TestLots_DerivesCostAndDepletion(t *testing.T) {
	empty := broilerLot()
	empty.ID = 8
	empty.Quantity = intPtr(0)
	f := newFixture(broilerLot(), empty)

	views, err := f.engine.Lots(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, 10.0, views[0].UnitCost)
	assert.Equal(t, "Ave", views[0].Species)
	assert.False(t, views[0].Depleted)
	assert.True(t, views[1].Depleted)
}

func TestDiscardAndClearDrafts(t *testing.T) {
	f := newFixture(broilerLot())
	for qty := 1; qty <= 3; qty++ {
		_, err := f.engine.StageDraft(saleOf(7, qty, 1))
		require.NoError(t, err)
	}

	require.NoError(t, f.engine.DiscardDraft(1))
	assert.Len(t, f.engine.Drafts(), 2)
	assert.ErrorIs(t, f.engine.DiscardDraft(9), drafts.ErrDraftNotFound)

	f.engine.ClearDrafts()
	assert.Empty(t, f.engine.Drafts())
	assert.Empty(t, f.ledger.created)
}

type blockingLedger struct {
	*fakeLedger
	entered chan struct{}
	release chan struct{}
}

func newBlockingLedger() *blockingLedger {
	return &blockingLedger{
		fakeLedger: &fakeLedger{},
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
}

func (b *blockingLedger) CreateSale(ctx context.Context, item models.SaleLineItem) (models.SaleRecord, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.fakeLedger.CreateSale(ctx, item)
}

func stagedQuantities(items []models.SaleLineItem) []int {
	out := make([]int, 0, len(items))
	for _, item := range items {
		out = append(out, item.Quantity)
	}
	return out
}

// startDraftCommit stages quantities 1..n, commits the draft at index and returns once
// the ledger call is in progress.
func startDraftCommit(t *testing.T, n, index int) (*sales.Engine, *blockingLedger, <-chan error) {
	t.Helper()

	ledger := newBlockingLedger()
	engine := sales.NewEngine(&fakeRegistry{lots: []models.Lot{broilerLot()}}, ledger,
		drafts.NewStore(drafts.NewMemoryBuffer(), nil), nil)
	for qty := 1; qty <= n; qty++ {
		_, err := engine.StageDraft(saleOf(7, qty, 1))
		require.NoError(t, err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := engine.CommitDraft(context.Background(), index)
		done <- err
	}()

	select {
	case <-ledger.entered:
	case err := <-done:
		t.Fatalf("commit finished before reaching the ledger: %v", err)
	}
	return engine, ledger, done
}

func TestCommitDraft_InFlightDraftIsExclusive(t *testing.T) {
	engine, ledger, done := startDraftCommit(t, 3, 0)

	assert.ErrorIs(t, engine.DiscardDraft(0), drafts.ErrDraftInFlight)
	_, err := engine.CommitDraft(context.Background(), 0)
	assert.ErrorIs(t, err, drafts.ErrDraftInFlight)

	close(ledger.release)
	require.NoError(t, <-done)

	assert.Equal(t, []int{2, 3}, stagedQuantities(engine.Drafts()))
	require.Len(t, ledger.created, 1)
	assert.Equal(t, 1, ledger.created[0].Quantity)
}

func TestCommitDraft_UnstagesCommittedItemAfterShift(t *testing.T) {
	engine, ledger, done := startDraftCommit(t, 3, 1)

	require.NoError(t, engine.DiscardDraft(0))
	assert.Equal(t, []int{2, 3}, stagedQuantities(engine.Drafts()))

	close(ledger.release)
	require.NoError(t, <-done)

	assert.Equal(t, []int{3}, stagedQuantities(engine.Drafts()))
	require.Len(t, ledger.created, 1)
	assert.Equal(t, 2, ledger.created[0].Quantity)
}

type contextListener struct {
	errs []error
}

func (c *contextListener) SaleCommitted(ctx context.Context, _ models.SaleRecord) {
	c.errs = append(c.errs, ctx.Err())
}

func (c *contextListener) LotDepleted(ctx context.Context, _ models.LotDepleted) {
	c.errs = append(c.errs, ctx.Err())
}

func TestCommitSale_ListenersOutliveRequestContext(t *testing.T) {
	listener := &contextListener{}
	engine := sales.NewEngine(&fakeRegistry{lots: []models.Lot{broilerLot()}}, &fakeLedger{},
		drafts.NewStore(drafts.NewMemoryBuffer(), nil), nil, listener)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.CommitSale(ctx, saleOf(7, 10, 5))
	require.NoError(t, err)
	require.True(t, result.Depleted)

	assert.Equal(t, []error{nil, nil}, listener.errs)
}
