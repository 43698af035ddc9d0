package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/rookgm/orderflow/internal/lifecycle"
	"github.com/rookgm/orderflow/internal/models"
	"github.com/rookgm/orderflow/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps orders, payments and ledgers in memory with the same
// conditional-write semantics as the postgres repositories.
type memStore struct {
	mu            sync.Mutex
	orders        map[string]*models.Order
	payments      map[uuid.UUID]models.Payment
	stock         map[string]int
	usage         map[string]int
	notifications []models.Notification
	decrementErr  error
	notifyErr     error
}

func newMemStore() *memStore {
	return &memStore{
		orders:   make(map[string]*models.Order),
		payments: make(map[uuid.UUID]models.Payment),
		stock:    make(map[string]int),
		usage:    make(map[string]int),
	}
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.Item(nil), o.Items...)
	c.TrackingSteps = append([]models.TrackingStep(nil), o.TrackingSteps...)
	c.Notifications = append([]models.NotificationRecord(nil), o.Notifications...)
	return &c
}

func (s *memStore) add(o models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.BusinessID] = cloneOrder(&o)
}

func (s *memStore) get(businessID string) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrder(s.orders[businessID])
}

func (s *memStore) byID(id uuid.UUID) *models.Order {
	for _, o := range s.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (s *memStore) FindByBusinessID(_ context.Context, businessID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[businessID]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	return cloneOrder(o), nil
}

func (s *memStore) ConditionalUpdateStatus(_ context.Context, upd models.StatusUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := s.byID(upd.OrderID)
	if o == nil || o.Deleted() {
		return false, nil
	}
	if upd.PaymentStatusIs != "" && o.PaymentStatus != upd.PaymentStatusIs {
		return false, nil
	}
	matched := false
	for _, f := range upd.From {
		if f == o.Status {
			matched = true
		}
	}
	if !matched {
		return false, nil
	}

	o.Status = upd.Status
	if upd.PaymentStatus != "" {
		o.PaymentStatus = upd.PaymentStatus
	}
	for i := range o.TrackingSteps {
		if o.TrackingSteps[i].Current {
			o.TrackingSteps[i].Current = false
			o.TrackingSteps[i].Completed = true
		}
	}
	o.TrackingSteps = append(o.TrackingSteps, upd.Step)
	return true, nil
}

func (s *memStore) SetPaymentStatus(_ context.Context, orderID uuid.UUID, status models.PaymentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.byID(orderID)
	if o == nil || o.PaymentStatus == status {
		return false, nil
	}
	o.PaymentStatus = status
	return true, nil
}

func (s *memStore) AppendNotification(_ context.Context, orderID uuid.UUID, rec models.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.byID(orderID)
	if o == nil {
		return models.ErrDataNotFound
	}
	o.Notifications = append(o.Notifications, rec)
	return nil
}

func (s *memStore) UpsertStatus(_ context.Context, p *models.Payment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.payments[p.OrderID]
	if ok {
		sameExternal := (cur.ExternalPaymentID == nil && p.ExternalPaymentID == nil) ||
			(cur.ExternalPaymentID != nil && p.ExternalPaymentID != nil && *cur.ExternalPaymentID == *p.ExternalPaymentID)
		if cur.Status == p.Status && sameExternal {
			return false, nil
		}
		if cur.Status.IsSettled() && p.Status.IsInFlight() {
			return false, nil
		}
	} else {
		cur = *p
		cur.ID = uuid.New()
	}
	cur.Status = p.Status
	cur.ExternalPaymentID = p.ExternalPaymentID
	s.payments[p.OrderID] = cur
	return true, nil
}

func (s *memStore) Decrement(_ context.Context, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decrementErr != nil {
		return s.decrementErr
	}
	s.stock[productID] -= qty
	return nil
}

func (s *memStore) IncrementUsage(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[code]++
	return nil
}

func (s *memStore) Notify(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifyErr != nil {
		return s.notifyErr
	}
	s.notifications = append(s.notifications, n)
	return nil
}

type fakeProvider struct {
	payments map[string]models.ProviderPayment
	err      error
	block    bool
}

func (p *fakeProvider) FetchPayment(ctx context.Context, paymentID string) (*models.ProviderPayment, error) {
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	pp, ok := p.payments[paymentID]
	if !ok {
		return nil, models.ErrPaymentNotFound
	}
	return &pp, nil
}

func pendingOrder(businessID string, items ...models.Item) models.Order {
	o := models.Order{
		ID:            uuid.New(),
		BusinessID:    businessID,
		Customer:      models.Customer{Name: "Ana", Email: "ana@example.com"},
		Status:        models.OrderStatusPendingPayment,
		PaymentStatus: models.PaymentStatusPending,
		Items:         items,
		Total:         100,
	}
	o.TrackingSteps = []models.TrackingStep{lifecycle.NewStep(models.OrderStatusPendingPayment, lifecycle.TransitionMeta{})}
	return o
}

func newTestReconciler(t *testing.T, store *memStore, provider *fakeProvider) *Reconciler {
	t.Helper()
	r, err := NewReconciler(ReconcilerDeps{
		Orders:       store,
		Payments:     store,
		Provider:     provider,
		Inventory:    store,
		Discounts:    store,
		Notifier:     store,
		FetchTimeout: 50 * time.Millisecond,
		AdminEmail:   "ops@example.com",
	})
	require.NoError(t, err)
	return r
}

func approved(id, ref string) models.ProviderPayment {
	return models.ProviderPayment{ID: id, Status: models.ProviderStatusApproved, ExternalReference: ref, Amount: 100, Currency: "ARS"}
}

func countStatus(o *models.Order, s models.OrderStatus) int {
	n := 0
	for _, step := range o.TrackingSteps {
		if step.Status == s {
			n++
		}
	}
	return n
}

func countCurrent(o *models.Order) int {
	n := 0
	for _, step := range o.TrackingSteps {
		if step.Current {
			n++
		}
	}
	return n
}

func TestReconciler_ApprovedPayment(t *testing.T) {
	store := newMemStore()
	store.stock["b1"] = 10
	store.add(pendingOrder("ORD-A", models.Item{ID: "b1", Name: "Boots", Type: models.ItemTypeProduct, UnitPrice: 50, Quantity: 2}))
	provider := &fakeProvider{payments: map[string]models.ProviderPayment{"pay-1": approved("pay-1", "ORD-A")}}
	r := newTestReconciler(t, store, provider)

	res, err := r.Reconcile(context.Background(), "pay-1", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Empty(t, res.Warnings)

	order := store.get("ORD-A")
	assert.Equal(t, models.OrderStatusPaymentConfirmed, order.Status)
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
	assert.Equal(t, 8, store.stock["b1"])
	require.Len(t, order.TrackingSteps, 2)
	last := order.TrackingSteps[1]
	assert.True(t, last.Current)
	assert.Equal(t, models.ActorSystem, last.UpdatedBy)
	assert.Equal(t, 1, countCurrent(order))

	payment := store.payments[order.ID]
	assert.Equal(t, models.ProviderStatusApproved, payment.Status)
	require.NotNil(t, payment.ExternalPaymentID)
	assert.Equal(t, "pay-1", *payment.ExternalPaymentID)

	require.Len(t, store.notifications, 2)
	assert.Equal(t, models.NotificationCustomerOrderConfirmed, store.notifications[0].Kind)
	assert.Equal(t, "ana@example.com", store.notifications[0].Recipient)
	assert.Equal(t, models.NotificationAdminNewOrder, store.notifications[1].Kind)
	assert.Equal(t, "ops@example.com", store.notifications[1].Recipient)
	assert.Len(t, order.Notifications, 2)

	// redelivery of the same notification
	res, err = r.Reconcile(context.Background(), "pay-1", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)

	again := store.get("ORD-A")
	assert.Equal(t, 8, store.stock["b1"])
	assert.Len(t, again.TrackingSteps, 2)
	assert.Len(t, store.notifications, 2)
}

func TestReconciler_DiscountCountedOnce(t *testing.T) {
	store := newMemStore()
	order := pendingOrder("ORD-E", models.Item{ID: "b1", Quantity: 1, UnitPrice: 10})
	code := "SUMMER10"
	order.DiscountCode = &code
	store.add(order)
	r := newTestReconciler(t, store, &fakeProvider{payments: map[string]models.ProviderPayment{"pay-e": approved("pay-e", "ORD-E")}})

	for i := 0; i < 3; i++ {
		_, err := r.Reconcile(context.Background(), "pay-e", "")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, store.usage["SUMMER10"])
	assert.Equal(t, 1, countStatus(store.get("ORD-E"), models.OrderStatusPaymentConfirmed))
}

func TestReconciler_ConcurrentRedelivery(t *testing.T) {
	store := newMemStore()
	store.stock["b1"] = 100
	store.stock["b2"] = 100
	order := pendingOrder("ORD-C",
		models.Item{ID: "b1", Quantity: 2, UnitPrice: 10},
		models.Item{ID: "b2", Quantity: 5, UnitPrice: 1},
		models.Item{ID: "ship", Type: models.ItemTypeShipping, Quantity: 1, UnitPrice: 7},
	)
	code := "WELCOME"
	order.DiscountCode = &code
	store.add(order)
	r := newTestReconciler(t, store, &fakeProvider{payments: map[string]models.ProviderPayment{"pay-c": approved("pay-c", "ORD-C")}})

	const n = 16
	outcomes := make(chan Outcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Reconcile(context.Background(), "pay-c", "")
			if assert.NoError(t, err) {
				outcomes <- res.Outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	confirmed := 0
	for o := range outcomes {
		if o == OutcomeConfirmed {
			confirmed++
		} else {
			assert.Equal(t, OutcomeDuplicate, o)
		}
	}
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 98, store.stock["b1"])
	assert.Equal(t, 95, store.stock["b2"])
	_, touched := store.stock["ship"]
	assert.False(t, touched)
	assert.Equal(t, 1, store.usage["WELCOME"])

	got := store.get("ORD-C")
	assert.Equal(t, 1, countStatus(got, models.OrderStatusPaymentConfirmed))
	assert.Equal(t, 1, countCurrent(got))
	assert.Len(t, store.notifications, 2)
}

func TestReconciler_FailedPayment(t *testing.T) {
	store := newMemStore()
	store.add(pendingOrder("ORD-F", models.Item{ID: "b1", Quantity: 1}))
	rejected := models.ProviderPayment{ID: "pay-f", Status: models.ProviderStatusRejected, ExternalReference: "ORD-F", StatusDetail: "cc_rejected_insufficient_amount"}
	r := newTestReconciler(t, store, &fakeProvider{payments: map[string]models.ProviderPayment{"pay-f": rejected}})

	for i := 0; i < 2; i++ {
		res, err := r.Reconcile(context.Background(), "pay-f", "")
		require.NoError(t, err)
		assert.Equal(t, OutcomePaymentFailed, res.Outcome)
	}

	order := store.get("ORD-F")
	assert.Equal(t, models.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, models.PaymentStatusFailed, order.PaymentStatus)
	assert.Len(t, order.TrackingSteps, 1)
	assert.Equal(t, 0, store.stock["b1"])
	require.Len(t, store.notifications, 1)
	assert.Equal(t, models.NotificationAdminPaymentIssue, store.notifications[0].Kind)
	assert.Equal(t, models.ProviderStatusRejected, store.payments[order.ID].Status)
}

func TestReconciler_ChargebackKeepsProgress(t *testing.T) {
	store := newMemStore()
	order := pendingOrder("ORD-G", models.Item{ID: "b1", Quantity: 1})
	order.Status = models.OrderStatusPreparingOrder
	order.PaymentStatus = models.PaymentStatusCompleted
	store.add(order)
	cb := models.ProviderPayment{ID: "pay-g", Status: models.ProviderStatusChargedBack, ExternalReference: "ORD-G"}
	r := newTestReconciler(t, store, &fakeProvider{payments: map[string]models.ProviderPayment{"pay-g": cb}})

	res, err := r.Reconcile(context.Background(), "pay-g", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomePaymentFailed, res.Outcome)

	got := store.get("ORD-G")
	assert.Equal(t, models.OrderStatusPreparingOrder, got.Status)
	assert.Equal(t, models.PaymentStatusFailed, got.PaymentStatus)
}

func TestReconciler_InFlightRecordedOnly(t *testing.T) {
	store := newMemStore()
	store.add(pendingOrder("ORD-I", models.Item{ID: "b1", Quantity: 1}))
	inProcess := models.ProviderPayment{ID: "pay-i", Status: models.ProviderStatusInProcess}
	r := newTestReconciler(t, store, &fakeProvider{payments: map[string]models.ProviderPayment{"pay-i": inProcess}})

	// provider payment carries no reference, the notification one is used
	res, err := r.Reconcile(context.Background(), "pay-i", "ORD-I")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, res.Outcome)

	order := store.get("ORD-I")
	assert.Equal(t, models.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, models.ProviderStatusInProcess, store.payments[order.ID].Status)
	assert.Empty(t, store.notifications)
}

func TestReconciler_ApprovedForCancelledOrder(t *testing.T) {
	store := newMemStore()
	order := pendingOrder("ORD-X", models.Item{ID: "b1", Quantity: 1})
	order.Status = models.OrderStatusCancelled
	store.add(order)
	store.stock["b1"] = 5
	r := newTestReconciler(t, store, &fakeProvider{payments: map[string]models.ProviderPayment{"pay-x": approved("pay-x", "ORD-X")}})

	// provider redeliveries and sweeps of the same approval
	for i := 0; i < 5; i++ {
		res, err := r.Reconcile(context.Background(), "pay-x", "")
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotApplicable, res.Outcome)
	}

	got := store.get("ORD-X")
	assert.Equal(t, 5, store.stock["b1"])
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	require.Len(t, store.notifications, 1)
	assert.Equal(t, models.NotificationAdminPaymentIssue, store.notifications[0].Kind)
	assert.Len(t, got.Notifications, 1)
}

func TestReconciler_StaleInFlightKeepsSettledPayment(t *testing.T) {
	store := newMemStore()
	store.add(pendingOrder("ORD-S", models.Item{ID: "b1", Quantity: 1}))
	provider := &fakeProvider{payments: map[string]models.ProviderPayment{"pay-s": approved("pay-s", "ORD-S")}}
	r := newTestReconciler(t, store, provider)

	res, err := r.Reconcile(context.Background(), "pay-s", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, res.Outcome)

	// a reconciliation that fetched before the approval finishes last
	provider.payments["pay-s"] = models.ProviderPayment{ID: "pay-s", Status: models.ProviderStatusInProcess, ExternalReference: "ORD-S"}
	res, err = r.Reconcile(context.Background(), "pay-s", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, res.Outcome)

	order := store.get("ORD-S")
	assert.Equal(t, models.ProviderStatusApproved, store.payments[order.ID].Status)
	assert.Equal(t, models.OrderStatusPaymentConfirmed, order.Status)
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
}

func TestReconciler_SideEffectFailuresDoNotRollBack(t *testing.T) {
	store := newMemStore()
	store.decrementErr = errors.New("ledger unavailable")
	store.notifyErr = errors.New("broker down")
	store.add(pendingOrder("ORD-W", models.Item{ID: "b1", Quantity: 1}))
	r := newTestReconciler(t, store, &fakeProvider{payments: map[string]models.ProviderPayment{"pay-w": approved("pay-w", "ORD-W")}})

	res, err := r.Reconcile(context.Background(), "pay-w", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Len(t, res.Warnings, 3)

	order := store.get("ORD-W")
	assert.Equal(t, models.OrderStatusPaymentConfirmed, order.Status)
	require.Len(t, order.Notifications, 2)
	for _, rec := range order.Notifications {
		assert.False(t, rec.Success)
		assert.Contains(t, rec.Error, "broker down")
	}
}

func TestReconciler_Errors(t *testing.T) {
	t.Run("provider_unavailable_is_retryable", func(t *testing.T) {
		store := newMemStore()
		store.add(pendingOrder("ORD-1"))
		r := newTestReconciler(t, store, &fakeProvider{err: models.NewRetryableError(errors.New("connection refused"))})

		_, err := r.Reconcile(context.Background(), "pay-1", "ORD-1")
		require.Error(t, err)
		assert.True(t, models.IsRetryable(err))
		assert.Empty(t, store.payments)
	})

	t.Run("provider_timeout_is_retryable", func(t *testing.T) {
		store := newMemStore()
		store.add(pendingOrder("ORD-1"))
		r := newTestReconciler(t, store, &fakeProvider{block: true})

		_, err := r.Reconcile(context.Background(), "pay-1", "ORD-1")
		require.Error(t, err)
		assert.True(t, models.IsRetryable(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("unknown_payment_is_final", func(t *testing.T) {
		r := newTestReconciler(t, newMemStore(), &fakeProvider{payments: map[string]models.ProviderPayment{}})

		_, err := r.Reconcile(context.Background(), "nope", "")
		assert.ErrorIs(t, err, models.ErrPaymentNotFound)
		assert.False(t, models.IsRetryable(err))
	})

	t.Run("unknown_order_does_not_block_next", func(t *testing.T) {
		store := newMemStore()
		store.stock["b1"] = 3
		store.add(pendingOrder("ORD-OK", models.Item{ID: "b1", Quantity: 1}))
		r := newTestReconciler(t, store, &fakeProvider{payments: map[string]models.ProviderPayment{
			"pay-lost": approved("pay-lost", "ORD-MISSING"),
			"pay-ok":   approved("pay-ok", "ORD-OK"),
		}})

		_, err := r.Reconcile(context.Background(), "pay-lost", "")
		assert.ErrorIs(t, err, models.ErrOrderNotFound)
		assert.False(t, models.IsRetryable(err))

		res, err := r.Reconcile(context.Background(), "pay-ok", "")
		require.NoError(t, err)
		assert.Equal(t, OutcomeConfirmed, res.Outcome)
		assert.Equal(t, 2, store.stock["b1"])
	})

	t.Run("no_reference", func(t *testing.T) {
		r := newTestReconciler(t, newMemStore(), &fakeProvider{payments: map[string]models.ProviderPayment{"p": {ID: "p", Status: models.ProviderStatusApproved}}})
		_, err := r.Reconcile(context.Background(), "p", "")
		assert.ErrorIs(t, err, models.ErrOrderNotFound)
	})
}

func TestReconciler_StoreFailuresAreRetryable(t *testing.T) {
	ctrl := gomock.NewController(t)
	orders := mocks.NewMockReconcileOrderRepository(ctrl)
	payments := mocks.NewMockPaymentRepository(ctrl)
	provider := mocks.NewMockPaymentProvider(ctrl)
	inventory := mocks.NewMockInventoryLedger(ctrl)
	discounts := mocks.NewMockDiscountLedger(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)

	r, err := NewReconciler(ReconcilerDeps{
		Orders:    orders,
		Payments:  payments,
		Provider:  provider,
		Inventory: inventory,
		Discounts: discounts,
		Notifier:  notifier,
	})
	require.NoError(t, err)

	order := pendingOrder("ORD-M", models.Item{ID: "b1", Quantity: 1})
	pp := approved("pay-m", "ORD-M")

	provider.EXPECT().FetchPayment(gomock.Any(), "pay-m").Return(&pp, nil).Times(2)
	orders.EXPECT().FindByBusinessID(gomock.Any(), "ORD-M").Return(&order, nil).Times(2)

	// payment upsert fails
	payments.EXPECT().UpsertStatus(gomock.Any(), gomock.Any()).Return(false, errors.New("conn reset"))
	_, err = r.Reconcile(context.Background(), "pay-m", "")
	assert.True(t, models.IsRetryable(err))

	// guard write fails, no side effects run
	payments.EXPECT().UpsertStatus(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *models.Payment) (bool, error) {
		assert.Equal(t, order.ID, p.OrderID)
		return true, nil
	})
	orders.EXPECT().ConditionalUpdateStatus(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, upd models.StatusUpdate) (bool, error) {
		assert.Equal(t, models.PaymentStatusPending, upd.PaymentStatusIs)
		assert.Equal(t, models.PaymentStatusCompleted, upd.PaymentStatus)
		assert.Equal(t, models.OrderStatusPaymentConfirmed, upd.Status)
		assert.Contains(t, upd.From, models.OrderStatusPendingPayment)
		return false, errors.New("deadlock detected")
	})
	inventory.EXPECT().Decrement(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Times(0)

	_, err = r.Reconcile(context.Background(), "pay-m", "")
	assert.True(t, models.IsRetryable(err))
}

func TestNewReconciler_RequiresDeps(t *testing.T) {
	_, err := NewReconciler(ReconcilerDeps{})
	assert.Error(t, err)
}
