package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/JulianR23/Vertex-Store/internal/domain/order"
	"github.com/JulianR23/Vertex-Store/internal/domain/pricing"
)

func newOrder(t *testing.T, id, reference string) *domain.Order {
	t.Helper()
	q, err := pricing.FeeSchedule{BaseFee: 300_000, DeliveryFee: 200_000, Currency: "COP"}.Quote(1_100_000)
	require.NoError(t, err)
	o, err := domain.New(domain.NewParams{
		ID:         id,
		DeliveryID: "d-" + id,
		Reference:  reference,
		ProductID:  "p-1",
		CustomerID: "c-1",
		Quote:      q,
		Card:       domain.MaskCard("4242424242424242"),
		Address:    domain.Address{AddressLine: "Calle 1 # 2-3", City: "Bogota", Department: "Cundinamarca"},
	})
	require.NoError(t, err)
	return o
}

func TestOrderRepositoryCreateRejectsDuplicateReference(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewOrderRepository()

	require.NoError(t, r.Create(ctx, newOrder(t, "o-1", "VS-1-AAAA")))
	err := r.Create(ctx, newOrder(t, "o-2", "VS-1-AAAA"))
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := r.FindByReference(ctx, "VS-1-AAAA")
	require.NoError(t, err)
	assert.Equal(t, "o-1", got.ID)
	require.NotNil(t, got.Delivery)
	assert.Equal(t, domain.DeliveryPending, got.Delivery.Status)
}

func TestOrderRepositoryTransitionIsExclusive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewOrderRepository()
	require.NoError(t, r.Create(ctx, newOrder(t, "o-1", "VS-1-AAAA")))

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Transition(ctx, "o-1", func(o *domain.Order) error {
				return o.Transition(domain.StatusApproved, "gw-1", "")
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var applied, rejected int
	for err := range results {
		if err == nil {
			applied++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		rejected++
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, 9, rejected)

	got, err := r.FindByGatewayTransactionID(ctx, "gw-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)
	assert.Equal(t, domain.DeliveryAssigned, got.Delivery.Status)
}

func TestOrderRepositoryFailedTransitionLeavesOrderUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewOrderRepository()
	require.NoError(t, r.Create(ctx, newOrder(t, "o-1", "VS-1-AAAA")))

	_, err := r.Transition(ctx, "o-1", func(o *domain.Order) error {
		o.FailureReason = "scribbled"
		return domain.ErrInvalidTransition
	})
	require.Error(t, err)

	got, err := r.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Empty(t, got.FailureReason)

	_, err = r.Transition(ctx, "missing", func(*domain.Order) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepositoryListPendingCharges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewOrderRepository()

	for _, id := range []string{"o-1", "o-2", "o-3"} {
		require.NoError(t, r.Create(ctx, newOrder(t, id, "VS-"+id)))
	}
	_, err := r.AttachGatewayTransaction(ctx, "o-1", "gw-1")
	require.NoError(t, err)
	_, err = r.AttachGatewayTransaction(ctx, "o-2", "gw-2")
	require.NoError(t, err)
	_, err = r.Transition(ctx, "o-2", func(o *domain.Order) error {
		return o.Transition(domain.StatusFailed, "", "declined")
	})
	require.NoError(t, err)

	_, err = r.AttachGatewayTransaction(ctx, "o-3", "gw-1")
	assert.ErrorIs(t, err, domain.ErrConflict)

	pending, err := r.ListPendingCharges(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "o-1", pending[0].ID)

	none, err := r.ListPendingCharges(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
