package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Skotchmaster/sweet_shop/internal/events"
	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSweet(t *testing.T, svc *SweetService, name, category string, price float64, qty int) *models.Sweet {
	t.Helper()

	s, err := svc.Create(context.Background(), SweetInput{Name: name, Category: category, Price: price, Quantity: qty})
	require.NoError(t, err)
	return s
}

func TestSweetService_Create(t *testing.T) {
	t.Parallel()

	svc, pub := newTestSweetService(t)
	idx := newFakeIndex()
	svc.Index = idx

	s, err := svc.Create(context.Background(), SweetInput{
		Name: "  Milk Chocolate ", Category: "chocolate", Price: 2.5, Quantity: 10, Description: "smooth",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Milk Chocolate", s.Name)
	assert.Equal(t, 10, s.Quantity)
	assert.Contains(t, idx.docs, s.ID)

	evs := pub.all()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TopicSweets, evs[0].Topic)
	assert.Equal(t, events.SweetCreated, evs[0].Event.(events.SweetEvent).Type)
}

func TestSweetService_Create_Validation(t *testing.T) {
	t.Parallel()

	svc, pub := newTestSweetService(t)

	tests := []struct {
		name   string
		in     SweetInput
		fields []string
	}{
		{name: "missing name", in: SweetInput{Category: "candy"}, fields: []string{"name"}},
		{name: "unknown category", in: SweetInput{Name: "X", Category: "cake"}, fields: []string{"category"}},
		{name: "category is case sensitive", in: SweetInput{Name: "X", Category: "Candy"}, fields: []string{"category"}},
		{name: "negative price", in: SweetInput{Name: "X", Category: "gum", Price: -1}, fields: []string{"price"}},
		{name: "negative quantity", in: SweetInput{Name: "X", Category: "gum", Quantity: -1}, fields: []string{"quantity"}},
		{name: "all wrong", in: SweetInput{Price: -1, Quantity: -2}, fields: []string{"name", "category", "price", "quantity"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			requireFields(t, err, tt.fields...)
		})
	}

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, pub.all())
}

func TestSweetService_List_NewestFirst(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSweetService(t)
	first := createSweet(t, svc, "First", "candy", 1, 1)
	second := createSweet(t, svc, "Second", "candy", 1, 1)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	if all[0].CreatedAt.Equal(all[1].CreatedAt) {
		assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{all[0].ID, all[1].ID})
		return
	}
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestSweetService_Search(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSweetService(t)
	createSweet(t, svc, "Dark Chocolate Bar", "chocolate", 3, 5)
	createSweet(t, svc, "Gummy Bears", "candy", 1.5, 20)
	createSweet(t, svc, "100% Cocoa", "chocolate", 6, 2)

	tests := []struct {
		name  string
		f     models.SweetFilter
		names []string
	}{
		{name: "no filter", f: models.SweetFilter{}, names: []string{"Dark Chocolate Bar", "Gummy Bears", "100% Cocoa"}},
		{name: "name substring any case", f: models.SweetFilter{Name: "CHOCO"}, names: []string{"Dark Chocolate Bar"}},
		{name: "category", f: models.SweetFilter{Category: "Choc"}, names: []string{"Dark Chocolate Bar", "100% Cocoa"}},
		{name: "literal percent", f: models.SweetFilter{Name: "%"}, names: []string{"100% Cocoa"}},
		{name: "inclusive range", f: models.SweetFilter{MinPrice: ptr(1.5), MaxPrice: ptr(3.0)}, names: []string{"Dark Chocolate Bar", "Gummy Bears"}},
		{name: "no match", f: models.SweetFilter{Name: "licorice"}, names: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Search(context.Background(), tt.f)
			require.NoError(t, err)
			names := make([]string, len(got))
			for i, s := range got {
				names[i] = s.Name
			}
			assert.ElementsMatch(t, tt.names, names)
		})
	}
}

func TestSweetService_Search_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSweetService(t)
	ctx := context.Background()

	_, err := svc.Search(ctx, models.SweetFilter{MinPrice: ptr(-1.0)})
	requireFields(t, err, "minPrice")

	_, err = svc.Search(ctx, models.SweetFilter{MaxPrice: ptr(-1.0)})
	requireFields(t, err, "maxPrice")

	_, err = svc.Search(ctx, models.SweetFilter{MinPrice: ptr(5.0), MaxPrice: ptr(2.0)})
	requireFields(t, err, "minPrice")
}

func TestSweetService_Search_UsesIndexAndFallsBack(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSweetService(t)
	idx := newFakeIndex()
	svc.Index = idx
	createSweet(t, svc, "Mint Gum", "gum", 1, 3)

	got, err := svc.Search(context.Background(), models.SweetFilter{Name: "mint"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, idx.searched)

	idx.searchErr = errors.New("cluster red")
	got, err = svc.Search(context.Background(), models.SweetFilter{Name: "mint"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mint Gum", got[0].Name)
	assert.Equal(t, 2, idx.searched)
}

func TestCheckUpdateKeys(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckUpdateKeys([]string{"name", "price", "quantity"}))

	err := CheckUpdateKeys([]string{"name", "_id", "createdAt"})
	requireFields(t, err, "_id", "createdAt")

	for _, k := range []string{"id", "updatedAt", "__v"} {
		requireFields(t, CheckUpdateKeys([]string{k}), k)
	}
}

func TestSweetService_Update(t *testing.T) {
	t.Parallel()

	svc, pub := newTestSweetService(t)
	s := createSweet(t, svc, "Lolly", "lollipop", 1, 4)

	got, err := svc.Update(context.Background(), s.ID, models.SweetPatch{Price: ptr(1.25), Name: ptr(" Big Lolly ")})
	require.NoError(t, err)
	assert.Equal(t, "Big Lolly", got.Name)
	assert.Equal(t, 1.25, got.Price)
	assert.Equal(t, 4, got.Quantity)
	assert.Equal(t, s.CreatedAt.Unix(), got.CreatedAt.Unix())

	evs := pub.all()
	require.Len(t, evs, 2)
	assert.Equal(t, events.SweetUpdated, evs[1].Event.(events.SweetEvent).Type)
}

func TestSweetService_Update_Errors(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSweetService(t)
	s := createSweet(t, svc, "Lolly", "lollipop", 1, 4)
	ctx := context.Background()

	_, err := svc.Update(ctx, s.ID, models.SweetPatch{Category: ptr("pie"), Price: ptr(-2.0)})
	requireFields(t, err, "category", "price")

	_, err = svc.Update(ctx, s.ID, models.SweetPatch{Name: ptr("  ")})
	requireFields(t, err, "name")

	_, err = svc.Update(ctx, uuid.NewString(), models.SweetPatch{Price: ptr(2.0)})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Sweet not found", err.Error())
}

func TestSweetService_Delete(t *testing.T) {
	t.Parallel()

	svc, pub := newTestSweetService(t)
	idx := newFakeIndex()
	svc.Index = idx
	s := createSweet(t, svc, "Gone", "other", 1, 1)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, s.ID))
	assert.NotContains(t, idx.docs, s.ID)

	evs := pub.all()
	require.Len(t, evs, 2)
	assert.Equal(t, events.SweetDeleted, evs[1].Event.(events.SweetEvent).Type)
	assert.Equal(t, s.ID, evs[1].Key)

	err := svc.Delete(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSweetService_Purchase(t *testing.T) {
	t.Parallel()

	svc, pub := newTestSweetService(t)
	s := createSweet(t, svc, "Toffee", "candy", 2, 10)
	ctx := context.Background()

	got, err := svc.Purchase(ctx, s.ID, 3, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity)

	_, err = svc.Purchase(ctx, s.ID, 15, "buyer-1")
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, "Insufficient stock. Available: 7, Requested: 15", err.Error())

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 7, list[0].Quantity)

	evs := pub.all()
	require.Len(t, evs, 2)
	ev := evs[1].Event.(events.SweetEvent)
	assert.Equal(t, events.SweetPurchased, ev.Type)
	assert.Equal(t, -3, ev.Delta)
	assert.Equal(t, "buyer-1", ev.ActorID)
	assert.True(t, ev.InStock)
}

func TestSweetService_Purchase_Errors(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSweetService(t)
	s := createSweet(t, svc, "Toffee", "candy", 2, 10)
	ctx := context.Background()

	for _, qty := range []int{0, -1} {
		_, err := svc.Purchase(ctx, s.ID, qty, "")
		requireFields(t, err, "quantity")
	}

	_, err := svc.Purchase(ctx, uuid.NewString(), 1, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSweetService_Purchase_Concurrent(t *testing.T) {
	t.Parallel()

	svc, _ := newTestSweetService(t)
	s := createSweet(t, svc, "Fudge", "candy", 1, 10)

	var wg sync.WaitGroup
	var ok, short atomic.Int32
	for range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Purchase(context.Background(), s.ID, 1, "")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrInsufficientStock):
				short.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, ok.Load())
	assert.EqualValues(t, 20, short.Load())
	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, list[0].Quantity)
}

func TestSweetService_Restock(t *testing.T) {
	t.Parallel()

	svc, pub := newTestSweetService(t)
	s := createSweet(t, svc, "Gum", "gum", 1, 0)
	ctx := context.Background()

	got, err := svc.Restock(ctx, s.ID, 5, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	_, err = svc.Restock(ctx, s.ID, 0, "admin-1")
	requireFields(t, err, "quantity")

	_, err = svc.Restock(ctx, uuid.NewString(), 1, "admin-1")
	require.ErrorIs(t, err, ErrNotFound)

	evs := pub.all()
	require.Len(t, evs, 2)
	assert.Equal(t, events.SweetRestocked, evs[1].Event.(events.SweetEvent).Type)
	assert.Equal(t, 5, evs[1].Event.(events.SweetEvent).Delta)
	assert.False(t, evs[0].Event.(events.SweetEvent).InStock)
	assert.True(t, evs[1].Event.(events.SweetEvent).InStock)
}
