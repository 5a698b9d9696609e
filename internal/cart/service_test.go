package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
	"github.com/texnomart-dev/storefront-backend/pkg/types"
)

var testTiers = types.PriceTiers{
	{MinQty: 1, MaxQty: 50, Discount: 0},
	{MinQty: 51, MaxQty: 100, Discount: 5},
	{MinQty: 101, MaxQty: 999, Discount: 10},
}

func TestAddMergesSameIdentityKey(t *testing.T) {
	t.Parallel()

	product := newTestProduct(decimal.NewFromInt(100000), nil)
	svc, repo := newTestService(product)
	userID := uuid.New()
	ctx := context.Background()

	for _, qty := range []int{2, 3, 5} {
		if _, err := svc.Add(ctx, userID, AddInput{ProductID: product.ID, Quantity: qty}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	lines := repo.all(userID)
	if len(lines) != 1 {
		t.Fatalf("expected one merged line, got %d", len(lines))
	}
	if lines[0].Quantity != 10 {
		t.Fatalf("expected merged quantity 10, got %d", lines[0].Quantity)
	}
}

func TestAddDistinctColorsKeepSeparateLines(t *testing.T) {
	t.Parallel()

	product := newTestProduct(decimal.NewFromInt(5000), nil)
	product.Colors = []string{"black", "silver"}
	svc, repo := newTestService(product)
	userID := uuid.New()
	ctx := context.Background()

	black, silver := "black", "silver"
	if _, err := svc.Add(ctx, userID, AddInput{ProductID: product.ID, Quantity: 1, Color: &black}); err != nil {
		t.Fatalf("add black: %v", err)
	}
	if _, err := svc.Add(ctx, userID, AddInput{ProductID: product.ID, Quantity: 1, Color: &silver}); err != nil {
		t.Fatalf("add silver: %v", err)
	}

	if got := len(repo.all(userID)); got != 2 {
		t.Fatalf("expected two lines for two colors, got %d", got)
	}
}

func TestAddColorResolutionOrder(t *testing.T) {
	t.Parallel()

	defaultColor := "white"
	cases := []struct {
		name     string
		explicit *string
		def      *string
		colors   []string
		want     *string
	}{
		{name: "explicit wins", explicit: strPtr("red"), def: &defaultColor, colors: []string{"blue"}, want: strPtr("red")},
		{name: "default when no explicit", def: &defaultColor, colors: []string{"blue"}, want: strPtr("white")},
		{name: "first color when no default", colors: []string{"blue", "green"}, want: strPtr("blue")},
		{name: "nil when colorless", want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			product := newTestProduct(decimal.NewFromInt(100), nil)
			product.DefaultColor = tc.def
			product.Colors = tc.colors
			svc, repo := newTestService(product)
			userID := uuid.New()

			if _, err := svc.Add(context.Background(), userID, AddInput{ProductID: product.ID, Quantity: 1, Color: tc.explicit}); err != nil {
				t.Fatalf("add: %v", err)
			}

			line := repo.all(userID)[0]
			switch {
			case tc.want == nil && line.Color != nil:
				t.Fatalf("expected nil color, got %q", *line.Color)
			case tc.want != nil && (line.Color == nil || *line.Color != *tc.want):
				t.Fatalf("expected color %q, got %v", *tc.want, line.Color)
			}
		})
	}
}

func TestUpdateQuantityGuardsInvalidInput(t *testing.T) {
	t.Parallel()

	product := newTestProduct(decimal.NewFromInt(100), nil)
	svc, repo := newTestService(product)
	userID := uuid.New()
	ctx := context.Background()

	added, err := svc.Add(ctx, userID, AddInput{ProductID: product.ID, Quantity: 4})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	for _, qty := range []int{0, -1} {
		got, err := svc.UpdateQuantity(ctx, userID, added.LineKey, qty)
		if err != nil {
			t.Fatalf("update qty=%d: %v", qty, err)
		}
		if got.Quantity != 4 {
			t.Fatalf("quantity mutated by invalid update: %d", got.Quantity)
		}
	}

	got, err := svc.UpdateQuantity(ctx, userID, added.LineKey, 9)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Quantity != 9 {
		t.Fatalf("expected quantity 9, got %d", got.Quantity)
	}
	if repo.all(userID)[0].Quantity != 9 {
		t.Fatal("update not persisted")
	}
}

func TestUpdateQuantityUnknownLine(t *testing.T) {
	t.Parallel()

	product := newTestProduct(decimal.NewFromInt(100), nil)
	svc, _ := newTestService(product)

	_, err := svc.UpdateQuantity(context.Background(), uuid.New(), "missing-key", 2)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRemoveAbsentLineIsNoop(t *testing.T) {
	t.Parallel()

	product := newTestProduct(decimal.NewFromInt(100), nil)
	svc, _ := newTestService(product)

	if err := svc.Remove(context.Background(), uuid.New(), "missing-key"); err != nil {
		t.Fatalf("expected no error removing absent line, got %v", err)
	}
}

func TestTotalsAppliesTierPricing(t *testing.T) {
	t.Parallel()

	product := newTestProduct(decimal.NewFromInt(100000), testTiers)
	svc, _ := newTestService(product)
	userID := uuid.New()
	ctx := context.Background()

	if _, err := svc.Add(ctx, userID, AddInput{ProductID: product.ID, Quantity: 60}); err != nil {
		t.Fatalf("add: %v", err)
	}

	totals, err := svc.Totals(ctx, userID)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if want := decimal.NewFromInt(5700000); !totals.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, totals.Total)
	}
	if totals.Count != 60 {
		t.Fatalf("expected count 60, got %d", totals.Count)
	}
}

func TestTotalsInvariantUnderAddOrder(t *testing.T) {
	t.Parallel()

	productA := newTestProduct(decimal.NewFromInt(15000), testTiers)
	productB := newTestProduct(decimal.NewFromInt(40000), nil)

	run := func(order []AddInput) decimal.Decimal {
		svc, _ := newTestService(productA, productB)
		userID := uuid.New()
		ctx := context.Background()
		for _, input := range order {
			if _, err := svc.Add(ctx, userID, input); err != nil {
				t.Fatalf("add: %v", err)
			}
		}
		totals, err := svc.Totals(ctx, userID)
		if err != nil {
			t.Fatalf("totals: %v", err)
		}
		return totals.Total
	}

	forward := run([]AddInput{
		{ProductID: productA.ID, Quantity: 30},
		{ProductID: productB.ID, Quantity: 2},
		{ProductID: productA.ID, Quantity: 25},
	})
	reversed := run([]AddInput{
		{ProductID: productA.ID, Quantity: 25},
		{ProductID: productB.ID, Quantity: 2},
		{ProductID: productA.ID, Quantity: 30},
	})

	if !forward.Equal(reversed) {
		t.Fatalf("totals differ by add order: %s vs %s", forward, reversed)
	}
}

func TestAddInactiveProduct(t *testing.T) {
	t.Parallel()

	product := newTestProduct(decimal.NewFromInt(100), nil)
	product.IsActive = false
	svc, _ := newTestService(product)

	_, err := svc.Add(context.Background(), uuid.New(), AddInput{ProductID: product.ID, Quantity: 1})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for inactive product, got %v", err)
	}
}

func newTestProduct(price decimal.Decimal, tiers types.PriceTiers) *models.Product {
	return &models.Product{
		ID:         uuid.New(),
		Name:       types.LocalizedText{UZ: "Mahsulot"},
		Price:      price,
		PriceTiers: tiers,
		IsActive:   true,
	}
}

func newTestService(productList ...*models.Product) (Service, *memLineRepo) {
	repo := newMemLineRepo()
	byID := map[uuid.UUID]*models.Product{}
	for _, p := range productList {
		byID[p.ID] = p
	}
	svc, err := NewService(repo, stubTxRunner{}, productLoaderFunc(func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
		if p, ok := byID[id]; ok {
			return p, nil
		}
		return nil, gorm.ErrRecordNotFound
	}))
	if err != nil {
		panic(err)
	}
	return svc, repo
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type productLoaderFunc func(ctx context.Context, id uuid.UUID) (*models.Product, error)

func (fn productLoaderFunc) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return fn(ctx, id)
}

type memLineRepo struct {
	lines map[uuid.UUID][]*models.CartLine
}

func newMemLineRepo() *memLineRepo {
	return &memLineRepo{lines: map[uuid.UUID][]*models.CartLine{}}
}

func (m *memLineRepo) all(userID uuid.UUID) []models.CartLine {
	out := make([]models.CartLine, 0, len(m.lines[userID]))
	for _, line := range m.lines[userID] {
		out = append(out, *line)
	}
	return out
}

func (m *memLineRepo) WithTx(tx *gorm.DB) LineRepository { return m }

func (m *memLineRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	return m.all(userID), nil
}

func (m *memLineRepo) FindByUserAndKey(ctx context.Context, userID uuid.UUID, lineKey string) (*models.CartLine, error) {
	for _, line := range m.lines[userID] {
		if line.LineKey == lineKey {
			return line, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memLineRepo) Create(ctx context.Context, line *models.CartLine) (*models.CartLine, error) {
	line.ID = uuid.New()
	m.lines[line.UserID] = append(m.lines[line.UserID], line)
	return line, nil
}

func (m *memLineRepo) Update(ctx context.Context, line *models.CartLine) (*models.CartLine, error) {
	for i, existing := range m.lines[line.UserID] {
		if existing.LineKey == line.LineKey {
			m.lines[line.UserID][i] = line
			return line, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memLineRepo) Delete(ctx context.Context, userID uuid.UUID, lineKey string) error {
	kept := m.lines[userID][:0]
	for _, line := range m.lines[userID] {
		if line.LineKey != lineKey {
			kept = append(kept, line)
		}
	}
	m.lines[userID] = kept
	return nil
}

func (m *memLineRepo) DeleteAllByUser(ctx context.Context, userID uuid.UUID) error {
	delete(m.lines, userID)
	return nil
}

func (m *memLineRepo) NextPosition(ctx context.Context, userID uuid.UUID) (int, error) {
	return len(m.lines[userID]), nil
}

func strPtr(s string) *string { return &s }
