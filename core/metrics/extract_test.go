package metrics

import (
	"context"
	"testing"

	"github.com/huangsam/smellscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goOrderService = `package service

import (
	"context"

	"example.com/app/domain/entities"
)

// OrderService places orders.
type OrderService struct {
	repo   Repository
	logger Logger
	count  int
}

type Repository interface {
	Save(o *entities.Order) error
	find(id string) (*entities.Order, error)
}

func (s *OrderService) Place(ctx context.Context, o *entities.Order) error {
	// --- 1. validate ---
	if o.Total > 0 {
		for _, item := range o.Items {
			if item.Qty == 0 {
				return nil
			}
		}
	}
	// --- 2. persist ---
	s.count++
	return s.repo.Save(o)
}

func (s *OrderService) reset() {
	s.count = 0
}

func NewOrderService(repo Repository) *OrderService {
	return &OrderService{repo: repo}
}
`

const pyOrderService = `import os
from app.domain.entities import Order


class OrderService:
    retries = 3

    def __init__(self, repo):
        self.repo = repo
        self.count = 0

    def place(self, order: Order):
        # --- validate ---
        if order.total > 0:
            for item in order.items:
                if item.qty == 0:
                    return None
        # --- persist ---
        self.count += 1
        return self.repo.save(order)

    def _reset(self):
        self.count = 0
`

const tsOrderService = `import { Order } from "../domain/order";

export class OrderService {
  private count = 0;

  place(order: Order): void {
    if (order.total > 0) {
      this.count++;
    }
    this.repo.save(order);
  }

  private reset(): void {
    this.count = 0;
  }
}
`

func findUnit(t *testing.T, units []schema.Unit, name string) schema.Unit {
	t.Helper()
	for _, u := range units {
		if u.Name == name {
			return u
		}
	}
	require.Failf(t, "unit not found", "no unit named %s", name)
	return schema.Unit{}
}

func findMethod(t *testing.T, u schema.Unit, name string) schema.Method {
	t.Helper()
	for _, m := range u.Methods {
		if m.Name == name {
			return m
		}
	}
	require.Failf(t, "method not found", "no method %s on %s", name, u.Name)
	return schema.Method{}
}

func TestExtractGo(t *testing.T) {
	fc := schema.FileChange{Path: "lib/application/use_cases/order_service.go", Kind: schema.Modified, Content: goOrderService}
	units, warnings, err := Extract(context.Background(), fc)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, units, 3)

	svc := findUnit(t, units, "OrderService")
	assert.Equal(t, fc.Path, svc.Path)
	assert.Equal(t, []string{"repo", "logger", "count"}, svc.Fields)
	assert.Equal(t, []string{"context", "example.com/app/domain/entities"}, svc.Imports)
	assert.Contains(t, svc.References, schema.Reference{Target: "Repository", Kind: schema.ImportEdge})
	assert.Contains(t, svc.References, schema.Reference{Target: "entities.Order", Kind: schema.ImportEdge})
	assert.Contains(t, svc.References, schema.Reference{Target: "entities.Order", Kind: schema.FieldAccessEdge, Field: "Total"})
	assert.Contains(t, svc.References, schema.Reference{Target: "entities.Order", Kind: schema.FieldAccessEdge, Field: "Items"})
	assert.Equal(t, 1, svc.PublicMethodCount())

	place := findMethod(t, svc, "Place")
	assert.False(t, place.Private)
	assert.Equal(t, 3, place.NestingDepth)
	assert.Equal(t, 2, place.LogicalBlocks)
	assert.Equal(t, []string{"count", "repo"}, place.FieldsTouched)
	assert.Equal(t, []schema.Param{
		{Name: "ctx", Type: "context.Context"},
		{Name: "o", Type: "*entities.Order"},
	}, place.Params)

	reset := findMethod(t, svc, "reset")
	assert.True(t, reset.Private)
	assert.Equal(t, []string{"count"}, reset.FieldsTouched)
	assert.Equal(t, 1, reset.LogicalBlocks)

	repo := findUnit(t, units, "Repository")
	require.Len(t, repo.Methods, 2)
	assert.Equal(t, 1, repo.PublicMethodCount())

	free := findUnit(t, units, "order_service")
	require.Len(t, free.Methods, 1)
	assert.Equal(t, "NewOrderService", free.Methods[0].Name)
	assert.Contains(t, free.References, schema.Reference{Target: "Repository", Kind: schema.ImportEdge})
}

func TestExtractPython(t *testing.T) {
	fc := schema.FileChange{Path: "app/use_cases/order_service.py", Content: pyOrderService}
	units, warnings, err := Extract(context.Background(), fc)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, units, 1)

	svc := units[0]
	assert.Equal(t, "OrderService", svc.Name)
	assert.ElementsMatch(t, []string{"retries", "repo", "count"}, svc.Fields)
	assert.ElementsMatch(t, []string{"os", "app.domain.entities"}, svc.Imports)
	assert.Contains(t, svc.References, schema.Reference{Target: "Order", Kind: schema.FieldAccessEdge, Field: "total"})

	place := findMethod(t, svc, "place")
	assert.Equal(t, 3, place.NestingDepth)
	assert.Equal(t, 2, place.LogicalBlocks)
	assert.Equal(t, []string{"count", "repo"}, place.FieldsTouched)
	assert.Equal(t, []schema.Param{{Name: "order", Type: "Order"}}, place.Params)

	assert.True(t, findMethod(t, svc, "_reset").Private)
	assert.False(t, findMethod(t, svc, "__init__").Private)
}

func TestExtractTypeScript(t *testing.T) {
	fc := schema.FileChange{Path: "src/application/use_cases/orderService.ts", Content: tsOrderService}
	units, _, err := Extract(context.Background(), fc)
	require.NoError(t, err)
	require.Len(t, units, 1)

	svc := units[0]
	assert.Equal(t, "OrderService", svc.Name)
	assert.Contains(t, svc.Fields, "count")
	assert.Equal(t, []string{"../domain/order"}, svc.Imports)
	assert.Contains(t, svc.References, schema.Reference{Target: "Order", Kind: schema.ImportEdge})

	place := findMethod(t, svc, "place")
	assert.Equal(t, 1, place.NestingDepth)
	assert.Equal(t, []string{"count", "repo"}, place.FieldsTouched)
	assert.True(t, findMethod(t, svc, "reset").Private)
}

func TestExtractSummaryWins(t *testing.T) {
	fc := schema.FileChange{
		Path:    "lib/domain/entities/user.dart",
		Content: "class User {}",
		Imports: []string{"package:meta/meta.dart"},
		Units:   []schema.Unit{{Name: "User", Lines: 40, FieldCount: 3}},
	}
	units, warnings, err := Extract(context.Background(), fc)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, units, 1)
	assert.Equal(t, fc.Path, units[0].Path)
	assert.Equal(t, 40, units[0].Lines)
	assert.Equal(t, []string{"package:meta/meta.dart"}, units[0].Imports)
}

func TestExtractParseErrors(t *testing.T) {
	tests := []struct {
		name string
		fc   schema.FileChange
	}{
		{
			name: "broken go",
			fc:   schema.FileChange{Path: "lib/ui/view.go", Content: "package ui\n\nfunc (v *View Render( {\n"},
		},
		{
			name: "unsupported language",
			fc:   schema.FileChange{Path: "lib/ui/view.dart", Content: "class View {}", LineCount: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, warnings, err := Extract(context.Background(), tt.fc)
			require.NoError(t, err)
			require.Len(t, units, 1)
			assert.True(t, units[0].ParseError)
			assert.NotEmpty(t, units[0].ParseErrorMessage)
			assert.False(t, Analyzable(units[0]))
			require.Len(t, warnings, 1)
			assert.Equal(t, schema.ParseErrorWarning, warnings[0].Kind)
			assert.Equal(t, tt.fc.Path, warnings[0].Path)
		})
	}
}

func TestExtractPlaceholderAndDeleted(t *testing.T) {
	ctx := context.Background()

	units, warnings, err := Extract(ctx, schema.FileChange{Path: "lib/ui/pages/home_page.dart", LineCount: 80})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, units, 1)
	assert.Equal(t, "home_page", units[0].Name)
	assert.Equal(t, 80, units[0].Lines)
	assert.False(t, units[0].ParseError)

	units, warnings, err = Extract(ctx, schema.FileChange{Path: "lib/ui/old.dart", Kind: schema.Deleted, Content: "x"})
	require.NoError(t, err)
	assert.Empty(t, units)
	assert.Empty(t, warnings)
}

func TestExtractCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Extract(ctx, schema.FileChange{Path: "a.go", Content: goOrderService})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInconclusive(t *testing.T) {
	u := Inconclusive(schema.FileChange{Path: "lib/domain/entities/order.go", LineCount: 12})
	assert.True(t, u.Inconclusive)
	assert.Equal(t, "order", u.Name)
	assert.False(t, Analyzable(u))
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	assert.Contains(t, exts, ".go")
	assert.Contains(t, exts, ".py")
	assert.Contains(t, exts, ".ts")
	assert.IsIncreasing(t, exts)
}
