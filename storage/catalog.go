// Package storage loads the ingredient catalog override and archives completed plans.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"nutribudget"
	"nutribudget/prices"
)

// CatalogState loads a raw catalog document (YAML or JSON).
type CatalogState interface {
	Load(ctx context.Context) ([]byte, error)
}

type FileCatalogState struct {
	FilePath string
}

func NewFileCatalogState(filePath string) *FileCatalogState {
	return &FileCatalogState{FilePath: filePath}
}

func (f *FileCatalogState) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(f.FilePath)
}

// TestCatalogState is a simple in-memory implementation for testing
type TestCatalogState struct {
	data []byte
	err  error
}

func NewTestCatalogState(data []byte) *TestCatalogState {
	return &TestCatalogState{data: data}
}

func NewTestCatalogStateWithError() *TestCatalogState {
	return &TestCatalogState{err: errors.New("not found")}
}

func (t *TestCatalogState) Load(ctx context.Context) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}

// LoadCatalog loads and decodes a catalog override.
func LoadCatalog(ctx context.Context, state CatalogState) ([]nutribudget.PricedIngredient, error) {
	data, err := state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	items, err := prices.DecodeCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return items, nil
}
