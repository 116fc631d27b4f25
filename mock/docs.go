package mock

import (
	"context"

	"github.com/fwojciec/rustdoc"
)

var _ rustdoc.DocsService = (*DocsService)(nil)

// DocsService is a mock implementation of rustdoc.DocsService.
type DocsService struct {
	FindModuleFn func(ctx context.Context, crate, version, modulePath string) (*rustdoc.Module, error)
	FindIndexFn  func(ctx context.Context, crate, version string) (*rustdoc.Index, error)
	FindItemFn   func(ctx context.Context, item *rustdoc.Item) (*rustdoc.Item, error)
}

func (s *DocsService) FindModule(ctx context.Context, crate, version, modulePath string) (*rustdoc.Module, error) {
	return s.FindModuleFn(ctx, crate, version, modulePath)
}

func (s *DocsService) FindIndex(ctx context.Context, crate, version string) (*rustdoc.Index, error) {
	return s.FindIndexFn(ctx, crate, version)
}

func (s *DocsService) FindItem(ctx context.Context, item *rustdoc.Item) (*rustdoc.Item, error) {
	return s.FindItemFn(ctx, item)
}
