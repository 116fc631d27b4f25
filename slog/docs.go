package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/rustdoc"
)

// Ensure LoggingDocsService implements rustdoc.DocsService.
var _ rustdoc.DocsService = (*LoggingDocsService)(nil)

// LoggingDocsService wraps a DocsService with logging.
type LoggingDocsService struct {
	next   rustdoc.DocsService
	logger *slog.Logger
}

// NewLoggingDocsService creates a new LoggingDocsService.
func NewLoggingDocsService(next rustdoc.DocsService, logger *slog.Logger) *LoggingDocsService {
	return &LoggingDocsService{next: next, logger: logger}
}

// FindModule delegates to the wrapped service and logs the lookup.
func (s *LoggingDocsService) FindModule(ctx context.Context, crate, version, modulePath string) (m *rustdoc.Module, err error) {
	defer func(begin time.Time) {
		sections := 0
		if m != nil {
			sections = len(m.Sections)
		}
		s.logger.Info("find module",
			"crate", crate,
			"version", version,
			"module", modulePath,
			"sections", sections,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindModule(ctx, crate, version, modulePath)
}

// FindIndex delegates to the wrapped service and logs the lookup.
func (s *LoggingDocsService) FindIndex(ctx context.Context, crate, version string) (idx *rustdoc.Index, err error) {
	defer func(begin time.Time) {
		count := 0
		if idx != nil {
			count = len(idx.Items)
		}
		s.logger.Info("find index",
			"crate", crate,
			"version", version,
			"count", count,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindIndex(ctx, crate, version)
}

// FindItem delegates to the wrapped service and logs the lookup.
func (s *LoggingDocsService) FindItem(ctx context.Context, item *rustdoc.Item) (_ *rustdoc.Item, err error) {
	defer func(begin time.Time) {
		s.logger.Info("find item",
			"url", item.URL,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindItem(ctx, item)
}
