package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fwojciec/rustdoc"
	"github.com/fwojciec/rustdoc/mock"
	rdslog "github.com/fwojciec/rustdoc/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingDocsService_FindModule(t *testing.T) {
	t.Parallel()

	t.Run("logs module lookup with section count", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.DocsService{
			FindModuleFn: func(ctx context.Context, crate, version, modulePath string) (*rustdoc.Module, error) {
				return &rustdoc.Module{Sections: []*rustdoc.Section{{ID: "structs"}, {ID: "enums"}}}, nil
			},
		}

		svc := rdslog.NewLoggingDocsService(inner, logger)
		m, err := svc.FindModule(context.Background(), "komodo_client", "latest", "api::read")

		require.NoError(t, err)
		assert.Len(t, m.Sections, 2)
		output := buf.String()
		assert.Contains(t, output, "find module")
		assert.Contains(t, output, "crate=komodo_client")
		assert.Contains(t, output, "module=api::read")
		assert.Contains(t, output, "sections=2")
		assert.Contains(t, output, "duration=")
	})

	t.Run("logs error on failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.DocsService{
			FindModuleFn: func(ctx context.Context, crate, version, modulePath string) (*rustdoc.Module, error) {
				return nil, errors.New("boom")
			},
		}

		svc := rdslog.NewLoggingDocsService(inner, logger)
		_, err := svc.FindModule(context.Background(), "komodo_client", "latest", "api::read")

		require.Error(t, err)
		output := buf.String()
		assert.Contains(t, output, "sections=0")
		assert.Contains(t, output, "err=boom")
	})
}

func TestLoggingDocsService_FindIndex(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	inner := &mock.DocsService{
		FindIndexFn: func(ctx context.Context, crate, version string) (*rustdoc.Index, error) {
			return &rustdoc.Index{Items: []*rustdoc.IndexItem{{Path: "a::B"}}}, nil
		},
	}

	svc := rdslog.NewLoggingDocsService(inner, logger)
	idx, err := svc.FindIndex(context.Background(), "komodo_client", "1.2.3")

	require.NoError(t, err)
	assert.Len(t, idx.Items, 1)
	output := buf.String()
	assert.Contains(t, output, "find index")
	assert.Contains(t, output, "version=1.2.3")
	assert.Contains(t, output, "count=1")
}

func TestLoggingDocsService_FindItem(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	inner := &mock.DocsService{
		FindItemFn: func(ctx context.Context, item *rustdoc.Item) (*rustdoc.Item, error) {
			other := *item
			other.Signature = "pub struct Foo;"
			return &other, nil
		},
	}

	svc := rdslog.NewLoggingDocsService(inner, logger)
	item, err := svc.FindItem(context.Background(), &rustdoc.Item{URL: "https://docs.rs/x/latest/x/struct.Foo.html"})

	require.NoError(t, err)
	assert.Equal(t, "pub struct Foo;", item.Signature)
	assert.Contains(t, buf.String(), "url=https://docs.rs/x/latest/x/struct.Foo.html")
}
