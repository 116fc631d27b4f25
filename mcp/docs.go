package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/rustdoc"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// Defaults for the documentation tools.
const (
	DefaultCrate      = "komodo_client"
	DefaultToolPrefix = "komodo_docs"
	DefaultVersion    = "latest"
)

// Output formats accepted by the format argument.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// DocsTools exposes a DocsService as MCP tools.
type DocsTools struct {
	Docs rustdoc.DocsService

	// Crate is looked up when a call omits the crate argument.
	Crate string

	// Prefix is prepended to every tool name.
	Prefix string
}

// NewDocsTools returns DocsTools for the default crate and tool prefix.
func NewDocsTools(docs rustdoc.DocsService) *DocsTools {
	return &DocsTools{
		Docs:   docs,
		Crate:  DefaultCrate,
		Prefix: DefaultToolPrefix,
	}
}

// Register adds the module, search and item tools to s.
func (d *DocsTools) Register(s *Server) {
	s.AddTool(d.moduleTool(), d.ModuleDocs, d.Prefix+".get_module_docs")
	s.AddTool(d.searchTool(), d.Search)
	s.AddTool(d.itemTool(), d.ItemDocs)
}

// Instructions returns the usage hint advertised from initialize.
func (d *DocsTools) Instructions() string {
	return fmt.Sprintf("Use %s_get_module_docs to fetch and format docs.rs API docs, "+
		"%s_search to find symbols and %s_get_item_docs to read one symbol.",
		d.Prefix, d.Prefix, d.Prefix)
}

// ModuleDocs renders the sectioned overview of a module page.
func (d *DocsTools) ModuleDocs(ctx context.Context, args Arguments) (*mcpgo.CallToolResult, error) {
	crate := args.String("crate", d.Crate)
	version := args.String("version", DefaultVersion)
	modulePath := args.String("modulePath", crate+"::api::read")
	query := args.String("query", "")
	includeItemDocs := args.Bool("includeItemDocs", false)
	maxItems := args.Int("maxItems", 50, 1, 500)
	format := args.OneOf("format", FormatMarkdown, FormatMarkdown, FormatJSON)

	switch strings.ToLower(modulePath) {
	case "stack", "stacks":
		modulePath = crate + "::api::read"
		if query == "" {
			query = "stack"
		}
	}

	m, err := d.Docs.FindModule(ctx, crate, version, modulePath)
	if err != nil {
		return docsFailure(err)
	}
	m = rustdoc.FilterModule(m, query)

	if includeItemDocs {
		if m, err = d.expandModule(ctx, m, maxItems); err != nil {
			return docsFailure(err)
		}
	}

	if format == FormatJSON {
		text, err := rustdoc.FormatModuleJSON(m)
		if err != nil {
			return nil, err
		}
		return mcpgo.NewToolResultText(text), nil
	}
	return mcpgo.NewToolResultText(rustdoc.FormatModuleMarkdown(m, rustdoc.ModuleFormat{
		IncludeItemDocs: includeItemDocs,
		MaxItems:        maxItems,
	})), nil
}

// expandModule returns a copy of m whose first maxItems items per section
// carry their signature and docs.
func (d *DocsTools) expandModule(ctx context.Context, m *rustdoc.Module, maxItems int) (*rustdoc.Module, error) {
	other := *m
	other.Sections = make([]*rustdoc.Section, 0, len(m.Sections))
	for _, section := range m.Sections {
		items := make([]*rustdoc.Item, len(section.Items))
		for i, item := range section.Items {
			if i >= maxItems {
				items[i] = item
				continue
			}
			detailed, err := d.Docs.FindItem(ctx, item)
			if err != nil {
				return nil, err
			}
			items[i] = detailed
		}
		other.Sections = append(other.Sections, &rustdoc.Section{
			ID:    section.ID,
			Title: section.Title,
			Items: items,
		})
	}
	return &other, nil
}

// Search lists index entries whose path contains the query.
func (d *DocsTools) Search(ctx context.Context, args Arguments) (*mcpgo.CallToolResult, error) {
	crate := args.String("crate", d.Crate)
	version := args.String("version", DefaultVersion)
	query := args.String("query", "")
	limit := args.Int("limit", 20, 1, 200)
	format := args.OneOf("format", FormatMarkdown, FormatMarkdown, FormatJSON)

	idx, err := d.Docs.FindIndex(ctx, crate, version)
	if err != nil {
		return docsFailure(err)
	}

	r := &rustdoc.SearchResult{
		Crate:   crate,
		Version: idx.Version,
		Query:   query,
		Hits:    rustdoc.SearchIndex(idx.Items, query, limit),
	}
	if format == FormatJSON {
		text, err := rustdoc.FormatSearchJSON(r)
		if err != nil {
			return nil, err
		}
		return mcpgo.NewToolResultText(text), nil
	}
	return mcpgo.NewToolResultText(rustdoc.FormatSearchMarkdown(r)), nil
}

// ItemDocs renders the signature and docs of the best matching symbol.
// An exact full-path match anywhere in the index wins over the first
// partial match.
func (d *DocsTools) ItemDocs(ctx context.Context, args Arguments) (*mcpgo.CallToolResult, error) {
	crate := args.String("crate", d.Crate)
	version := args.String("version", DefaultVersion)
	query := args.String("item", "")
	maxMatches := args.Int("maxMatches", 10, 1, 50)
	format := args.OneOf("format", FormatMarkdown, FormatMarkdown, FormatJSON)

	if query == "" {
		return mcpgo.NewToolResultError("Missing required argument `item`.\n"), nil
	}

	idx, err := d.Docs.FindIndex(ctx, crate, version)
	if err != nil {
		return docsFailure(err)
	}

	hits := rustdoc.SearchIndex(idx.Items, query, maxMatches)
	if len(hits) == 0 {
		return mcpgo.NewToolResultError(fmt.Sprintf("No matches for `%s` in `%s` %s. Try %s_search.\n",
			query, crate, idx.Version, d.Prefix)), nil
	}

	chosen := rustdoc.FindIndexItem(idx.Items, query)
	if chosen == nil {
		chosen = hits[0]
	}
	var alternatives []*rustdoc.IndexItem
	for _, hit := range hits {
		if hit != chosen {
			alternatives = append(alternatives, hit)
		}
	}

	item, err := d.Docs.FindItem(ctx, &rustdoc.Item{
		Kind: chosen.Kind,
		Name: chosen.Name(),
		Href: chosen.Href,
		URL:  chosen.URL,
	})
	if err != nil {
		return docsFailure(err)
	}

	r := &rustdoc.ItemResult{
		Crate:        crate,
		Version:      idx.Version,
		Path:         chosen.Path,
		Item:         item,
		Alternatives: alternatives,
	}
	if format == FormatJSON {
		text, err := rustdoc.FormatItemJSON(r)
		if err != nil {
			return nil, err
		}
		return mcpgo.NewToolResultText(text), nil
	}
	return mcpgo.NewToolResultText(rustdoc.FormatItemMarkdown(r)), nil
}

// docsFailure turns an upstream lookup failure into a tool error the caller
// can read. Other errors are returned unchanged.
func docsFailure(err error) (*mcpgo.CallToolResult, error) {
	switch rustdoc.ErrorCode(err) {
	case rustdoc.EFETCH, rustdoc.ENOTFOUND:
		return mcpgo.NewToolResultError("docs.rs error: " + rustdoc.ErrorMessage(err)), nil
	}
	return nil, err
}

func (d *DocsTools) moduleTool() mcpgo.Tool {
	return mcpgo.Tool{
		Name:        d.Prefix + "_get_module_docs",
		Description: "Fetch docs.rs rustdoc for a module and return a sectioned API overview (Markdown or JSON).",
		InputSchema: mcpgo.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"crate":           stringProperty(d.Crate),
				"version":         stringProperty(DefaultVersion),
				"modulePath":      stringProperty(d.Crate + "::api::read"),
				"query":           stringProperty(""),
				"includeItemDocs": map[string]any{"type": "boolean", "default": false},
				"maxItems":        intProperty(50, 1, 500),
				"format":          formatProperty(),
			},
		},
		Annotations: readOnly(),
	}
}

func (d *DocsTools) searchTool() mcpgo.Tool {
	return mcpgo.Tool{
		Name:        d.Prefix + "_search",
		Description: "Search the crate-wide docs.rs 'all items' index and return matching symbols with URLs.",
		InputSchema: mcpgo.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"crate":   stringProperty(d.Crate),
				"version": stringProperty(DefaultVersion),
				"query":   map[string]any{"type": "string"},
				"limit":   intProperty(20, 1, 200),
				"format":  formatProperty(),
			},
			Required: []string{"query"},
		},
		Annotations: readOnly(),
	}
}

func (d *DocsTools) itemTool() mcpgo.Tool {
	return mcpgo.Tool{
		Name:        d.Prefix + "_get_item_docs",
		Description: "Fetch docs.rs rustdoc page for a symbol (by name or full path) and return its signature + docs.",
		InputSchema: mcpgo.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"crate":   stringProperty(d.Crate),
				"version": stringProperty(DefaultVersion),
				"item": map[string]any{
					"type":        "string",
					"description": "Symbol name or full path like entities::stack::StackListItem",
				},
				"maxMatches": intProperty(10, 1, 50),
				"format":     formatProperty(),
			},
			Required: []string{"item"},
		},
		Annotations: readOnly(),
	}
}

func stringProperty(def string) map[string]any {
	return map[string]any{"type": "string", "default": def}
}

func intProperty(def, lo, hi int) map[string]any {
	return map[string]any{"type": "integer", "default": def, "minimum": lo, "maximum": hi}
}

func formatProperty() map[string]any {
	return map[string]any{
		"type":    "string",
		"default": FormatMarkdown,
		"enum":    []string{FormatMarkdown, FormatJSON},
	}
}

// readOnly marks a tool that only reads remote documentation.
func readOnly() mcpgo.ToolAnnotation {
	yes, no := true, false
	return mcpgo.ToolAnnotation{
		ReadOnlyHint:    &yes,
		DestructiveHint: &no,
		IdempotentHint:  &yes,
		OpenWorldHint:   &yes,
	}
}
