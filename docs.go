package rustdoc

import (
	"context"
	"strings"
)

// Item represents a documented symbol listed on a rustdoc page.
type Item struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Href      string `json:"href"`
	URL       string `json:"url"`
	Summary   string `json:"summary"`
	Signature string `json:"signature"`
	Docs      string `json:"docs"`

	// Expanded is set once the item's own page has been fetched and
	// Signature/Docs reflect it.
	Expanded bool `json:"-"`
}

// Section groups the items of one kind on a module page (e.g. "Structs").
type Section struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Items []*Item `json:"items"`
}

// Module represents a parsed rustdoc module page.
type Module struct {
	Crate      string     `json:"crate"`
	Version    string     `json:"version"`
	ModulePath string     `json:"modulePath"`
	PageURL    string     `json:"pageUrl"`
	Sections   []*Section `json:"sections"`
}

// IndexItem is one entry of a crate's "all items" listing.
type IndexItem struct {
	Kind string `json:"kind"`
	Path string `json:"itemPath"`
	Href string `json:"href"`
	URL  string `json:"url"`
}

// Index is the flat list of every public symbol in a crate, in page order.
type Index struct {
	Crate   string       `json:"crate"`
	Version string       `json:"version"`
	URL     string       `json:"url"`
	Items   []*IndexItem `json:"items"`
}

// DocsService looks up crate documentation.
type DocsService interface {
	// FindModule fetches and parses the module page for modulePath.
	// The module path may use "::" or "/" separators and may omit the
	// crate prefix.
	FindModule(ctx context.Context, crate, version, modulePath string) (*Module, error)

	// FindIndex fetches and parses the crate-wide all-items page.
	FindIndex(ctx context.Context, crate, version string) (*Index, error)

	// FindItem fetches the item's own page and returns a copy with
	// Signature, Docs and Expanded populated.
	FindItem(ctx context.Context, item *Item) (*Item, error)
}

// NormalizeModulePath converts a module path such as "api::read" or
// "komodo_client::api::read" into the slash-separated directory used by
// docs.rs, always rooted at the crate.
func NormalizeModulePath(crate, modulePath string) string {
	p := strings.TrimSpace(modulePath)
	p = strings.Trim(strings.ReplaceAll(p, "::", "/"), "/")
	if p == "" {
		return crate
	}
	if p != crate && !strings.HasPrefix(p, crate+"/") {
		p = crate + "/" + p
	}
	return p
}

// FilterModule returns a copy of m keeping only items whose name or summary
// contains query, case-insensitively. Sections left empty are dropped.
// A blank query returns m unchanged.
func FilterModule(m *Module, query string) *Module {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return m
	}

	other := *m
	other.Sections = nil
	for _, section := range m.Sections {
		var items []*Item
		for _, item := range section.Items {
			if strings.Contains(strings.ToLower(item.Name), q) ||
				strings.Contains(strings.ToLower(item.Summary), q) {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			other.Sections = append(other.Sections, &Section{
				ID:    section.ID,
				Title: section.Title,
				Items: items,
			})
		}
	}
	return &other
}

// SearchIndex returns up to limit items whose full path contains query,
// case-insensitively, in index order.
func SearchIndex(items []*IndexItem, query string, limit int) []*IndexItem {
	q := strings.ToLower(strings.TrimSpace(query))

	var hits []*IndexItem
	for _, item := range items {
		if len(hits) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(item.Path), q) {
			hits = append(hits, item)
		}
	}
	return hits
}

// FindIndexItem returns the item whose full path equals path exactly, or nil.
func FindIndexItem(items []*IndexItem, path string) *IndexItem {
	path = strings.TrimSpace(path)
	for _, item := range items {
		if item.Path == path {
			return item
		}
	}
	return nil
}

// Name returns the last path segment of the item, e.g. "Foo" for
// "api::read::Foo".
func (i *IndexItem) Name() string {
	if idx := strings.LastIndex(i.Path, "::"); idx >= 0 {
		return i.Path[idx+2:]
	}
	return i.Path
}
