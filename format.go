package rustdoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ModuleFormat controls how a module page is rendered.
type ModuleFormat struct {
	// IncludeItemDocs renders the signature and docs of expanded items
	// below each section listing.
	IncludeItemDocs bool

	// MaxItems caps how many items per section were expanded.
	MaxItems int
}

// SearchResult holds the hits of an index search.
type SearchResult struct {
	Crate   string
	Version string
	Query   string
	Hits    []*IndexItem
}

// ItemResult holds a resolved item page plus the other candidates that
// matched the lookup.
type ItemResult struct {
	Crate        string
	Version      string
	Path         string
	Item         *Item
	Alternatives []*IndexItem
}

// FormatModuleMarkdown renders a module as a sectioned Markdown overview.
func FormatModuleMarkdown(m *Module, opts ModuleFormat) string {
	lines := []string{
		"# " + m.ModulePath,
		"",
		fmt.Sprintf("- Crate: `%s`", m.Crate),
		fmt.Sprintf("- Version: `%s`", m.Version),
		"- Source: " + m.PageURL,
		"",
	}

	for _, section := range m.Sections {
		if len(section.Items) == 0 {
			continue
		}
		lines = append(lines, "## "+section.Title, "")
		for _, item := range section.Items {
			if item.Summary != "" {
				lines = append(lines, fmt.Sprintf("- `%s` — %s (%s)", item.Name, item.Summary, item.URL))
			} else {
				lines = append(lines, fmt.Sprintf("- `%s` (%s)", item.Name, item.URL))
			}
		}
		lines = append(lines, "")

		if !opts.IncludeItemDocs {
			continue
		}
		for i, item := range section.Items {
			if i >= opts.MaxItems {
				lines = append(lines, fmt.Sprintf("_Stopped after %d items (maxItems)._", opts.MaxItems), "")
				break
			}
			if !item.Expanded {
				continue
			}
			lines = append(lines, "### "+item.Name, "")
			lines = appendDetail(lines, item)
		}
	}

	return joinLines(lines)
}

// FormatModuleJSON renders a module as indented JSON.
func FormatModuleJSON(m *Module) (string, error) {
	if m.Sections == nil {
		other := *m
		other.Sections = []*Section{}
		m = &other
	}
	return marshalIndent(m)
}

// FormatSearchMarkdown renders search hits as a Markdown list.
func FormatSearchMarkdown(r *SearchResult) string {
	lines := []string{
		"# Search: " + r.Query,
		"",
		fmt.Sprintf("- Crate: `%s`", r.Crate),
		fmt.Sprintf("- Version: `%s`", r.Version),
		"",
	}
	if len(r.Hits) == 0 {
		lines = append(lines, "_No matches._")
		return joinLines(lines)
	}
	for _, hit := range r.Hits {
		lines = append(lines, formatHit(hit))
	}
	return joinLines(lines)
}

// FormatSearchJSON renders search hits as indented JSON.
func FormatSearchJSON(r *SearchResult) (string, error) {
	hits := r.Hits
	if hits == nil {
		hits = []*IndexItem{}
	}
	return marshalIndent(struct {
		Crate   string       `json:"crate"`
		Version string       `json:"version"`
		Query   string       `json:"query"`
		Hits    []*IndexItem `json:"hits"`
	}{r.Crate, r.Version, r.Query, hits})
}

// FormatItemMarkdown renders a single item page with its signature, docs
// and any alternative matches.
func FormatItemMarkdown(r *ItemResult) string {
	lines := []string{
		"# " + r.Path,
		"",
		fmt.Sprintf("- Crate: `%s`", r.Crate),
		fmt.Sprintf("- Version: `%s`", r.Version),
		"- Source: " + r.Item.URL,
		"",
	}
	lines = appendDetail(lines, r.Item)

	if len(r.Alternatives) > 0 {
		lines = append(lines, "## Other matches", "")
		for _, alt := range r.Alternatives {
			lines = append(lines, formatHit(alt))
		}
		lines = append(lines, "")
	}
	return joinLines(lines)
}

// FormatItemJSON renders a single item page as indented JSON.
func FormatItemJSON(r *ItemResult) (string, error) {
	type itemJSON struct {
		Kind      string `json:"kind"`
		Path      string `json:"itemPath"`
		URL       string `json:"url"`
		Signature string `json:"signature"`
		Docs      string `json:"docs"`
	}
	type alternativeJSON struct {
		Kind string `json:"kind"`
		Path string `json:"itemPath"`
		URL  string `json:"url"`
	}

	alts := make([]alternativeJSON, 0, len(r.Alternatives))
	for _, a := range r.Alternatives {
		alts = append(alts, alternativeJSON{Kind: a.Kind, Path: a.Path, URL: a.URL})
	}

	return marshalIndent(struct {
		Crate        string            `json:"crate"`
		Version      string            `json:"version"`
		Item         itemJSON          `json:"item"`
		Alternatives []alternativeJSON `json:"alternatives"`
	}{
		Crate:   r.Crate,
		Version: r.Version,
		Item: itemJSON{
			Kind:      r.Item.Kind,
			Path:      r.Path,
			URL:       r.Item.URL,
			Signature: r.Item.Signature,
			Docs:      r.Item.Docs,
		},
		Alternatives: alts,
	})
}

func appendDetail(lines []string, item *Item) []string {
	if item.Signature != "" {
		lines = append(lines, "```rust", item.Signature, "```", "")
	}
	if item.Docs != "" {
		lines = append(lines, item.Docs, "")
	}
	return lines
}

func formatHit(hit *IndexItem) string {
	return fmt.Sprintf("- `%s` (%s) — %s", hit.Path, hit.Kind, hit.URL)
}

func joinLines(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}

// marshalIndent encodes v as two-space indented JSON with a trailing
// newline. HTML characters are left unescaped.
func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
