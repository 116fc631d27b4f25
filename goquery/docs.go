// Package goquery parses rustdoc pages served by docs.rs using
// github.com/PuerkitoBio/goquery.
package goquery

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/rustdoc"
)

// DefaultBaseURL is the documentation host.
const DefaultBaseURL = "https://docs.rs/"

// Ensure DocsService implements rustdoc.DocsService at compile time.
var _ rustdoc.DocsService = (*DocsService)(nil)

// DocsService fetches rustdoc pages and parses them into domain types.
type DocsService struct {
	fetcher   rustdoc.Fetcher
	converter rustdoc.Converter
	base      *url.URL
}

// NewDocsService creates a DocsService reading pages below baseURL.
// Docblocks are rendered with converter; a nil converter keeps plain text.
func NewDocsService(fetcher rustdoc.Fetcher, converter rustdoc.Converter, baseURL string) (*DocsService, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, rustdoc.Errorf(rustdoc.EINVALID, "invalid base URL: %q", baseURL)
	}
	return &DocsService{fetcher: fetcher, converter: converter, base: base}, nil
}

// ModuleURL returns the index page of a module, e.g.
// https://docs.rs/komodo_client/latest/komodo_client/api/read/index.html.
func (s *DocsService) ModuleURL(crate, version, modulePath string) string {
	elems := []string{crate, version}
	elems = append(elems, strings.Split(rustdoc.NormalizeModulePath(crate, modulePath), "/")...)
	elems = append(elems, "index.html")
	return s.base.JoinPath(elems...).String()
}

// IndexURL returns the crate-wide "all items" page.
func (s *DocsService) IndexURL(crate, version string) string {
	return s.base.JoinPath(crate, version, crate, "all.html").String()
}

// FindModule fetches and parses a module page.
func (s *DocsService) FindModule(ctx context.Context, crate, version, modulePath string) (*rustdoc.Module, error) {
	pageURL := s.ModuleURL(crate, version, modulePath)
	doc, page, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	m := &rustdoc.Module{
		Crate:      crate,
		Version:    pageVersion(doc, version),
		ModulePath: moduleFQN(doc),
		PageURL:    pageURL,
	}
	if m.ModulePath == "" {
		m.ModulePath = strings.ReplaceAll(rustdoc.NormalizeModulePath(crate, modulePath), "/", "::")
	}

	doc.Find("h2.section-header[id]").Each(func(_ int, h2 *goquery.Selection) {
		dl := h2.NextUntil("h2.section-header").Filter("dl.item-table").First()
		if dl.Length() == 0 {
			return
		}
		id, _ := h2.Attr("id")
		section := &rustdoc.Section{
			ID:    id,
			Title: cleanText(h2.Clone().Find("a").Remove().End().Text()),
			Items: []*rustdoc.Item{},
		}
		dl.Children().Filter("dt").Each(func(_ int, dt *goquery.Selection) {
			if item := s.parseItem(dt, page); item != nil {
				section.Items = append(section.Items, item)
			}
		})
		m.Sections = append(m.Sections, section)
	})

	return m, nil
}

// parseItem reads one dt/dd pair of an item table.
func (s *DocsService) parseItem(dt *goquery.Selection, page *url.URL) *rustdoc.Item {
	a := dt.Find("a[href]").First()
	class, _ := a.Attr("class")
	kinds := strings.Fields(class)
	if len(kinds) == 0 {
		return nil
	}
	href, _ := a.Attr("href")

	item := &rustdoc.Item{
		Kind: kinds[0],
		Name: cleanText(a.Text()),
		Href: href,
		URL:  absoluteURL(page, href),
	}
	if dd := dt.Next(); dd.Is("dd") {
		item.Summary = strings.Join(strings.Fields(s.markdown(dd, page)), " ")
	}
	return item
}

// FindIndex fetches and parses the crate's "all items" page.
func (s *DocsService) FindIndex(ctx context.Context, crate, version string) (*rustdoc.Index, error) {
	pageURL := s.IndexURL(crate, version)
	doc, page, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	idx := &rustdoc.Index{
		Crate:   crate,
		Version: pageVersion(doc, version),
		URL:     pageURL,
		Items:   []*rustdoc.IndexItem{},
	}
	doc.Find("ul.all-items").Each(func(_ int, ul *goquery.Selection) {
		sectionID, _ := ul.PrevAllFiltered("h3[id]").First().Attr("id")
		ul.Find("li a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			itemPath := cleanText(a.Text())
			if itemPath == "" {
				return
			}
			idx.Items = append(idx.Items, &rustdoc.IndexItem{
				Kind: indexKind(href, sectionID),
				Path: itemPath,
				Href: href,
				URL:  absoluteURL(page, href),
			})
		})
	})

	return idx, nil
}

// FindItem fetches an item page and returns a copy of item with its
// declaration and top-level docs.
func (s *DocsService) FindItem(ctx context.Context, item *rustdoc.Item) (*rustdoc.Item, error) {
	doc, page, err := s.fetch(ctx, item.URL)
	if err != nil {
		return nil, err
	}

	other := *item
	other.Expanded = true
	if decl := doc.Find("pre.rust.item-decl").First(); decl.Length() > 0 {
		other.Signature = strings.TrimSpace(decl.Text())
	}
	if block := doc.Find("div.docblock:not(.item-decl)").First(); block.Length() > 0 {
		block.Find("a.doc-anchor").Remove()
		block.Find("pre.rust > code").AddClass("language-rust")
		other.Docs = s.markdown(block, page)
	}
	return &other, nil
}

func (s *DocsService) fetch(ctx context.Context, pageURL string) (*goquery.Document, *url.URL, error) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, rustdoc.Errorf(rustdoc.EINVALID, "invalid page URL: %q", pageURL)
	}

	html, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, rustdoc.Errorf(rustdoc.EFETCH, "failed to parse HTML from %s: %v", pageURL, err)
	}
	return doc, page, nil
}

// markdown renders the inner HTML of sel with links made absolute. It
// falls back to the element text when conversion is unavailable or fails.
func (s *DocsService) markdown(sel *goquery.Selection, page *url.URL) string {
	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if abs := absoluteURL(page, href); abs != "" {
			a.SetAttr("href", abs)
		}
	})

	text := strings.TrimSpace(sel.Text())
	if text == "" || s.converter == nil {
		return text
	}
	html, err := sel.Html()
	if err != nil {
		return text
	}
	md, err := s.converter.Convert(html)
	if err != nil {
		return text
	}
	return md
}

func pageVersion(doc *goquery.Document, fallback string) string {
	if v := cleanText(doc.Find("span.version").First().Text()); v != "" {
		return v
	}
	return fallback
}

// moduleFQN joins the breadcrumb trail and the module heading, e.g.
// "komodo_client::api::read".
func moduleFQN(doc *goquery.Document) string {
	var parts []string
	doc.Find("div.rustdoc-breadcrumbs a").Each(func(_ int, a *goquery.Selection) {
		if t := cleanText(a.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	h1 := doc.Find("h1").First()
	heading := cleanText(h1.Text())
	if strings.HasPrefix(heading, "Module ") || strings.HasPrefix(heading, "Crate ") {
		if name := cleanText(h1.Find("span").First().Text()); name != "" {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "::")
}

// sectionKinds maps all.html section ids to item kinds.
var sectionKinds = map[string]string{
	"functions":     "fn",
	"attributes":    "attr",
	"derives":       "derive",
	"trait-aliases": "traitalias",
}

// indexKind derives the item kind from a rustdoc file name such as
// "type.StackListItem.html", falling back to the section heading.
func indexKind(href, sectionID string) string {
	file := path.Base(href)
	if kind, rest, ok := strings.Cut(file, "."); ok && kind != "index" && strings.HasSuffix(rest, ".html") {
		return kind
	}
	if kind, ok := sectionKinds[sectionID]; ok {
		return kind
	}
	return strings.TrimSuffix(sectionID, "s")
}

// cleanText collapses whitespace and drops soft hyphens.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00ad", "")
	return strings.Join(strings.Fields(s), " ")
}

// absoluteURL resolves href against the page URL. It returns "" when href
// cannot be parsed.
func absoluteURL(page *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return page.ResolveReference(ref).String()
}
