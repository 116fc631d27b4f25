package rustdoc

// Converter converts HTML fragments to Markdown.
type Converter interface {
	// Convert transforms an HTML fragment (a rustdoc docblock or item
	// summary) into Markdown. Surrounding whitespace is trimmed.
	Convert(html string) (string, error)
}
