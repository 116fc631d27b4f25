package mock

import "github.com/fwojciec/rustdoc"

var _ rustdoc.Converter = (*Converter)(nil)

// Converter is a mock implementation of rustdoc.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
