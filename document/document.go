// Package document loads reference and candidate documents from disk and
// normalizes them into logical pages. A page may carry decoded text lines,
// a decoded grayscale pixel grid, both, or neither; downstream metrics
// branch on what is present rather than on file type.
package document

// Page is a single logical page of a loaded document. Pages are 0-indexed
// in source order; alignment may later pair them out of order.
type Page struct {
	Index     int
	TextLines []string
	Pixels    [][]uint8 // grayscale rows, nil when no pixel decode happened
	DPI       int       // 0 when the source did not declare one
	Warnings  []string
}

// HasPixels reports whether the page carries a non-empty pixel grid.
func (p *Page) HasPixels() bool {
	return len(p.Pixels) > 0 && len(p.Pixels[0]) > 0
}

// Document is a loaded source file split into pages, with the raw content
// retained for hashing and size accounting.
type Document struct {
	Path     string
	Content  []byte
	SHA256   string
	Pages    []Page
	Warnings []string
}

// PageCount returns the number of logical pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Lines returns all text lines across pages in page order.
func (d *Document) Lines() []string {
	var all []string
	for _, page := range d.Pages {
		all = append(all, page.TextLines...)
	}
	return all
}

// Size returns the raw content size in bytes.
func (d *Document) Size() int {
	return len(d.Content)
}
