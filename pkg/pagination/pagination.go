package pagination

const (
	// DefaultPerPage is the page size when none is requested.
	DefaultPerPage = 10
	// MaxPerPage caps how many rows a single page can return.
	MaxPerPage = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page    int
	PerPage int
}

// Normalize applies the defaults and bounds.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Clamp pulls explicit request values into range: page at least 1 and
// per_page between 1 and MaxPerPage.
func (p Params) Clamp() Params {
	p.Page = max(p.Page, 1)
	p.PerPage = min(max(p.PerPage, 1), MaxPerPage)
	return p
}

// Offset returns the row offset of the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PerPage
}

// LastPage is never below 1, even for an empty result.
func LastPage(total int64, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if total <= 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
