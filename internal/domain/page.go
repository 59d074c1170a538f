package domain

// Directory listings (guides, themes) are paged with these bounds.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	// MaxPage keeps Offset well inside int range and away from Postgres'
	// negative-OFFSET error however large ?page= is.
	MaxPage = 10_000
)

// PaginationParams is a 1-indexed page of a directory listing.
type PaginationParams struct {
	Page  int
	Limit int
}

// NewPaginationParams builds a PaginationParams from optional query values.
// Missing or non-positive values fall back to page 1 and DefaultPageLimit;
// values above MaxPage and MaxPageLimit are clamped.
func NewPaginationParams(page, limit *int) PaginationParams {
	p := PaginationParams{Page: 1, Limit: DefaultPageLimit}
	if page != nil && *page >= 1 {
		p.Page = min(*page, MaxPage)
	}
	if limit != nil && *limit >= 1 {
		p.Limit = min(*limit, MaxPageLimit)
	}
	return p
}

// Offset is the number of rows skipped before this page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}
