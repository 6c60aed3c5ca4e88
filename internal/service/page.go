package service

import "flightres/internal/fr"

const (
	DefaultPageNumber = 1
	DefaultPageSize   = 50
)

// PageRequest selects a 1-based page.
type PageRequest struct {
	Number int
	Size   int
}

// DefaultPage returns page 1 of DefaultPageSize items.
func DefaultPage() PageRequest {
	return PageRequest{Number: DefaultPageNumber, Size: DefaultPageSize}
}

func (p PageRequest) validate() error {
	verr := fr.NewValidationError()
	if p.Number < 1 {
		verr.Add("pageNumber", "Page number must be greater than 0.")
	}
	if p.Size < 1 {
		verr.Add("pageSize", "Page size must be greater than 0.")
	}
	return verr.OrNil()
}

// Page is one slice of a listing plus the size of the whole listing.
type Page[T any] struct {
	Items      []T
	TotalCount int
}

func paginate[T any](all []T, p PageRequest) (Page[T], error) {
	if err := p.validate(); err != nil {
		return Page[T]{}, err
	}

	start := len(all)
	if p.Number-1 <= len(all)/p.Size {
		start = min((p.Number-1)*p.Size, len(all))
	}
	end := len(all)
	if p.Size < end-start {
		end = start + p.Size
	}

	items := make([]T, end-start)
	copy(items, all[start:end])
	return Page[T]{Items: items, TotalCount: len(all)}, nil
}
