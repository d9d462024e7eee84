package connection

import "fmt"

// Args are the connection arguments of one field invocation. After and
// Before are decoded positions.
type Args struct {
	First  *int
	Last   *int
	After  *int
	Before *int
}

// Window is the half-open, zero-based range of a page.
type Window struct {
	Start           int
	End             int
	HasNextPage     bool
	HasPreviousPage bool
}

func (w Window) Len() int { return w.End - w.Start }

// Paginate computes the page of a sequence of total items.
//
// after: k drops the positions up to and including k, before: k drops k and
// every position behind it. first then takes the leading items of what is
// left and last the trailing ones; when both are given they apply one after
// the other. The page flags compare the window with the full sequence.
func Paginate(total int, args Args) (Window, error) {
	if args.First != nil && *args.First < 0 {
		return Window{}, fmt.Errorf("first must not be negative, got %d", *args.First)
	}
	if args.Last != nil && *args.Last < 0 {
		return Window{}, fmt.Errorf("last must not be negative, got %d", *args.Last)
	}
	lo, hi := 0, total
	if args.After != nil {
		lo = min(max(lo, *args.After), hi)
	}
	if args.Before != nil {
		hi = max(min(hi, *args.Before-1), lo)
	}
	if args.First != nil && hi-lo > *args.First {
		hi = lo + *args.First
	}
	if args.Last != nil && hi-lo > *args.Last {
		lo = hi - *args.Last
	}
	return Window{
		Start:           lo,
		End:             hi,
		HasNextPage:     hi < total,
		HasPreviousPage: lo > 0,
	}, nil
}
