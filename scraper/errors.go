package scraper

import "fmt"

// FetchKind separates failures the fetcher may retry from ones it must not.
type FetchKind int

const (
	// FetchTransient covers transport failures and 5xx-equivalent responses.
	// Retried with bounded exponential backoff.
	FetchTransient FetchKind = iota
	// FetchStructural means the expected table or header row is entirely
	// absent. Never retried; the page itself has changed shape.
	FetchStructural
)

func (k FetchKind) String() string {
	if k == FetchStructural {
		return "structural"
	}
	return "transient"
}

// FetchError aborts one league's run. Other leagues are unaffected.
type FetchError struct {
	League string
	Kind   FetchKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.League, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
