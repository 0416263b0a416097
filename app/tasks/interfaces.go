package tasks

import (
	"context"

	"github.com/lysyi3m/press-comb/app/fetch"
)

// Fetcher is the HTTP side of a category run. *fetch.Fetcher implements it;
// tasks only need the single operation.
// Example usage:
//
//	fetcher, _ := fetch.New(fetch.Options{Referer: p.Referer})
//	defer fetcher.Close()
//	task := NewIngestCategoryTask(p, source, fetcher, limiter, settings, emit)
type Fetcher interface {
	Fetch(ctx context.Context, url string, kind fetch.Kind) (*fetch.Result, error)
}

// EmitFunc receives each finished row of a category in feed order.
type EmitFunc func(row Output) error
