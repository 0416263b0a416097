package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/lysyi3m/press-comb/app/csvout"
	"github.com/lysyi3m/press-comb/app/extract"
	"github.com/lysyi3m/press-comb/app/feed"
	"github.com/lysyi3m/press-comb/app/fetch"
	"github.com/lysyi3m/press-comb/app/normalize"
	"github.com/lysyi3m/press-comb/app/profile"
	"github.com/lysyi3m/press-comb/app/ratelimit"
)

const (
	DropFetchFailed = "fetch_failed"
	DropNoBody      = "no_body"
	DropTooShort    = "too_short"
	DropFiltered    = "filtered"
)

// Output is one finished article with its companion metadata.
type Output struct {
	Row  csvout.Row
	Meta csvout.Meta
}

// Settings are the per-run knobs shared by every category task.
type Settings struct {
	Limit        int
	MinBodyChars int
}

// Stats counts what happened to the entries of one category.
type Stats struct {
	Seen    int
	Written int
	Drops   map[string]int
}

func (s *Stats) drop(reason string) {
	if s.Drops == nil {
		s.Drops = make(map[string]int)
	}
	s.Drops[reason]++
}

// IngestCategoryTask reads one category source of a publisher and emits its
// articles in feed order.
type IngestCategoryTask struct {
	Task
	Profile  *profile.Profile
	Source   profile.FeedSource
	Stats    Stats
	settings Settings
	fetcher  Fetcher
	limiter  *ratelimit.Limiter
	reader   *feed.Reader
	filterer *feed.Filterer
	emit     EmitFunc
}

func NewIngestCategoryTask(p *profile.Profile, source profile.FeedSource, fetcher Fetcher, limiter *ratelimit.Limiter, settings Settings, emit EmitFunc) *IngestCategoryTask {
	return &IngestCategoryTask{
		Task:     NewTask(TaskTypeIngestCategory, p.ID, source.Category),
		Profile:  p,
		Source:   source,
		settings: settings,
		fetcher:  fetcher,
		limiter:  limiter,
		reader:   feed.NewReader(),
		filterer: feed.NewFilterer(),
		emit:     emit,
	}
}

// Execute returns a *feed.FeedError or *fetch.FetchError when the category
// source itself is unusable, the context error when cancelled between
// articles, and any error returned by emit.
func (t *IngestCategoryTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := t.loadEntries(ctx)
	if err != nil {
		return err
	}

	kept, filtered, reasons := t.filterer.Run(entries, t.Profile.Filters)
	for i, e := range filtered {
		slog.Debug("Entry filtered", "publisher", t.Publisher, "category", t.Source.Category, "link", e.Link, "reason", reasons[i])
		t.Stats.drop(DropFiltered)
	}
	t.Stats.Seen += len(filtered)

	if t.settings.Limit > 0 && len(kept) > t.settings.Limit {
		kept = kept[:t.settings.Limit]
	}

	gate := t.limiter.NewGate()
	for _, entry := range kept {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.Stats.Seen++

		out, reason, err := t.processEntry(ctx, gate, entry)
		if err != nil {
			return err
		}
		if reason != "" {
			slog.Debug("Entry dropped", "publisher", t.Publisher, "category", t.Source.Category, "link", entry.Link, "reason", reason)
			t.Stats.drop(reason)
			continue
		}

		if err := t.emit(out); err != nil {
			return err
		}
		t.Stats.Written++
	}

	slog.Info("Task completed",
		"id", t.GetID(),
		"type", t.GetType(),
		"publisher", t.Publisher,
		"category", t.Source.Category,
		"duration", t.GetDuration(),
		"seen", t.Stats.Seen,
		"written", t.Stats.Written,
		"dropped", t.Stats.Seen-t.Stats.Written)

	return nil
}

// processEntry builds the output for one entry. A non-empty reason means the
// entry is dropped; err is only set on cancellation.
func (t *IngestCategoryTask) processEntry(ctx context.Context, gate *ratelimit.Gate, entry feed.Entry) (Output, string, error) {
	text := t.Profile.Text()

	var page *extract.Page
	fetchFailed := entry.Link == ""
	if !fetchFailed {
		if err := gate.Wait(ctx); err != nil {
			return Output{}, "", err
		}

		res, err := t.fetcher.Fetch(ctx, entry.Link, fetch.KindArticle)
		switch {
		case err != nil && ctx.Err() != nil:
			return Output{}, "", ctx.Err()
		case err != nil:
			slog.Warn("Failed to fetch article, using feed summary", "publisher", t.Publisher, "link", entry.Link, "error", err)
			fetchFailed = true
		default:
			page, err = extract.Parse(res.Body, res.Encoding, res.URL)
			if err != nil {
				slog.Warn("Failed to parse article", "publisher", t.Publisher, "link", entry.Link, "error", err)
			}
		}
	}

	result := t.Profile.Extractor().Run(page, entry.Summary)
	if result.Source == extract.SourceNone {
		if fetchFailed {
			return Output{}, DropFetchFailed, nil
		}
		return Output{}, DropNoBody, nil
	}

	body := text.Run(result.Body)
	if utf8.RuneCountInString(body) < t.settings.MinBodyChars {
		return Output{}, DropTooShort, nil
	}

	out := Output{
		Row: csvout.Row{
			Publisher: t.Profile.Name,
			Title:     text.Light(entry.Title),
			Date:      normalize.Date(entry.Published, entry.PublishedRaw),
			Category:  t.Source.Category,
			Reporter:  t.Profile.Resolver().Resolve(entry.Author, page),
			Body:      body,
		},
		Meta: csvout.Meta{
			Link:        entry.Link,
			RSSCategory: entry.Category,
			BodySource:  string(result.Source),
			IsVideo:     entry.IsVideo,
		},
	}
	return out, "", nil
}

func (t *IngestCategoryTask) loadEntries(ctx context.Context) ([]feed.Entry, error) {
	if t.Source.Listing != nil {
		return t.loadListing(ctx)
	}

	res, err := t.fetcher.Fetch(ctx, t.Source.URL, fetch.KindFeed)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	entries, err := t.reader.Run(res.Body, t.Source.URL)
	if err != nil {
		return nil, err
	}

	slog.Debug("Feed parsed", "publisher", t.Publisher, "category", t.Source.Category, "entries", len(entries))
	return entries, nil
}

// loadListing walks the listing pages in order. A failure after the first
// page ends the walk with what was collected.
func (t *IngestCategoryTask) loadListing(ctx context.Context) ([]feed.Entry, error) {
	reader := feed.NewListingReader(*t.Source.Listing)

	var entries []feed.Entry
	seen := make(map[string]bool)
	for i, pageURL := range reader.PageURLs() {
		pageEntries, err := t.loadListingPage(ctx, reader, pageURL)
		if err != nil {
			if i == 0 || ctx.Err() != nil {
				return nil, err
			}
			slog.Warn("Listing page failed, stopping", "publisher", t.Publisher, "url", pageURL, "error", err)
			break
		}
		entries = feed.Merge(entries, seen, pageEntries)
	}

	if len(entries) == 0 {
		return nil, &feed.FeedError{Source: t.Source.Listing.URL, Reason: "listing has no entries"}
	}
	return entries, nil
}

func (t *IngestCategoryTask) loadListingPage(ctx context.Context, reader *feed.ListingReader, pageURL string) ([]feed.Entry, error) {
	res, err := t.fetcher.Fetch(ctx, pageURL, fetch.KindFeed)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing page: %w", err)
	}

	body, err := fetch.ToUTF8(res.Body, res.Encoding)
	if err != nil {
		return nil, &feed.FeedError{Source: pageURL, Reason: "undecodable listing page", Err: err}
	}
	return reader.Run(body, pageURL)
}

// isSourceError reports whether err only affects the category that
// produced it.
func isSourceError(err error) bool {
	var feedErr *feed.FeedError
	var fetchErr *fetch.FetchError
	return errors.As(err, &feedErr) || errors.As(err, &fetchErr)
}
