package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/press-comb/app/csvout"
	"github.com/lysyi3m/press-comb/app/fetch"
	"github.com/lysyi3m/press-comb/app/profile"
	"github.com/lysyi3m/press-comb/app/ratelimit"
)

const DefaultMinBodyChars = 30

// RunnerConfig holds what stays the same for every publisher of a process.
type RunnerConfig struct {
	Fetch  fetch.Options
	Policy ratelimit.Policy
	// Sleep replaces the real rate-limit sleep, for tests.
	Sleep ratelimit.SleepFunc
}

// RunOptions select what one publisher run does.
type RunOptions struct {
	Categories   []string // empty means every category
	Limit        int      // entries per category; 0 or less means no cap
	MinBodyChars int
	OutputDir    string
	Workers      int
	Companion    bool
	Now          func() time.Time
}

type Runner struct {
	config RunnerConfig
}

func NewRunner(config RunnerConfig) *Runner {
	return &Runner{config: config}
}

// Run ingests the selected categories of p into one CSV file. Rows appear in
// category declaration order, then feed order. When ctx is cancelled the
// file is closed with the rows finished so far and ctx.Err() is returned
// together with the partial report.
func (r *Runner) Run(ctx context.Context, p *profile.Profile, opts RunOptions) (*Report, error) {
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if opts.MinBodyChars <= 0 {
		opts.MinBodyChars = DefaultMinBodyChars
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	sources, err := p.Select(opts.Categories)
	if err != nil {
		return nil, err
	}

	fetchOpts := r.config.Fetch
	fetchOpts.Referer = p.Referer
	fetcher, err := fetch.New(fetchOpts)
	if err != nil {
		return nil, err
	}
	defer fetcher.Close()

	limiter := ratelimit.New(r.config.Policy, r.config.Sleep)

	label := csvout.Label(opts.Categories, coversAll(p, opts.Categories))
	path := csvout.FileName(opts.OutputDir, p.ID, label, opts.Now())

	run := &publisherRun{
		profile: p,
		fetcher: fetcher,
		limiter: limiter,
		settings: Settings{
			Limit:        opts.Limit,
			MinBodyChars: opts.MinBodyChars,
		},
		writer: csvout.NewWriter(path),
		report: newReport(p.Name, path),
	}
	if opts.Companion {
		run.companion = csvout.NewCompanion(path)
		run.report.CompanionPath = run.companion.Path()
	}

	slog.Info("Publisher run started", "publisher", p.ID, "categories", len(sources), "workers", opts.Workers, "output", path)

	var runErr error
	if opts.Workers == 1 || len(sources) == 1 {
		runErr = run.sequential(ctx, sources)
	} else {
		runErr = run.parallel(ctx, sources, opts.Workers)
	}

	if err := run.close(); err != nil && runErr == nil {
		runErr = err
	}

	slog.Info("Publisher run finished",
		"publisher", p.ID,
		"path", path,
		"written", run.report.EntriesWritten,
		"seen", run.report.EntriesSeen,
		"feed_failures", run.report.FeedFailures,
		"drops", run.report.Drops)

	return run.report, runErr
}

// coversAll reports whether categories names every category of p.
func coversAll(p *profile.Profile, categories []string) bool {
	if len(categories) == 0 {
		return true
	}
	selected := make(map[string]bool, len(categories))
	for _, c := range categories {
		selected[c] = true
	}
	for _, c := range p.Categories() {
		if !selected[c] {
			return false
		}
	}
	return true
}

// publisherRun is the state of one Runner.Run call. The CSV writer and the
// report are only touched by the goroutine that called Run.
type publisherRun struct {
	profile   *profile.Profile
	fetcher   Fetcher
	limiter   *ratelimit.Limiter
	settings  Settings
	writer    *csvout.Writer
	companion *csvout.Companion
	report    *Report
}

func (r *publisherRun) write(out Output) error {
	if err := r.writer.Append(out.Row); err != nil {
		return err
	}
	if r.companion != nil {
		out.Meta.Row = r.writer.Rows()
		r.companion.Append(out.Meta)
	}
	r.report.EntriesWritten++
	return nil
}

func (r *publisherRun) close() error {
	if err := r.writer.Close(); err != nil {
		return err
	}
	if r.companion != nil {
		if err := r.companion.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// finish folds a finished task into the report and decides whether the run
// goes on. A nil return continues with the next category.
func (r *publisherRun) finish(ctx context.Context, task *IngestCategoryTask, err error) error {
	r.report.add(task.Stats)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case isSourceError(err):
		r.report.FeedFailures++
		slog.Error("Category skipped", "publisher", task.Publisher, "category", task.Source.Category, "source", task.Source.Location(), "error", err)
		return nil
	default:
		return err
	}
}

func (r *publisherRun) sequential(ctx context.Context, sources []profile.FeedSource) error {
	for _, source := range sources {
		if err := r.limiter.WaitCategory(ctx); err != nil {
			return err
		}
		r.report.CategoriesAttempted++

		task := NewIngestCategoryTask(r.profile, source, r.fetcher, r.limiter, r.settings, r.write)
		task.Start()
		if err := r.finish(ctx, task, task.Execute(ctx)); err != nil {
			return err
		}
	}
	return nil
}

type categoryResult struct {
	task    *IngestCategoryTask
	outputs []Output
	err     error
	started bool
	done    chan struct{}
}

// parallel runs categories on a bounded pool. Each category buffers its rows
// and buffers are written in declaration order as soon as every earlier
// category has finished.
func (r *publisherRun) parallel(ctx context.Context, sources []profile.FeedSource, workers int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*categoryResult, len(sources))
	jobs := make(chan int)
	for i := range sources {
		results[i] = &categoryResult{done: make(chan struct{})}
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				r.runBuffered(ctx, sources[i], results[i])
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := range sources {
			jobs <- i
		}
	}()
	defer wg.Wait()

	for _, res := range results {
		<-res.done
		if !res.started {
			return ctx.Err()
		}
		r.report.CategoriesAttempted++
		for _, out := range res.outputs {
			if err := r.write(out); err != nil {
				cancel()
				return err
			}
		}
		if err := r.finish(ctx, res.task, res.err); err != nil {
			cancel()
			return err
		}
	}
	return nil
}

func (r *publisherRun) runBuffered(ctx context.Context, source profile.FeedSource, res *categoryResult) {
	defer close(res.done)

	if err := r.limiter.WaitCategory(ctx); err != nil {
		return
	}
	res.started = true

	res.task = NewIngestCategoryTask(r.profile, source, r.fetcher, r.limiter, r.settings, func(out Output) error {
		res.outputs = append(res.outputs, out)
		return nil
	})
	res.task.Start()
	res.err = res.task.Execute(ctx)
}
