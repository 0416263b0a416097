package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	DefaultArticleDelayMin = 500 * time.Millisecond
	DefaultArticleDelayMax = 1500 * time.Millisecond
	DefaultCategoryDelay   = 2 * time.Second
)

type Policy struct {
	ArticleDelayMin time.Duration
	ArticleDelayMax time.Duration
	CategoryDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		ArticleDelayMin: DefaultArticleDelayMin,
		ArticleDelayMax: DefaultArticleDelayMax,
		CategoryDelay:   DefaultCategoryDelay,
	}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limiter spaces out article fetches within a category and categories
// within a run. It is safe for concurrent use.
type Limiter struct {
	policy Policy
	sleep  SleepFunc

	mu             sync.Mutex
	rnd            *rand.Rand
	categoryPassed bool
}

func New(policy Policy, sleep SleepFunc) *Limiter {
	if policy.ArticleDelayMax < policy.ArticleDelayMin {
		policy.ArticleDelayMax = policy.ArticleDelayMin
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &Limiter{
		policy: policy,
		sleep:  sleep,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WaitCategory sleeps the category delay before every category but the first.
func (l *Limiter) WaitCategory(ctx context.Context) error {
	l.mu.Lock()
	first := !l.categoryPassed
	l.categoryPassed = true
	l.mu.Unlock()

	if first {
		return ctx.Err()
	}
	return l.sleep(ctx, l.policy.CategoryDelay)
}

// ArticleDelay draws a delay uniformly from [min, max].
func (l *Limiter) ArticleDelay() time.Duration {
	span := l.policy.ArticleDelayMax - l.policy.ArticleDelayMin
	if span <= 0 {
		return l.policy.ArticleDelayMin
	}

	l.mu.Lock()
	n := l.rnd.Int63n(int64(span) + 1)
	l.mu.Unlock()

	return l.policy.ArticleDelayMin + time.Duration(n)
}

// NewGate starts the article sequence of one category.
func (l *Limiter) NewGate() *Gate {
	return &Gate{limiter: l}
}

// Gate applies the article delay before every fetch of a category except
// the first. A Gate belongs to one goroutine.
type Gate struct {
	limiter *Limiter
	passed  bool
}

func (g *Gate) Wait(ctx context.Context) error {
	if !g.passed {
		g.passed = true
		return ctx.Err()
	}
	return g.limiter.sleep(ctx, g.limiter.ArticleDelay())
}
