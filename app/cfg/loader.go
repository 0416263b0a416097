package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Selection
	ProfilesDir string   `long:"profiles-dir" env:"PROFILES_DIR" default:"./publishers" description:"Directory containing publisher profiles"`
	Publishers  []string `short:"p" long:"publisher" description:"Publisher id to run (repeatable)"`
	All         bool     `long:"all" description:"Run every publisher in the profiles directory"`
	Categories  []string `short:"c" long:"category" description:"Category to run (repeatable, default all)"`
	List        bool     `long:"list" description:"List publishers and their categories, then exit"`

	// Output
	OutputDir    string `long:"output-dir" env:"OUTPUT_DIR" default:"results" description:"Directory for CSV output"`
	Limit        int    `long:"limit" env:"LIMIT" default:"10" description:"Articles per category"`
	MinBodyChars int    `long:"min-body-chars" env:"MIN_BODY_CHARS" default:"30" description:"Shortest body kept, in characters"`
	Workers      int    `long:"workers" env:"WORKERS" default:"1" description:"Categories processed in parallel"`
	Companion    bool   `long:"companion" env:"COMPANION" description:"Also write <name>_meta.csv with link and body source per row"`

	// Politeness
	ArticleDelayMin time.Duration `long:"article-delay-min" env:"ARTICLE_DELAY_MIN" default:"500ms" description:"Shortest delay between article fetches"`
	ArticleDelayMax time.Duration `long:"article-delay-max" env:"ARTICLE_DELAY_MAX" default:"1.5s" description:"Longest delay between article fetches"`
	CategoryDelay   time.Duration `long:"category-delay" env:"CATEGORY_DELAY" default:"2s" description:"Delay between categories"`
	FeedTimeout     time.Duration `long:"feed-timeout" env:"FEED_TIMEOUT" default:"15s" description:"Timeout for feed requests"`
	ArticleTimeout  time.Duration `long:"article-timeout" env:"ARTICLE_TIMEOUT" default:"20s" description:"Timeout for article requests"`
	MaxRPS          float64       `long:"max-rps" env:"MAX_RPS" description:"Cap on requests per second across the run (0 disables)"`
	UserAgents      []string      `long:"user-agent" env:"USER_AGENTS" env-delim:"|" description:"User agent to rotate through (repeatable)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"Asia/Seoul" description:"Timezone for output file timestamps"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses args and the environment. It returns nil, nil when help
// was requested.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		ProfilesDir:     raw.ProfilesDir,
		Publishers:      raw.Publishers,
		All:             raw.All,
		Categories:      raw.Categories,
		List:            raw.List,
		OutputDir:       raw.OutputDir,
		Limit:           raw.Limit,
		MinBodyChars:    raw.MinBodyChars,
		Workers:         raw.Workers,
		Companion:       raw.Companion,
		ArticleDelayMin: raw.ArticleDelayMin,
		ArticleDelayMax: raw.ArticleDelayMax,
		CategoryDelay:   raw.CategoryDelay,
		FeedTimeout:     raw.FeedTimeout,
		ArticleTimeout:  raw.ArticleTimeout,
		MaxRPS:          raw.MaxRPS,
		UserAgents:      raw.UserAgents,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if !cfg.List && !cfg.All && len(cfg.Publishers) == 0 {
		return fmt.Errorf("no publisher selected: use --publisher, --all or --list")
	}
	if cfg.All && len(cfg.Publishers) > 0 {
		return fmt.Errorf("--all and --publisher cannot be combined")
	}
	if cfg.All && len(cfg.Categories) > 0 {
		return fmt.Errorf("--category needs a single --publisher")
	}
	if len(cfg.Categories) > 0 && len(cfg.Publishers) > 1 {
		return fmt.Errorf("--category needs a single --publisher")
	}
	if cfg.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if cfg.ProfilesDir == "" {
		return fmt.Errorf("profiles directory is required")
	}

	nonNegative := map[string]int{
		"limit":          cfg.Limit,
		"min body chars": cfg.MinBodyChars,
	}
	for name, value := range nonNegative {
		if value < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}

	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if cfg.ArticleDelayMin < 0 || cfg.CategoryDelay < 0 {
		return fmt.Errorf("delays must be non-negative")
	}
	if cfg.ArticleDelayMax < cfg.ArticleDelayMin {
		return fmt.Errorf("article delay max %v is below min %v", cfg.ArticleDelayMax, cfg.ArticleDelayMin)
	}
	if cfg.FeedTimeout <= 0 || cfg.ArticleTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if cfg.MaxRPS < 0 {
		return fmt.Errorf("max rps must be non-negative")
	}
	return nil
}
