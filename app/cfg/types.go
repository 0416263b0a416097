package cfg

import "time"

type Cfg struct {
	// Selection
	ProfilesDir string
	Publishers  []string
	All         bool
	Categories  []string
	List        bool

	// Output
	OutputDir    string
	Limit        int
	MinBodyChars int
	Workers      int
	Companion    bool

	// Politeness
	ArticleDelayMin time.Duration
	ArticleDelayMax time.Duration
	CategoryDelay   time.Duration
	FeedTimeout     time.Duration
	ArticleTimeout  time.Duration
	MaxRPS          float64
	UserAgents      []string

	// Application metadata
	Timezone string
	Location *time.Location
	Debug    bool
	Version  string
}
