package cfg

import (
	"os"
	"strings"
	"testing"
	"time"
)

// clearEnv keeps the caller's environment from leaking into defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PROFILES_DIR", "OUTPUT_DIR", "LIMIT", "MIN_BODY_CHARS", "WORKERS", "COMPANION",
		"ARTICLE_DELAY_MIN", "ARTICLE_DELAY_MAX", "CATEGORY_DELAY", "FEED_TIMEOUT",
		"ARTICLE_TIMEOUT", "MAX_RPS", "USER_AGENTS", "TZ", "DEBUG",
	}
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadArgsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadArgs([]string{"--publisher", "yna"})
	if err != nil {
		t.Fatalf("LoadArgs failed: %v", err)
	}

	if cfg.ProfilesDir != "./publishers" {
		t.Errorf("Expected profiles dir './publishers', got '%s'", cfg.ProfilesDir)
	}
	if cfg.OutputDir != "results" {
		t.Errorf("Expected output dir 'results', got '%s'", cfg.OutputDir)
	}
	if cfg.Limit != 10 {
		t.Errorf("Expected limit 10, got %d", cfg.Limit)
	}
	if cfg.MinBodyChars != 30 {
		t.Errorf("Expected min body chars 30, got %d", cfg.MinBodyChars)
	}
	if cfg.Workers != 1 {
		t.Errorf("Expected 1 worker, got %d", cfg.Workers)
	}
	if cfg.ArticleDelayMin != 500*time.Millisecond || cfg.ArticleDelayMax != 1500*time.Millisecond {
		t.Errorf("Unexpected article delays %v..%v", cfg.ArticleDelayMin, cfg.ArticleDelayMax)
	}
	if cfg.CategoryDelay != 2*time.Second {
		t.Errorf("Expected category delay 2s, got %v", cfg.CategoryDelay)
	}
	if cfg.FeedTimeout != 15*time.Second || cfg.ArticleTimeout != 20*time.Second {
		t.Errorf("Unexpected timeouts %v / %v", cfg.FeedTimeout, cfg.ArticleTimeout)
	}
	if cfg.Location == nil || cfg.Location.String() != "Asia/Seoul" {
		t.Errorf("Expected Asia/Seoul location, got %v", cfg.Location)
	}
	if cfg.Debug || cfg.Companion || cfg.All || cfg.List {
		t.Error("Expected boolean flags to default to false")
	}
	if len(cfg.Publishers) != 1 || cfg.Publishers[0] != "yna" {
		t.Errorf("Unexpected publishers %v", cfg.Publishers)
	}
}

func TestLoadArgsRepeatableFlags(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadArgs([]string{
		"-p", "hani",
		"-c", "정치", "--category", "경제",
		"--user-agent", "agent-a", "--user-agent", "agent-b",
		"--limit", "0",
		"--workers", "3",
		"--companion",
		"--timezone", "UTC",
	})
	if err != nil {
		t.Fatalf("LoadArgs failed: %v", err)
	}

	if strings.Join(cfg.Categories, ",") != "정치,경제" {
		t.Errorf("Unexpected categories %v", cfg.Categories)
	}
	if len(cfg.UserAgents) != 2 {
		t.Errorf("Expected 2 user agents, got %v", cfg.UserAgents)
	}
	if cfg.Limit != 0 {
		t.Errorf("Expected limit 0, got %d", cfg.Limit)
	}
	if cfg.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.Workers)
	}
	if !cfg.Companion {
		t.Error("Expected companion to be enabled")
	}
	if cfg.Location != time.UTC {
		t.Errorf("Expected UTC location, got %v", cfg.Location)
	}
}

func TestLoadArgsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("OUTPUT_DIR", "/tmp/out")
	t.Setenv("LIMIT", "25")
	t.Setenv("DEBUG", "true")

	cfg, err := LoadArgs([]string{"--all"})
	if err != nil {
		t.Fatalf("LoadArgs failed: %v", err)
	}

	if cfg.OutputDir != "/tmp/out" {
		t.Errorf("Expected output dir from env, got '%s'", cfg.OutputDir)
	}
	if cfg.Limit != 25 {
		t.Errorf("Expected limit 25 from env, got %d", cfg.Limit)
	}
	if !cfg.Debug {
		t.Error("Expected debug from env")
	}
	if !cfg.All {
		t.Error("Expected --all to be set")
	}
}

func TestLoadArgsListOnly(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadArgs([]string{"--list"})
	if err != nil {
		t.Fatalf("LoadArgs failed: %v", err)
	}
	if !cfg.List {
		t.Error("Expected list mode")
	}
}

func TestLoadArgsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no selection", []string{}},
		{"all with publisher", []string{"--all", "-p", "yna"}},
		{"category with all", []string{"--all", "-c", "정치"}},
		{"category with several publishers", []string{"-p", "yna", "-p", "hani", "-c", "정치"}},
		{"negative limit", []string{"-p", "yna", "--limit", "-1"}},
		{"zero workers", []string{"-p", "yna", "--workers", "0"}},
		{"delay max below min", []string{"-p", "yna", "--article-delay-min", "2s", "--article-delay-max", "1s"}},
		{"zero timeout", []string{"-p", "yna", "--feed-timeout", "0s"}},
		{"negative rps", []string{"-p", "yna", "--max-rps", "-1"}},
		{"unknown timezone", []string{"-p", "yna", "--timezone", "Mars/Olympus"}},
		{"unknown flag", []string{"-p", "yna", "--bogus"}},
		{"bad duration", []string{"-p", "yna", "--category-delay", "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := LoadArgs(tt.args)
			if err == nil {
				t.Fatalf("Expected error, got config %+v", cfg)
			}
		})
	}
}
