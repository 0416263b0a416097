package csvout

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CompanionHeader describes each data row of the main file by its 1-based
// row number.
var CompanionHeader = []string{"row", "link", "rss_category", "body_source", "is_video"}

type Meta struct {
	Row         int
	Link        string
	RSSCategory string
	BodySource  string
	IsVideo     bool
}

// CompanionPath turns results/a_b_c.csv into results/a_b_c_meta.csv.
func CompanionPath(path string) string {
	return strings.TrimSuffix(path, ".csv") + "_meta.csv"
}

// Companion writes the per-row metadata that does not belong in the main
// six-column file. It is written in one go on Flush.
type Companion struct {
	path string
	rows []Meta
}

func NewCompanion(mainPath string) *Companion {
	return &Companion{path: CompanionPath(mainPath)}
}

func (c *Companion) Path() string {
	return c.path
}

func (c *Companion) Append(meta Meta) {
	c.rows = append(c.rows, meta)
}

func (c *Companion) Flush() error {
	file, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("failed to create companion file: %w", err)
	}

	w := csv.NewWriter(file)
	w.UseCRLF = true
	if _, err := file.WriteString(bom); err != nil {
		file.Close()
		return fmt.Errorf("failed to write BOM: %w", err)
	}
	w.Write(CompanionHeader)
	for _, m := range c.rows {
		w.Write([]string{strconv.Itoa(m.Row), m.Link, m.RSSCategory, m.BodySource, strconv.FormatBool(m.IsVideo)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return fmt.Errorf("failed to write companion file: %w", err)
	}
	return file.Close()
}
