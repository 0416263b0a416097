package csvout

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AllCategoriesLabel names the file when every category of a publisher runs.
const AllCategoriesLabel = "전체"

const bom = "\ufeff"

// Header is publisher, title, date, category, reporter, body.
var Header = []string{"언론사", "제목", "날짜", "카테고리", "기자명", "본문"}

type Row struct {
	Publisher string
	Title     string
	Date      string
	Category  string
	Reporter  string
	Body      string
}

func (r Row) record() []string {
	return []string{r.Publisher, r.Title, r.Date, r.Category, r.Reporter, r.Body}
}

// FileName builds <dir>/<publisher>_<label>_<YYYYMMDD_HHMMSS>.csv.
func FileName(dir, publisher, label string, at time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.csv", sanitize(publisher), sanitize(label), at.Format("20060102_150405"))
	return filepath.Join(dir, name)
}

// Label is AllCategoriesLabel when all is set, else the joined categories.
func Label(categories []string, all bool) string {
	if all || len(categories) == 0 {
		return AllCategoriesLabel
	}
	return strings.Join(categories, "+")
}

var unsafeChars = strings.NewReplacer("/", "-", `\`, "-", ":", "-", "*", "-", "?", "-", `"`, "-", "<", "-", ">", "-", "|", "-", " ", "")

func sanitize(s string) string {
	return unsafeChars.Replace(s)
}

// Writer writes rows to one CSV file, opened on the first Append. Output
// is buffered and flushed on Close only. After a write failure every
// call returns that failure.
type Writer struct {
	path string

	file *os.File
	buf  *bufio.Writer
	csv  *csv.Writer
	rows int
	// err is the failure that left the writer unusable.
	err error
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Rows is the number of data rows appended so far.
func (w *Writer) Rows() int {
	return w.rows
}

func (w *Writer) Append(row Row) error {
	if err := w.open(); err != nil {
		return err
	}
	if err := w.csv.Write(row.record()); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	w.rows++
	return nil
}

// Close flushes and closes the file. A writer that never received a row
// still produces a header-only file.
func (w *Writer) Close() error {
	if err := w.open(); err != nil {
		return err
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return w.fail(fmt.Errorf("failed to flush CSV: %w", err))
	}
	if err := w.buf.Flush(); err != nil {
		return w.fail(fmt.Errorf("failed to flush CSV: %w", err))
	}
	if err := w.file.Close(); err != nil {
		w.file = nil
		w.err = fmt.Errorf("failed to close CSV: %w", err)
		return w.err
	}
	w.file = nil
	return nil
}

func (w *Writer) open() error {
	if w.err != nil {
		return w.err
	}
	if w.csv != nil {
		if w.file == nil {
			return fmt.Errorf("CSV writer already closed: %s", w.path)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}

	return w.start(file)
}

// start writes the BOM and header to a freshly created file.
func (w *Writer) start(file *os.File) error {
	w.file = file
	w.buf = bufio.NewWriter(file)
	w.csv = csv.NewWriter(w.buf)
	w.csv.UseCRLF = true

	if _, err := w.buf.WriteString(bom); err != nil {
		return w.fail(fmt.Errorf("failed to write BOM: %w", err))
	}
	if err := w.csv.Write(Header); err != nil {
		return w.fail(fmt.Errorf("failed to write header: %w", err))
	}
	return nil
}

// fail closes the file and keeps err for every later call, so a failed
// writer never recreates and truncates its file.
func (w *Writer) fail(err error) error {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	w.err = err
	return err
}
