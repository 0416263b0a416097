package tasks

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

var summaryHeader = []string{"언론사", "파일", "수집", "제외", "피드 실패"}

// WriteSummary prints one table row per report. Column widths follow the
// display width of the cells so Hangul lines up in a terminal.
func WriteSummary(w io.Writer, reports []*Report) error {
	table := [][]string{summaryHeader}
	for _, r := range reports {
		table = append(table, []string{
			r.Publisher,
			filepath.Base(r.Path),
			strconv.Itoa(r.EntriesWritten),
			strconv.Itoa(r.Dropped()),
			strconv.Itoa(r.FeedFailures),
		})
	}

	widths := make([]int, len(summaryHeader))
	for _, row := range table {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	for i, row := range table {
		if _, err := fmt.Fprintln(w, formatRow(row, widths)); err != nil {
			return err
		}
		if i == 0 {
			separator := make([]string, len(widths))
			for j, width := range widths {
				separator[j] = strings.Repeat("-", width)
			}
			if _, err := fmt.Fprintln(w, formatRow(separator, widths)); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatRow(row []string, widths []int) string {
	var sb strings.Builder
	sb.WriteString("|")
	for i, cell := range row {
		sb.WriteString(" ")
		sb.WriteString(cell)
		if padding := widths[i] - runewidth.StringWidth(cell); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}
		sb.WriteString(" |")
	}
	return sb.String()
}
