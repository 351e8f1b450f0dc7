package results

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sadopc/pgtop/internal/stat"
)

// Snapshot is one frame of a view as it was on screen.
type Snapshot struct {
	View    string
	Server  string
	TakenAt time.Time
	Grid    *stat.Grid
}

// snapshotDoc is the JSON form of a Snapshot. Rows stay arrays so the
// column order survives.
type snapshotDoc struct {
	View    string     `json:"view"`
	Server  string     `json:"server"`
	TakenAt time.Time  `json:"taken_at"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Export writes s to path, as JSON when the extension is ".json" and as
// CSV otherwise. It returns the number of data rows written.
func Export(path string, s Snapshot) (int, error) {
	if s.Grid == nil {
		return 0, errors.New("nothing to export")
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	w := bufio.NewWriter(f)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = WriteJSON(w, s)
	} else {
		err = WriteCSV(w, s.Grid)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", path, err)
	}
	return s.Grid.NumRows(), nil
}

// WriteCSV writes the header and rows of g. Values are written as shown,
// rates included.
func WriteCSV(w io.Writer, g *stat.Grid) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(g.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(g.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteJSON writes s as one indented object. Short rows are padded with
// empty cells.
func WriteJSON(w io.Writer, s Snapshot) error {
	doc := snapshotDoc{
		View:    s.View,
		Server:  s.Server,
		TakenAt: s.TakenAt,
		Columns: s.Grid.Columns,
		Rows:    make([][]string, 0, s.Grid.NumRows()),
	}
	for _, row := range s.Grid.Rows {
		if len(row) < len(doc.Columns) {
			row = append(append([]string(nil), row...), make([]string, len(doc.Columns)-len(row))...)
		}
		doc.Rows = append(doc.Rows, row)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ExportPath returns the default CSV file for s in dir.
func ExportPath(dir string, s Snapshot) string {
	name := fmt.Sprintf("pgtop-%s-%s.csv", s.View, s.TakenAt.Format("20060102-150405"))
	return filepath.Join(dir, name)
}
