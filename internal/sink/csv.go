package sink

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"trading-mtfsync/internal/model"
	"trading-mtfsync/internal/mtf"
)

// CSVSink writes the dataset and its JSON manifest to a directory.
type CSVSink struct {
	dir string
	log *zap.Logger
}

func NewCSV(dir string, log *zap.Logger) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csv sink dir: %w", err)
	}
	return &CSVSink{dir: dir, log: log}, nil
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Close() error { return nil }

// DatasetPath returns multitemporal_<p>_<s>_<SYMBOL>_<stamp>.csv under dir.
func DatasetPath(dir string, run *Run) string {
	return filepath.Join(dir, fmt.Sprintf("multitemporal_%s_%s_%s_%s.csv",
		run.Result.PrimaryTF, run.Result.SecondaryTF, run.Symbol, run.Stamp()))
}

// ManifestPath returns multitemporal_<p>_<s>_config_<SYMBOL>.json under dir.
// It is overwritten by every run of the same symbol.
func ManifestPath(dir string, run *Run) string {
	return filepath.Join(dir, fmt.Sprintf("multitemporal_%s_%s_config_%s.json",
		run.Result.PrimaryTF, run.Result.SecondaryTF, run.Symbol))
}

// Manifest describes one exported dataset.
type Manifest struct {
	Symbol           string    `json:"symbol"`
	PrimaryTF        string    `json:"primary_tf"`
	SecondaryTF      string    `json:"secondary_tf"`
	DatasetFile      string    `json:"dataset_file"`
	Description      string    `json:"description"`
	PrimaryColumns   []string  `json:"primary_columns"`
	SecondaryColumns []string  `json:"secondary_columns"`
	FlagColumns      []string  `json:"context_flag_columns,omitempty"`
	Stats            mtf.Stats `json:"stats"`
	CreatedAt        string    `json:"created_at"`
}

func NewManifest(run *Run, datasetFile string) Manifest {
	res := run.Result
	return Manifest{
		Symbol:           run.Symbol,
		PrimaryTF:        string(res.PrimaryTF),
		SecondaryTF:      string(res.SecondaryTF),
		DatasetFile:      datasetFile,
		Description:      fmt.Sprintf("%s data with %s context for multitemporal labeling", res.SecondaryTF, res.PrimaryTF),
		PrimaryColumns:   res.PrimaryColumns,
		SecondaryColumns: res.SecondaryColumns,
		FlagColumns:      res.FlagColumns,
		Stats:            res.Stats,
		CreatedAt:        run.Started.UTC().Format(DateLayout),
	}
}

func (s *CSVSink) Write(ctx context.Context, run *Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := DatasetPath(s.dir, run)
	if err := writeDataset(path, run.Result.Frame); err != nil {
		return err
	}

	b, err := sonic.ConfigStd.MarshalIndent(NewManifest(run, path), "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(ManifestPath(s.dir, run), b, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	s.log.Info("dataset exported", zap.String("file", path), zap.Int("rows", run.Rows()))
	return nil
}

func writeDataset(path string, f *model.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	bw := bufio.NewWriter(file)
	if err := WriteFrame(bw, f); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return file.Close()
}

// WriteFrame writes a date column followed by every frame column. Invalid
// cells are empty.
func WriteFrame(w io.Writer, f *model.Frame) error {
	cw := csv.NewWriter(w)
	header := append([]string{"date"}, f.Names()...)
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for i, ts := range f.Times {
		rec[0] = ts.UTC().Format(DateLayout)
		for c := range f.Columns {
			rec[c+1] = formatCell(&f.Columns[c], i)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(c *model.Column, i int) string {
	if !c.IsValid(i) {
		return ""
	}
	if c.Kind == model.Label {
		return c.Text[i]
	}
	return strconv.FormatFloat(c.Num[i], 'f', -1, 64)
}
