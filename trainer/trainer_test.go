package trainer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/xuri/excelize/v2"

	"phishguard/features"
	"phishguard/model"
)

func header() []string {
	return append(append([]string{"Index"}, features.Names()...), "class")
}

// separableRecords builds n rows where column 0 alone decides the class and
// the other columns carry label-independent noise.
func separableRecords(n int) [][]string {
	records := [][]string{header()}
	for i := 0; i < n; i++ {
		class := -1
		if i%2 == 0 {
			class = 1
		}
		rec := []string{strconv.Itoa(i)}
		for f := 0; f < features.Width; f++ {
			v := float64((i*7+f*3)%5 - 2)
			if f == 0 {
				v = float64(class)
			}
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
		rec = append(rec, strconv.Itoa(class))
		records = append(records, rec)
	}
	return records
}

func writeCSV(t *testing.T, records [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func rowsWithIDs(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{ID: strconv.Itoa(i)}
	}
	return rows
}

func ids(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestLoadDataset_CSV(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, separableRecords(6))

	ds, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset error: %v", err)
	}
	if ds.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", ds.Len())
	}
	if len(ds.Columns) != features.Width {
		t.Errorf("Columns = %d, want %d", len(ds.Columns), features.Width)
	}
	r := ds.Rows[1]
	if r.ID != "1" || r.Class != -1 || len(r.Features) != features.Width || r.Features[0] != -1 {
		t.Errorf("row 1 = %+v", r)
	}
	if got := ds.Classes(); len(got) != 2 || got[0] != -1 || got[1] != 1 {
		t.Errorf("Classes() = %v, want [-1 1]", got)
	}
}

func TestLoadDataset_XLSX(t *testing.T) {
	t.Parallel()
	records := separableRecords(4)
	path := filepath.Join(t.TempDir(), "dataset.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, rec := range records {
		cells := make([]interface{}, len(rec))
		for j, c := range rec {
			cells[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	ds, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset error: %v", err)
	}
	if ds.Len() != 4 || ds.Rows[0].Class != 1 || ds.Rows[3].Features[0] != -1 {
		t.Errorf("unexpected dataset: %d rows, first %+v", ds.Len(), ds.Rows[0])
	}
}

func TestLoadDataset_Rejects(t *testing.T) {
	t.Parallel()

	short := separableRecords(2)
	short[2] = short[2][:10]

	badCell := separableRecords(2)
	badCell[1][5] = "high"

	badClass := separableRecords(2)
	badClass[1][features.Width+1] = "7"

	badHeader := separableRecords(2)
	badHeader[0] = badHeader[0][:3]

	tests := []struct {
		name    string
		records [][]string
	}{
		{"short row", short},
		{"non-numeric cell", badCell},
		{"unknown class", badClass},
		{"short header", badHeader},
		{"header only", [][]string{header()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := LoadDataset(writeCSV(t, tt.records)); err == nil {
				t.Error("LoadDataset succeeded, want error")
			}
		})
	}

	if _, err := LoadDataset(filepath.Join(t.TempDir(), "dataset.parquet")); err == nil {
		t.Error("unsupported extension accepted")
	}
	if _, err := LoadDataset(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want not-exist", err)
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n, wantTest int
	}{
		{10, 2},
		{11, 3},
		{50, 10},
		{2, 1},
	}
	for _, tt := range tests {
		train, test, err := Split(rowsWithIDs(tt.n), 0.2, 42)
		if err != nil {
			t.Fatalf("Split(n=%d) error: %v", tt.n, err)
		}
		if len(test) != tt.wantTest || len(train)+len(test) != tt.n {
			t.Errorf("Split(n=%d) = %d train / %d test, want %d test", tt.n, len(train), len(test), tt.wantTest)
		}
		seen := make(map[string]bool)
		for _, id := range append(ids(train), ids(test)...) {
			if seen[id] {
				t.Errorf("Split(n=%d) repeats row %s", tt.n, id)
			}
			seen[id] = true
		}
	}
}

func TestSplit_Reproducible(t *testing.T) {
	t.Parallel()
	rows := rowsWithIDs(50)

	_, a, _ := Split(rows, 0.2, 42)
	_, b, _ := Split(rows, 0.2, 42)
	_, c, _ := Split(rows, 0.2, 7)
	if fmt.Sprint(ids(a)) != fmt.Sprint(ids(b)) {
		t.Errorf("same seed gave different test sets: %v vs %v", ids(a), ids(b))
	}
	if fmt.Sprint(ids(a)) == fmt.Sprint(ids(c)) {
		t.Errorf("different seeds gave the same test set %v", ids(a))
	}
}

func TestSplit_Invalid(t *testing.T) {
	t.Parallel()
	for _, frac := range []float64{0, 1, -0.5} {
		if _, _, err := Split(rowsWithIDs(10), frac, 42); err == nil {
			t.Errorf("Split(frac=%v) succeeded", frac)
		}
	}
	if _, _, err := Split(rowsWithIDs(1), 0.2, 42); err == nil {
		t.Error("Split of one row succeeded")
	}
}

func TestFit_PriorAndLabels(t *testing.T) {
	t.Parallel()
	ds, err := parseRecords("mem", separableRecords(40))
	if err != nil {
		t.Fatal(err)
	}

	e, err := Fit(ds.Rows, Options{Estimators: 3})
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	if e.InitScore != 0 {
		t.Errorf("InitScore = %v, want 0 for balanced classes", e.InitScore)
	}
	if e.Classes[0] != -1 || e.Classes[1] != 1 {
		t.Errorf("Classes = %v, want [-1 1]", e.Classes)
	}
	if e.Labels[0] != model.Phishing || e.Labels[1] != model.Legitimate {
		t.Errorf("Labels = %v, want [phishing legitimate]", e.Labels)
	}
	for i, tree := range e.Trees {
		if d := tree.Depth(); d > 4 {
			t.Errorf("tree %d depth %d exceeds 4", i, d)
		}
	}
	root := e.Trees[0].Nodes[0]
	if root.Leaf || root.Feature != 0 {
		t.Errorf("first split = %+v, want split on feature 0", root)
	}
	if err := e.Validate(features.Width); err != nil {
		t.Errorf("fitted ensemble does not validate: %v", err)
	}
}

func TestFit_SingleClass(t *testing.T) {
	t.Parallel()
	ds, err := parseRecords("mem", separableRecords(10))
	if err != nil {
		t.Fatal(err)
	}
	var phishing []Row
	for _, r := range ds.Rows {
		if r.Class == -1 {
			phishing = append(phishing, r)
		}
	}
	if _, err := Fit(phishing, Options{}); !errors.Is(err, ErrSingleClass) {
		t.Errorf("Fit(one class) error = %v, want ErrSingleClass", err)
	}

	for i := range phishing {
		if i%2 == 0 {
			phishing[i].Class = 0
		}
	}
	if _, err := Fit(phishing, Options{}); !errors.Is(err, ErrSingleClass) {
		t.Errorf("Fit(-1 and 0) error = %v, want ErrSingleClass", err)
	}
}

func TestTrain_Separable(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, separableRecords(60))

	e, report, err := Train(path, Options{Estimators: 20, Seed: 42})
	if err != nil {
		t.Fatalf("Train error: %v", err)
	}
	if report.TestRows != 12 || report.TrainRows != 48 {
		t.Errorf("rows = %d train / %d test, want 48 / 12", report.TrainRows, report.TestRows)
	}
	if report.TestAccuracy != 1 || report.TrainAccuracy != 1 {
		t.Errorf("accuracy train=%v test=%v, want 1", report.TrainAccuracy, report.TestAccuracy)
	}
	c := report.Confusion
	if c.FalsePhishing != 0 || c.FalseLegitimate != 0 || c.TruePhishing+c.TrueLegitimate != 12 {
		t.Errorf("confusion = %+v", c)
	}
	if e.Report == nil || e.Report.Seed != 42 || e.Report.MaxDepth != 4 || e.LearningRate != 0.7 {
		t.Errorf("artifact report = %+v, lr = %v", e.Report, e.LearningRate)
	}

	out := filepath.Join(t.TempDir(), "model.json.gz")
	if err := e.Save(out); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	loaded, err := model.Load(out, features.Width)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	legit := make([]float64, features.Width)
	legit[0] = 1
	p, err := loaded.Predict(legit)
	if err != nil {
		t.Fatal(err)
	}
	if p.Label != model.Legitimate || p.Probability <= 0.5 || math.IsNaN(p.Probability) {
		t.Errorf("Predict(x0=1) = %+v, want legitimate", p)
	}
	legit[0] = -1
	if p, _ = loaded.Predict(legit); p.Label != model.Phishing {
		t.Errorf("Predict(x0=-1) = %+v, want phishing", p)
	}
}

func TestTrain_Deterministic(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, separableRecords(30))

	a, _, err := Train(path, Options{Estimators: 5, Seed: 42})
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := Train(path, Options{Estimators: 5, Seed: 42})
	if err != nil {
		t.Fatal(err)
	}
	if a.InitScore != b.InitScore || fmt.Sprint(a.Trees) != fmt.Sprint(b.Trees) {
		t.Error("two runs with the same seed produced different ensembles")
	}
}
