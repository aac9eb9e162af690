package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleLabels = `index,mid,display_name
0,/m/09x0r,"Speech"
1,/m/05zppz,"Male speech, man speaking"
2,/m/02zsn,"Female speech, woman speaking"
`

func TestParseLabels(t *testing.T) {
	labels, err := ParseLabels(strings.NewReader(sampleLabels))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Speech", "Male speech, man speaking", "Female speech, woman speaking"}
	if len(labels) != len(want) {
		t.Fatalf("len = %d, want %d", len(labels), len(want))
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("labels[%d] = %q, want %q", i, labels[i], want[i])
		}
	}
}

func TestParseLabelsErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"header only", "index,mid,display_name\n"},
		{"bad index", "index,mid,display_name\nx,/m/1,A\n"},
		{"gap", "index,mid,display_name\n0,/m/1,A\n2,/m/2,B\n"},
		{"short row", "index,mid,display_name\n0,/m/1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLabels(strings.NewReader(tt.in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "class_labels_indices.csv")
	if err := os.WriteFile(path, []byte(sampleLabels), 0o644); err != nil {
		t.Fatal(err)
	}
	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 3 {
		t.Fatalf("len = %d, want 3", len(labels))
	}
	if _, err := LoadLabels(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
