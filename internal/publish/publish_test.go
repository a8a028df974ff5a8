package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type recordingUploader struct {
	uploaded []string
	err      error
}

func (u *recordingUploader) UploadFile(_ context.Context, localPath string) error {
	if u.err != nil {
		return u.err
	}
	u.uploaded = append(u.uploaded, filepath.Base(localPath))
	return nil
}

func writeExportPair(t *testing.T, dir, stamp string) (string, string) {
	t.Helper()
	proposals := filepath.Join(dir, "snapshot_proposals_df_"+stamp+".csv")
	votes := filepath.Join(dir, "snapshot_votes_df_"+stamp+".csv")
	for _, p := range []string{proposals, votes} {
		if err := os.WriteFile(p, []byte("id\n"), 0644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return proposals, votes
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewManager_Disabled(t *testing.T) {
	t.Parallel()

	m, err := NewManager(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil manager when nothing is configured")
	}
}

func TestNewManager_KeepLastRequiresDir(t *testing.T) {
	t.Parallel()

	if _, err := NewManager(Config{KeepLast: 2}); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestNewManager_BucketRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewManager(Config{Dir: t.TempDir(), BucketURL: "s3://exports/govsnap"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestPublish_PrunesWholePairs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeExportPair(t, dir, "20240101-000000")
	writeExportPair(t, dir, "20240102-000000")
	p, v := writeExportPair(t, dir, "20240103-000000")
	if err := os.WriteFile(filepath.Join(dir, "snapshot_staging_20240101-000000.duckdb"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.csv"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	uploader := &recordingUploader{}
	m := &Manager{cfg: Config{Dir: dir, KeepLast: 2}, uploader: uploader}
	if err := m.Publish(context.Background(), p, v); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	want := []string{
		"notes.csv",
		"snapshot_proposals_df_20240102-000000.csv",
		"snapshot_proposals_df_20240103-000000.csv",
		"snapshot_votes_df_20240102-000000.csv",
		"snapshot_votes_df_20240103-000000.csv",
	}
	got := listDir(t, dir)
	slices.Sort(got)
	if !slices.Equal(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	if len(uploader.uploaded) != 2 || !strings.HasPrefix(uploader.uploaded[0], "snapshot_proposals_df_") {
		t.Fatalf("uploaded = %v", uploader.uploaded)
	}
}

func TestPublish_UploadFailureSkipsPrune(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeExportPair(t, dir, "20240101-000000")
	p, v := writeExportPair(t, dir, "20240102-000000")

	m := &Manager{
		cfg:      Config{Dir: dir, KeepLast: 1},
		uploader: &recordingUploader{err: errors.New("denied")},
	}
	if err := m.Publish(context.Background(), p, v); err == nil {
		t.Fatal("expected upload error")
	}
	if n := len(listDir(t, dir)); n != 4 {
		t.Fatalf("files = %d, want 4", n)
	}
}

func TestExportStamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"snapshot_proposals_df_20240309-140507.csv", "20240309-140507", true},
		{"snapshot_votes_df_20240309-140507.csv", "20240309-140507", true},
		{"snapshot_staging_20240309-140507.duckdb", "20240309-140507", true},
		{"snapshot_staging_20240309-140507.duckdb.tmp", "", false},
		{"snapshot_votes_df_latest.csv", "", false},
		{"snapshot_votes_df_20241399-999999.csv", "", false},
		{"snapshot_other_df_20240309-140507.csv", "", false},
	}
	for _, tt := range tests {
		got, ok := exportStamp(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("exportStamp(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}
