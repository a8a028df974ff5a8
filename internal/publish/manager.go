// Package publish uploads finished export files and prunes old ones.
package publish

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tinytelemetry/govsnap/internal/model"
)

// exportGlob matches the CSV pair and the optional staging database.
const exportGlob = "snapshot_*"

// Manager publishes the files of one export run.
type Manager struct {
	cfg      Config
	uploader Uploader
}

// NewManager initializes the publisher. It returns nil when neither pruning
// nor uploads are configured.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.KeepLast <= 0 && strings.TrimSpace(cfg.BucketURL) == "" {
		return nil, nil
	}
	if cfg.KeepLast > 0 && strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("publish: dir is required when keep-last is set")
	}

	m := &Manager{cfg: cfg}
	if strings.TrimSpace(cfg.BucketURL) != "" {
		s3u, err := NewS3Uploader(S3Config{
			BucketURL:    cfg.BucketURL,
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			SessionToken: cfg.S3SessionToken,
			UseSSL:       cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("publish: init s3 uploader: %w", err)
		}
		m.uploader = s3u
	}
	return m, nil
}

// Publish uploads each path when a bucket is configured, then prunes export
// pairs beyond keep-last. Upload failures stop before pruning so that no
// local copy is lost.
func (m *Manager) Publish(ctx context.Context, paths ...string) error {
	if m.uploader != nil {
		for _, p := range paths {
			if p == "" {
				continue
			}
			if err := m.uploader.UploadFile(ctx, p); err != nil {
				return fmt.Errorf("upload %s: %w", filepath.Base(p), err)
			}
			log.Printf("publish: uploaded %s", filepath.Base(p))
		}
	}

	removed, err := pruneExports(m.cfg.Dir, m.cfg.KeepLast)
	if err != nil {
		return fmt.Errorf("prune exports: %w", err)
	}
	if removed > 0 {
		log.Printf("publish: pruned %d old export files", removed)
	}
	return nil
}

// pruneExports keeps the newest keepLast export stamps in dir. All files
// sharing a stamp are kept or removed together.
func pruneExports(dir string, keepLast int) (int, error) {
	if keepLast <= 0 {
		return 0, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, exportGlob))
	if err != nil {
		return 0, err
	}

	byStamp := make(map[string][]string)
	for _, m := range matches {
		stamp, ok := exportStamp(filepath.Base(m))
		if !ok {
			continue
		}
		byStamp[stamp] = append(byStamp[stamp], m)
	}
	if len(byStamp) <= keepLast {
		return 0, nil
	}

	stamps := make([]string, 0, len(byStamp))
	for s := range byStamp {
		stamps = append(stamps, s)
	}
	// the layout sorts lexically in chronological order
	sort.Sort(sort.Reverse(sort.StringSlice(stamps)))

	removed := 0
	for _, stamp := range stamps[keepLast:] {
		for _, p := range byStamp[stamp] {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// exportStamp extracts the timestamp from an export file name.
func exportStamp(name string) (string, bool) {
	var rest string
	switch {
	case strings.HasPrefix(name, model.ProposalsFilePrefix) && strings.HasSuffix(name, ".csv"):
		rest = strings.TrimSuffix(strings.TrimPrefix(name, model.ProposalsFilePrefix), ".csv")
	case strings.HasPrefix(name, model.VotesFilePrefix) && strings.HasSuffix(name, ".csv"):
		rest = strings.TrimSuffix(strings.TrimPrefix(name, model.VotesFilePrefix), ".csv")
	case strings.HasPrefix(name, model.StagingFilePrefix) && strings.HasSuffix(name, ".duckdb"):
		rest = strings.TrimSuffix(strings.TrimPrefix(name, model.StagingFilePrefix), ".duckdb")
	default:
		return "", false
	}
	if _, err := time.Parse(model.ExportTimeLayout, rest); err != nil {
		return "", false
	}
	return rest, true
}
