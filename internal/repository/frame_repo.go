package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FrameFS stores captured frames under a single directory:
// latest.jpg is always the most recent capture, and every capture also
// gets an immutable archive copy named frame_<timestamp>.jpg. When a
// retention cap is set, the oldest archive files are pruned first.
type FrameFS struct {
	dir       string
	retention int
}

const (
	latestName     = "latest.jpg"
	framePrefix    = "frame_"
	frameExt       = ".jpg"
	frameTimestamp = "20060102_150405"
)

func NewFrameFS(dir string, retention int) *FrameFS {
	return &FrameFS{dir: dir, retention: retention}
}

// Store writes the archive copy and atomically replaces latest.jpg.
// Returns the archive path.
func (r *FrameFS) Store(data []byte, capturedAt time.Time) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("refusing to store empty frame")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create frames dir %q: %w", r.dir, err)
	}

	name := framePrefix + capturedAt.UTC().Format(frameTimestamp) + frameExt
	archivePath := filepath.Join(r.dir, name)
	if err := os.WriteFile(archivePath, data, 0o644); err != nil {
		return "", fmt.Errorf("write archive frame: %w", err)
	}

	// tmp + rename so readers never observe a half-written latest.jpg
	tmp := filepath.Join(r.dir, ".latest.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write latest tmp: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(r.dir, latestName)); err != nil {
		return "", fmt.Errorf("replace latest.jpg: %w", err)
	}

	if err := r.prune(); err != nil {
		// pruning is housekeeping; the capture itself succeeded
		return archivePath, nil
	}
	return archivePath, nil
}

// Latest returns the bytes and modification time of latest.jpg.
// os.ErrNotExist when no frame has ever been stored.
func (r *FrameFS) Latest() ([]byte, time.Time, error) {
	path := filepath.Join(r.dir, latestName)
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, info.ModTime().UTC(), nil
}

// prune removes the oldest archive frames beyond the retention cap.
// Archive names sort lexicographically by timestamp, oldest first.
func (r *FrameFS) prune() error {
	if r.retention <= 0 {
		return nil
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}
	var frames []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasPrefix(n, framePrefix) && strings.HasSuffix(n, frameExt) {
			frames = append(frames, n)
		}
	}
	if len(frames) <= r.retention {
		return nil
	}
	sort.Strings(frames)
	for _, n := range frames[:len(frames)-r.retention] {
		if err := os.Remove(filepath.Join(r.dir, n)); err != nil {
			return err
		}
	}
	return nil
}
