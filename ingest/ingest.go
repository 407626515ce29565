// Package ingest captures candidate documents landing in a shared
// directory. Files copied over SMB arrive in chunks, so a file only
// counts as ingested once its size has held steady across several
// polls.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/qafax/qafax/errors"
	"github.com/qafax/qafax/logger"
)

// Artifact is one captured file, hashed at capture time so later
// verification can prove it ran against the bytes that landed.
type Artifact struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	SHA256     string    `json:"sha256"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Options tune capture behavior. Zero values take the defaults.
type Options struct {
	Pattern     string        // filename glob, default "*"
	StablePolls int           // consecutive equal sizes required, default 3
	Interval    time.Duration // poll spacing, default 1s
	HashRate    rate.Limit    // hashes per second, default 4
}

func (o *Options) applyDefaults() {
	if o.Pattern == "" {
		o.Pattern = "*"
	}
	if o.StablePolls <= 0 {
		o.StablePolls = 3
	}
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.HashRate <= 0 {
		o.HashRate = 4
	}
}

// Poller scans a directory for files that stabilize in size. It is the
// synchronous core; Watcher layers fsnotify wakeups on top of it.
type Poller struct {
	root    string
	opts    Options
	limiter *rate.Limiter
}

// NewPoller creates a poller over root.
func NewPoller(root string, opts Options) *Poller {
	opts.applyDefaults()
	return &Poller{
		root:    root,
		opts:    opts,
		limiter: rate.NewLimiter(opts.HashRate, 1),
	}
}

// Snapshot records the current size of every matching file, the
// baseline DetectNew diffs against.
func (p *Poller) Snapshot() map[string]int64 {
	sizes := make(map[string]int64)
	for _, path := range p.matching() {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		sizes[path] = info.Size()
	}
	return sizes
}

// DetectNew polls until at least one new or changed file stabilizes, the
// timeout passes, or the context is canceled. The baseline map is not
// modified.
func (p *Poller) DetectNew(ctx context.Context, baseline map[string]int64, timeout time.Duration) ([]Artifact, error) {
	deadline := time.Now().Add(timeout)
	seen := make(map[string]int64, len(baseline))
	for path, size := range baseline {
		seen[path] = size
	}

	var artifacts []Artifact
	for {
		for _, path := range p.matching() {
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if known, ok := seen[path]; ok && known == info.Size() {
				continue
			}
			artifact, ok, err := p.capture(ctx, path, info.Size())
			if err != nil {
				return artifacts, err
			}
			if !ok {
				continue
			}
			artifacts = append(artifacts, *artifact)
			seen[path] = artifact.Size
		}
		if len(artifacts) > 0 || time.Now().After(deadline) {
			return artifacts, nil
		}
		select {
		case <-ctx.Done():
			return artifacts, errors.Wrap(ctx.Err(), "ingest poll canceled")
		case <-time.After(p.opts.Interval):
		}
	}
}

// capture waits for the file to stabilize, then hashes it. The second
// return is false when the file vanished or never settled.
func (p *Poller) capture(ctx context.Context, path string, initialSize int64) (*Artifact, bool, error) {
	size, ok := p.waitStable(ctx, path, initialSize)
	if !ok {
		return nil, false, nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, false, errors.Wrap(err, "ingest hash limiter")
	}
	sha, err := hashFile(path)
	if err != nil {
		// Vanished or locked between stabilizing and hashing.
		logger.Warnw("ingest could not hash file",
			logger.FieldPath, path,
			logger.FieldError, err)
		return nil, false, nil
	}
	logger.Infow("ingested artifact",
		logger.FieldPath, path,
		logger.FieldSize, size)
	return &Artifact{
		Path:       path,
		Size:       size,
		SHA256:     sha,
		CapturedAt: time.Now().UTC(),
	}, true, nil
}

// waitStable polls the file size until it holds steady for the
// configured number of consecutive polls.
func (p *Poller) waitStable(ctx context.Context, path string, initialSize int64) (int64, bool) {
	size := initialSize
	consecutive := 0
	for i := 0; i < p.opts.StablePolls; i++ {
		select {
		case <-ctx.Done():
			return 0, false
		case <-time.After(p.opts.Interval):
		}
		info, err := os.Stat(path)
		if err != nil {
			return 0, false
		}
		if info.Size() == size {
			consecutive++
		} else {
			consecutive = 0
			size = info.Size()
		}
		if consecutive >= p.opts.StablePolls-1 {
			return size, true
		}
	}
	return 0, false
}

// matching lists regular files under root that match the pattern,
// skipping in-flight copy suffixes.
func (p *Poller) matching() []string {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if isPartial(name) {
			continue
		}
		if ok, err := filepath.Match(p.opts.Pattern, name); err != nil || !ok {
			continue
		}
		paths = append(paths, filepath.Join(p.root, name))
	}
	return paths
}

func isPartial(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".tmp") || strings.HasSuffix(lower, ".partial")
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	digest := sha256.New()
	if _, err := io.Copy(digest, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
