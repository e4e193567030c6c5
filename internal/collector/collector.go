package collector

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/baziar/testgate/internal/config"
	"github.com/baziar/testgate/internal/filter"
	"github.com/baziar/testgate/internal/fsx"
)

// Collector enumerates candidate test files from the compiled build output
// tree. It is the upstream producer for the test selection filter.
type Collector struct {
	dir    string
	suffix string
	ignore map[string]struct{}
	fsys   fsx.FS
	logger *zap.Logger
}

// New creates a collector over the configured build directory.
func New(cfg *config.Config, fsys fsx.FS, logger *zap.Logger) *Collector {
	ignore := make(map[string]struct{}, len(cfg.IgnoreDirs))
	for _, d := range cfg.IgnoreDirs {
		ignore[d] = struct{}{}
	}
	return &Collector{
		dir:    cfg.BuildDir,
		suffix: cfg.SourceSuffix,
		ignore: ignore,
		fsys:   fsys,
		logger: logger,
	}
}

// Collect walks the build tree and returns every regular file whose name
// ends in the source suffix, with contents loaded. Ignored directories are
// skipped wholesale; symlinks and unreadable files are skipped individually.
// Order is WalkDir's lexical order, so repeated runs over an unchanged tree
// produce the same sequence.
func (c *Collector) Collect(ctx context.Context) ([]filter.CandidateFile, error) {
	var files []filter.CandidateFile

	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			c.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			return nil
		}

		if d.IsDir() {
			if _, ok := c.ignore[d.Name()]; ok && path != c.dir {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if !strings.HasSuffix(d.Name(), c.suffix) {
			return nil
		}

		contents, err := c.fsys.ReadFile(path)
		if err != nil {
			c.logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
			return nil
		}

		files = append(files, filter.CandidateFile{Path: path, Contents: contents})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk build directory %s: %w", c.dir, err)
	}

	c.logger.Debug("collected candidate files", zap.String("dir", c.dir), zap.Int("count", len(files)))
	return files, nil
}
