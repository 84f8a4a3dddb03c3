package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"spisbot/pkg/logx"
)

// fileSink keeps every snapshot as a separate file in one directory.
// Latest picks by modification time, so restores survive renames.
type fileSink struct {
	dir string
	log logx.Logger
}

func newFileSink(dir string, log logx.Logger) (*fileSink, error) {
	if dir == "" {
		dir = "./data/snapshots"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &fileSink{dir: dir, log: log}, nil
}

func (s *fileSink) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.dir, filepath.Base(name))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	s.log.Debug("snapshot written", logx.String("path", path), logx.Int("bytes", len(data)))
	return nil
}

func (s *fileSink) Latest(ctx context.Context) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		return "", nil, err
	}
	var (
		bestName string
		bestMod  int64
	)
	for _, de := range ents {
		if de.IsDir() || filepath.Ext(de.Name()) == ".tmp" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); bestName == "" || mod > bestMod {
			bestName, bestMod = de.Name(), mod
		}
	}
	if bestName == "" {
		return "", nil, fmt.Errorf("no snapshots in %s", s.dir)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, bestName))
	if err != nil {
		return "", nil, err
	}
	return bestName, data, nil
}

func (s *fileSink) Close() error { return nil }
