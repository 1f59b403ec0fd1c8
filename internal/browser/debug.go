package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DebugOutput persists page snapshots for post-mortem inspection.
type DebugOutput struct {
	directory string
}

func NewDebugOutput(dir string) (DebugOutput, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return DebugOutput{}, err
	}
	return DebugOutput{directory: dir}, nil
}

func (o DebugOutput) Directory() string {
	return o.directory
}

// Save writes <prefix>_<HHMMSS>.html and, when the driver can render, the
// matching .png. It returns the paths written.
func (o DebugOutput) Save(ctx context.Context, d Driver, prefix string, now time.Time) ([]string, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture snapshot: %w", err)
	}

	name := fmt.Sprintf("%s_%s", prefix, now.Format("150405"))
	var written []string

	htmlPath := filepath.Join(o.directory, name+".html")
	err = os.WriteFile(htmlPath, []byte(snap.HTML), 0o600)
	if err != nil {
		return written, err
	}
	written = append(written, htmlPath)

	if len(snap.Screenshot) > 0 {
		pngPath := filepath.Join(o.directory, name+".png")
		err = os.WriteFile(pngPath, snap.Screenshot, 0o600)
		if err != nil {
			return written, err
		}
		written = append(written, pngPath)
	}
	return written, nil
}
