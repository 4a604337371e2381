package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mjishnu/StoreListings/internal/httpx"
	"github.com/mjishnu/StoreListings/internal/util"
)

// Save streams one file into dir under fileName and returns the written
// path.
func Save(ctx context.Context, hc *httpx.Client, url, dir, fileName string) (string, error) {
	if err := util.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	body, size, err := hc.Stream(ctx, url)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", fileName, err)
	}
	defer func() { _ = body.Close() }()

	path := filepath.Join(dir, fileName)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	n, err := io.Copy(f, body)
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if size > 0 && n != size {
		_ = os.Remove(path)
		return "", fmt.Errorf("writing %s: short read (%d of %d bytes)", path, n, size)
	}
	logrus.Debugf("download: wrote %s (%d bytes)", path, n)
	return path, nil
}
