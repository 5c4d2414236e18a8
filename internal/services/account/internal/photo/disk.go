package photo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Disk keeps photos as files under root. References are serveRoot joined with the file name.
type Disk struct {
	root      string
	serveRoot *url.URL
}

type DiskConfig struct {
	Root      string
	ServeRoot *url.URL
}

func NewDisk(cfg DiskConfig) (*Disk, error) {
	if cfg.ServeRoot == nil {
		return nil, errors.New("serve root is required")
	}

	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create photo root: %w", err)
	}

	return &Disk{
		root:      cfg.Root,
		serveRoot: cfg.ServeRoot,
	}, nil
}

func (d *Disk) Root() string {
	return d.root
}

func (d *Disk) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	f, err := os.OpenFile(filepath.Join(d.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	if _, err = f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("write image file: %w", err)
	}

	if err = f.Close(); err != nil {
		return "", fmt.Errorf("close image file: %w", err)
	}

	return d.serveRoot.JoinPath(name).String(), nil
}

func (d *Disk) Delete(ctx context.Context, ref string) error {
	name, ok := d.name(ref)
	if !ok {
		return fmt.Errorf("foreign photo reference %q", ref)
	}

	if err := os.Remove(filepath.Join(d.root, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove image file: %w", err)
	}

	return nil
}

func (d *Disk) Owns(ref string) bool {
	_, ok := d.name(ref)
	return ok
}

func (d *Disk) name(ref string) (string, bool) {
	prefix := strings.TrimSuffix(d.serveRoot.String(), "/") + "/"
	rest, ok := strings.CutPrefix(ref, prefix)
	if !ok || rest == "" || rest != path.Base(rest) || rest == "." || rest == ".." {
		return "", false
	}
	return rest, true
}
