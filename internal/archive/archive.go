package archive

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/common"
)

// Archiver owns the on-disk layout under the storage root:
//
//	<root>/<category folder>/            intake
//	<root>/<category folder>/Processed/  archived documents
//
// Links are built from the path relative to root.
type Archiver struct {
	root    string
	baseURL string
	logger  *slog.Logger
}

func NewArchiver(root, baseURL string, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		root:    filepath.Clean(root),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Root returns the storage root.
func (a *Archiver) Root() string { return a.root }

// IntakeDir is where documents of cat wait for processing.
func (a *Archiver) IntakeDir(cat constants.Category) string {
	return filepath.Join(a.root, cat.Folder)
}

// ProcessedDir is where documents of cat end up.
func (a *Archiver) ProcessedDir(cat constants.Category) string {
	return filepath.Join(a.root, cat.Folder, constants.ProcessedDir)
}

// Stage writes an uploaded document into the intake folder of cat and
// returns its path. An existing file with the same name is replaced.
func (a *Archiver) Stage(cat constants.Category, name string, r io.Reader) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("%w: empty filename", common.ErrInvalidInput)
	}
	dir := a.IntakeDir(cat)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create intake dir: %v", common.ErrArchive, err)
	}

	dst := filepath.Join(dir, base)
	tmp, err := os.CreateTemp(dir, ".stage-*")
	if err != nil {
		return "", fmt.Errorf("%w: stage %s: %v", common.ErrArchive, base, err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dst)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: stage %s: %v", common.ErrArchive, base, err)
	}

	a.logger.Debug("archive.stage.ok", "path", dst, "bytes", n)
	return dst, nil
}

// Destination is the path a staged document will have once archived.
func (a *Archiver) Destination(cat constants.Category, stagedPath string) string {
	return filepath.Join(a.ProcessedDir(cat), filepath.Base(stagedPath))
}

// LinkFor returns the link the document at stagedPath will get once archived.
func (a *Archiver) LinkFor(cat constants.Category, stagedPath string) (string, error) {
	return a.Link(a.Destination(cat, stagedPath))
}

// Archive moves a staged document into the processed folder of cat and
// returns the final path.
func (a *Archiver) Archive(cat constants.Category, stagedPath string) (string, error) {
	dst := a.Destination(cat, stagedPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("%w: create processed dir: %v", common.ErrArchive, err)
	}
	if samePath(stagedPath, dst) {
		return dst, nil
	}

	if err := os.Rename(stagedPath, dst); err != nil {
		if !errors.Is(err, syscall.EXDEV) {
			return "", fmt.Errorf("%w: move %s: %v", common.ErrArchive, stagedPath, err)
		}
		// rename cannot cross devices; fall back to copy + remove
		if cerr := copyFile(stagedPath, dst); cerr != nil {
			return "", fmt.Errorf("%w: move %s: %v (copy: %v)", common.ErrArchive, stagedPath, err, cerr)
		}
		if rerr := os.Remove(stagedPath); rerr != nil {
			a.logger.Warn("archive.remove_staged.failed", "path", stagedPath, "error", rerr)
		}
	}

	a.logger.Info("archive.move.ok", "from", stagedPath, "to", dst)
	return dst, nil
}

// Link renders finalPath as a URL under the base URL. The path relative to
// root is joined with '/' and every segment is percent-encoded.
func (a *Archiver) Link(finalPath string) (string, error) {
	abs, err := filepath.Abs(finalPath)
	if err != nil {
		return "", err
	}
	root, err := filepath.Abs(a.root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not under %s", common.ErrInvalidInput, finalPath, a.root)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s is not under %s", common.ErrInvalidInput, finalPath, a.root)
	}
	return a.baseURL + "/" + EscapePath(rel), nil
}

// EscapePath percent-encodes each segment of a slash separated path. Every
// byte outside A-Z a-z 0-9 - . _ ~ is encoded, so links match those the
// ledger already holds for names with + & = : @ $.
func EscapePath(rel string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(rel) * 3)
	for i := 0; i < len(rel); i++ {
		c := rel[i]
		if c == '/' || unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '.' || c == '_' || c == '~'
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
