package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/permits-ledger/internal/common"
)

type call struct {
	name string
	args []string
}

// fakeRunner records invocations; pdftoppm calls create the requested PNG.
type fakeRunner struct {
	calls  []call
	stdout string
	err    error
	noPNG  bool
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if f.err != nil {
		return nil, []byte("boom"), f.err
	}
	if name == "pdftoppm" && !f.noPNG {
		prefix := args[len(args)-1]
		if err := os.WriteFile(prefix+".png", []byte("png"), 0o644); err != nil {
			return nil, nil, err
		}
	}
	return []byte(f.stdout), nil, nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if name == "missing" {
		return "", errors.New("not in PATH")
	}
	return "/usr/bin/" + name, nil
}

func TestRasterize(t *testing.T) {
	r := &fakeRunner{}
	e := NewExtractorWithRunner(Config{TempDir: t.TempDir()}, r, nil)

	img, release, err := e.Rasterize(context.Background(), "in.pdf", 2, 200)
	require.NoError(t, err)
	require.FileExists(t, img)

	require.Len(t, r.calls, 1)
	assert.Equal(t, "pdftoppm", r.calls[0].name)
	assert.Equal(t, []string{"-f", "2", "-l", "2", "-r", "200", "-png", "-singlefile", "in.pdf"}, r.calls[0].args[:9])

	release()
	assert.NoFileExists(t, img)
}

func TestRasterizeFailure(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
	}{
		{name: "command error", runner: &fakeRunner{err: errors.New("exit status 1")}},
		{name: "no image written", runner: &fakeRunner{noPNG: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractorWithRunner(Config{TempDir: t.TempDir()}, tt.runner, nil)
			_, release, err := e.Rasterize(context.Background(), "in.pdf", 1, 150)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrRasterize)
			assert.NotNil(t, release)
			release()
		})
	}
}

func TestRecognize(t *testing.T) {
	r := &fakeRunner{stdout: "Dozvola  za\tboravak\r\n\n\n\n-----\nrad\n"}
	e := NewExtractorWithRunner(Config{TessdataDir: "/share/tessdata", PSM: 6}, r, nil)

	txt, err := e.Recognize(context.Background(), "page.png")
	require.NoError(t, err)
	assert.Equal(t, "Dozvola za boravak\n\nrad", txt)

	require.Len(t, r.calls, 1)
	assert.Equal(t, "tesseract", r.calls[0].name)
	assert.Equal(t, []string{"page.png", "stdout", "-l", "hrv", "--psm", "6", "--tessdata-dir", "/share/tessdata"}, r.calls[0].args)
}

func TestRecognizeFailure(t *testing.T) {
	e := NewExtractorWithRunner(Config{}, &fakeRunner{err: errors.New("exit status 1")}, nil)
	_, err := e.Recognize(context.Background(), "page.png")
	assert.ErrorIs(t, err, common.ErrRecognize)
}

func TestCheck(t *testing.T) {
	e := NewExtractorWithRunner(Config{Pdftoppm: "missing"}, &fakeRunner{}, nil)
	err := e.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing not found")

	ok := NewExtractorWithRunner(Config{}, &fakeRunner{}, nil)
	assert.NoError(t, ok.Check())
}

func TestPageCountRejectsGarbage(t *testing.T) {
	path := t.TempDir() + "/broken.pdf"
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	e := NewExtractor(Config{}, nil)
	_, err := e.PageCount(path)
	assert.ErrorIs(t, err, common.ErrDocumentOpen)

	_, err = e.PageCount(path + ".missing")
	assert.ErrorIs(t, err, common.ErrDocumentOpen)
}
