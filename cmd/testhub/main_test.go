package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"testhub/internal/config"
	"testhub/internal/upload"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	origErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	outDone := make(chan string)
	errDone := make(chan string)
	drain := func(r io.Reader, done chan<- string) {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}
	go drain(rOut, outDone)
	go drain(rErr, errDone)

	fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = origOut
	os.Stderr = origErr
	return <-outDone + <-errDone
}

// setupGenerate points the command at backend and resets the flags.
func setupGenerate(t *testing.T, backendURL string) {
	t.Helper()
	logger = zap.NewNop()
	cfg = config.DefaultConfig()
	cfg.Backend.BaseURL = backendURL

	genLanguage, genFramework, genInstructions, genOutDir = "", "", "", ""
	genCopy = false
	genConcurrency = 4
	t.Cleanup(func() {
		genLanguage, genFramework, genInstructions, genOutDir = "", "", "", ""
		genCopy = false
	})
}

type recordedUpload struct {
	name       string
	uploadType string
	language   string
	framework  string
}

func newRecordingBackend(t *testing.T, status int, body string) (*httptest.Server, func() []recordedUpload) {
	t.Helper()
	var mu sync.Mutex
	var seen []recordedUpload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("bad multipart body: %v", err)
		}
		_, hdr, _ := r.FormFile(upload.FieldFile)
		rec := recordedUpload{
			uploadType: r.FormValue(upload.FieldUploadType),
			language:   r.FormValue(upload.FieldLanguage),
			framework:  r.FormValue(upload.FieldFramework),
		}
		if hdr != nil {
			rec.name = hdr.Filename
		}
		mu.Lock()
		seen = append(seen, rec)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts, func() []recordedUpload {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedUpload(nil), seen...)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGeneratePrintsScript(t *testing.T) {
	ts, seen := newRecordingBackend(t, http.StatusOK, `{"message":"ok","data":{"generated_script":"import unittest"}}`)
	setupGenerate(t, ts.URL)
	genFramework = "pytest"

	path := writeFile(t, t.TempDir(), "calc.py", "x = 1\n")
	output := captureOutput(t, func() {
		if err := runGenerate(&cobra.Command{}, []string{path}); err != nil {
			t.Fatalf("runGenerate returned error: %v", err)
		}
	})

	assert.Contains(t, output, "import unittest")
	got := seen()
	require.Len(t, got, 1)
	assert.Equal(t, recordedUpload{name: "calc.py", uploadType: "single", language: "python", framework: "pytest"}, got[0])
}

func TestGenerateRoutesZipToArchive(t *testing.T) {
	ts, seen := newRecordingBackend(t, http.StatusOK, `{"data":{"generated_script":"ok"}}`)
	setupGenerate(t, ts.URL)

	path := writeFile(t, t.TempDir(), "project.zip", "PK\x03\x04")
	captureOutput(t, func() {
		require.NoError(t, runGenerate(&cobra.Command{}, []string{path}))
	})

	got := seen()
	require.Len(t, got, 1)
	assert.Equal(t, "zip", got[0].uploadType)
}

func TestGenerateWritesOutDir(t *testing.T) {
	ts, _ := newRecordingBackend(t, http.StatusOK, `{"data":{"generated_script":"def test_x():\n    pass\n"}}`)
	setupGenerate(t, ts.URL)

	src := t.TempDir()
	genOutDir = filepath.Join(t.TempDir(), "out")
	a := writeFile(t, src, "a.py", "a")
	b := writeFile(t, src, "b.js", "b")

	captureOutput(t, func() {
		require.NoError(t, runGenerate(&cobra.Command{}, []string{a, b}))
	})

	for _, name := range []string{"a.generated.txt", "b.generated.txt"} {
		data, err := os.ReadFile(filepath.Join(genOutDir, name))
		require.NoError(t, err)
		assert.Equal(t, "def test_x():\n    pass\n", string(data))
	}
}

func TestGenerateFailureExitsNonZero(t *testing.T) {
	ts, _ := newRecordingBackend(t, http.StatusInternalServerError, `{"message":"boom"}`)
	setupGenerate(t, ts.URL)

	path := writeFile(t, t.TempDir(), "calc.py", "x")
	var err error
	output := captureOutput(t, func() {
		err = runGenerate(&cobra.Command{}, []string{path})
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 submissions failed")
	assert.Contains(t, output, "Error: 500 - boom")
}

func TestGenerateMissingPathNeverReachesBackend(t *testing.T) {
	ts, seen := newRecordingBackend(t, http.StatusOK, `{}`)
	setupGenerate(t, ts.URL)

	var err error
	captureOutput(t, func() {
		err = runGenerate(&cobra.Command{}, []string{filepath.Join(t.TempDir(), "missing.py")})
	})

	require.Error(t, err)
	assert.Empty(t, seen())
}

func TestGenerateRespectsConcurrency(t *testing.T) {
	var inflight, peak int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		_, _ = w.Write([]byte(`{"data":{"generated_script":"ok"}}`))
	}))
	defer ts.Close()
	setupGenerate(t, ts.URL)
	genConcurrency = 2

	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.py", "b.py", "c.py", "d.py", "e.py"} {
		paths = append(paths, writeFile(t, dir, name, name))
	}

	captureOutput(t, func() {
		require.NoError(t, runGenerate(&cobra.Command{}, paths))
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestGenerateCopy(t *testing.T) {
	original := clipboardWriteAll
	defer func() { clipboardWriteAll = original }()
	var copied []string
	clipboardWriteAll = func(s string) error {
		copied = append(copied, s)
		return nil
	}

	ts, _ := newRecordingBackend(t, http.StatusOK, `{"data":{"generated_script":"print(1)"}}`)
	setupGenerate(t, ts.URL)
	genCopy = true

	path := writeFile(t, t.TempDir(), "calc.py", "x")
	output := captureOutput(t, func() {
		require.NoError(t, runGenerate(&cobra.Command{}, []string{path}))
	})

	assert.Equal(t, []string{"print(1)"}, copied)
	assert.Contains(t, output, "Copied generated script to clipboard")
}

func TestScriptFileName(t *testing.T) {
	cases := map[string]string{
		"calc.py":            "calc.generated.txt",
		"/tmp/project.zip":   "project.generated.txt",
		"Makefile":           "Makefile.generated.txt",
		"dir/archive.tar.gz": "archive.tar.generated.txt",
	}
	for in, want := range cases {
		if got := scriptFileName(in); got != want {
			t.Fatalf("scriptFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConfigInit(t *testing.T) {
	configPath = filepath.Join(t.TempDir(), ".testhub", "config.yaml")
	forceInit = false
	defer func() { configPath = config.DefaultPath }()

	output := captureOutput(t, func() {
		require.NoError(t, runConfigInit(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "Wrote default configuration")

	loaded, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5001", loaded.Backend.BaseURL)

	err = runConfigInit(&cobra.Command{}, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "already exists"))

	forceInit = true
	defer func() { forceInit = false }()
	captureOutput(t, func() {
		require.NoError(t, runConfigInit(&cobra.Command{}, nil))
	})
}

func TestConfigShow(t *testing.T) {
	cfg = config.DefaultConfig()
	output := captureOutput(t, func() {
		require.NoError(t, runConfigShow(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "base_url: http://localhost:5001")
	assert.Contains(t, output, "endpoint: /api/upload-and-generate")
}

func TestConfigInitForceReplacesBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [unclosed"), 0644))
	t.Cleanup(func() {
		configPath = config.DefaultPath
		forceInit = false
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"config", "init", "--force", "--config", path})
	var err error
	output := captureOutput(t, func() {
		err = rootCmd.Execute()
	})

	require.NoError(t, err)
	assert.Contains(t, output, "Wrote default configuration")

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Backend.Endpoint, loaded.Backend.Endpoint)
}

func TestBrokenConfigStillFailsOtherCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [unclosed"), 0644))
	t.Cleanup(func() {
		configPath = config.DefaultPath
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"config", "show", "--config", path})
	var err error
	captureOutput(t, func() {
		err = rootCmd.Execute()
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}
