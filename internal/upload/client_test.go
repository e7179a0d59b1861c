package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func writeTempFile(t *testing.T, name, content string) File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	f, err := FileFromPath(path)
	require.NoError(t, err)
	return f
}

// newBackend serves a fixed status/body and counts requests.
func newBackend(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func TestClientSendsMultipartFields(t *testing.T) {
	var got map[string]string
	var fileName, fileBody, requestID string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/upload-and-generate" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
			return
		}
		got = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			got[k] = v[0]
		}
		f, hdr, err := r.FormFile(FieldFile)
		if err != nil {
			t.Errorf("missing file part: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		fileName, fileBody = hdr.Filename, string(data)
		requestID = r.Header.Get("X-Request-ID")

		w.Write([]byte(`{"message":"ok","data":{"generated_script":"print(1)"}}`))
	}))
	defer ts.Close()

	file := writeTempFile(t, "calc.py", "def add(a, b):\n    return a + b\n")
	client := NewClient(ts.URL+"/api/upload-and-generate",
		WithHTTPClient(ts.Client()),
		WithRequestIDFunc(func() string { return "req-123" }),
	)

	outcome := client.Generate(context.Background(), Request{
		ID:         1,
		File:       file,
		UploadType: UploadTypeSingle,
		Target:     Target{Language: "python", Framework: "pytest", Instructions: "mock the network"},
	})

	want := map[string]string{
		FieldUploadType:   "single",
		FieldLanguage:     "python",
		FieldFramework:    "pytest",
		FieldInstructions: "mock the network",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("form fields mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "calc.py", fileName)
	assert.Equal(t, "def add(a, b):\n    return a + b\n", fileBody)
	assert.Equal(t, "req-123", requestID)
	assert.Equal(t, Success{Message: "ok", Script: "print(1)"}, outcome)
}

func TestClientOmitsEmptyInstructions(t *testing.T) {
	var fields map[string][]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			fields = r.MultipartForm.Value
		}
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, WithHTTPClient(ts.Client()))
	client.Generate(context.Background(), Request{
		File:       writeTempFile(t, "project.zip", "PK"),
		UploadType: UploadTypeZip,
		Target:     DefaultTarget(),
	})

	require.NotNil(t, fields)
	assert.Equal(t, []string{"zip"}, fields[FieldUploadType])
	_, hasInstructions := fields[FieldInstructions]
	assert.False(t, hasInstructions)
}

func TestClientOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Outcome
	}{
		{
			name:   "success with script",
			status: http.StatusOK,
			body:   `{"message":"Successfully processed 'calc.py' and generated tests.","data":{"generated_script":"import unittest","original_filename":"calc.py","upload_type":"single"}}`,
			want: Success{
				Message:          "Successfully processed 'calc.py' and generated tests.",
				Script:           "import unittest",
				OriginalFilename: "calc.py",
				UploadType:       "single",
			},
		},
		{
			name:   "success without data",
			status: http.StatusCreated,
			body:   `{"message":"queued"}`,
			want:   Success{Message: "queued"},
		},
		{
			name:   "server error with message",
			status: http.StatusInternalServerError,
			body:   `{"message":"boom"}`,
			want:   HTTPError{StatusCode: 500, Message: "boom"},
		},
		{
			name:   "backend error key",
			status: http.StatusBadRequest,
			body:   `{"error":"File type not allowed"}`,
			want:   HTTPError{StatusCode: 400, Message: "File type not allowed"},
		},
		{
			name:   "error body without message",
			status: http.StatusBadGateway,
			body:   `{}`,
			want:   HTTPError{StatusCode: 502, Message: "Bad Gateway"},
		},
		{
			name:   "unparseable error body",
			status: http.StatusServiceUnavailable,
			body:   `<html>down</html>`,
			want:   HTTPError{StatusCode: 503, Message: MsgUnparseableError},
		},
	}

	file := writeTempFile(t, "calc.py", "x = 1\n")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, calls := newBackend(t, tt.status, tt.body)
			client := NewClient(ts.URL, WithHTTPClient(ts.Client()))

			got := client.Generate(context.Background(), Request{File: file, UploadType: UploadTypeSingle})

			assert.Equal(t, tt.want, got)
			assert.Equal(t, int32(1), atomic.LoadInt32(calls), "exactly one POST per submission")
		})
	}
}

func TestClientInvalidSuccessBody(t *testing.T) {
	ts, _ := newBackend(t, http.StatusOK, `not json`)
	client := NewClient(ts.URL, WithHTTPClient(ts.Client()))

	got := client.Generate(context.Background(), Request{File: writeTempFile(t, "a.py", "x")})

	var te TransportError
	require.ErrorAs(t, Err(got), &te)
	assert.Contains(t, te.Error(), "failed to parse response")
}

func TestClientTransportError(t *testing.T) {
	hc := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("offline")
	})}
	client := NewClient("http://backend.invalid/api/upload-and-generate", WithHTTPClient(hc))

	got := client.Generate(context.Background(), Request{File: writeTempFile(t, "a.py", "x")})

	te, ok := got.(TransportError)
	require.True(t, ok, "expected TransportError, got %T", got)
	assert.Contains(t, te.Error(), "offline")
}

func TestClientMissingFile(t *testing.T) {
	var calls int32
	hc := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("unreachable")
	})}
	client := NewClient("http://backend.invalid", WithHTTPClient(hc))

	got := client.Generate(context.Background(), Request{File: File{Name: "gone.py", Path: filepath.Join(t.TempDir(), "gone.py")}})

	_, ok := got.(TransportError)
	assert.True(t, ok)
	assert.Zero(t, atomic.LoadInt32(&calls), "no request is sent when the file cannot be read")
}

func TestFormAndClientEndToEnd(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ts, _ := newBackend(t, http.StatusOK, `{"message":"ok","data":{"generated_script":"print(1)"}}`)
		client := NewClient(ts.URL, WithHTTPClient(ts.Client()))

		form := NewForm(DefaultTarget())
		file := writeTempFile(t, "main.py", "print('hi')")
		form.SelectSingle(&file)

		req, ok := form.Begin()
		require.True(t, ok)
		form.Complete(req.ID, client.Generate(context.Background(), req))

		script, ok := form.Script()
		require.True(t, ok)
		assert.Equal(t, "print(1)", script)
		assert.Contains(t, form.Status().Text, "ok")
	})

	t.Run("missing script shows placeholder", func(t *testing.T) {
		ts, _ := newBackend(t, http.StatusOK, `{"message":"ok"}`)
		client := NewClient(ts.URL, WithHTTPClient(ts.Client()))

		form := NewForm(DefaultTarget())
		file := writeTempFile(t, "main.py", "print('hi')")
		form.SelectSingle(&file)

		req, _ := form.Begin()
		form.Complete(req.ID, client.Generate(context.Background(), req))

		script, _ := form.Script()
		assert.Equal(t, NoScriptPlaceholder, script)
	})

	t.Run("server error clears script", func(t *testing.T) {
		ok200, _ := newBackend(t, http.StatusOK, `{"data":{"generated_script":"old"}}`)
		fail500, _ := newBackend(t, http.StatusInternalServerError, `{"message":"boom"}`)

		form := NewForm(DefaultTarget())
		file := writeTempFile(t, "main.py", "print('hi')")
		form.SelectSingle(&file)

		req, _ := form.Begin()
		form.Complete(req.ID, NewClient(ok200.URL, WithHTTPClient(ok200.Client())).Generate(context.Background(), req))
		_, had := form.Script()
		require.True(t, had)

		req, _ = form.Begin()
		form.Complete(req.ID, NewClient(fail500.URL, WithHTTPClient(fail500.Client())).Generate(context.Background(), req))

		assert.Contains(t, form.Status().Text, "500")
		assert.Contains(t, form.Status().Text, "boom")
		_, has := form.Script()
		assert.False(t, has)
	})

	t.Run("no selection makes no request", func(t *testing.T) {
		ts, calls := newBackend(t, http.StatusOK, `{}`)
		_ = NewClient(ts.URL, WithHTTPClient(ts.Client()))

		form := NewForm(DefaultTarget())
		_, ok := form.Begin()

		assert.False(t, ok)
		assert.Equal(t, MsgNoSelection, form.Status().Text)
		assert.Zero(t, atomic.LoadInt32(calls))
	})
}
