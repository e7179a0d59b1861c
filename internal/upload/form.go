// Package upload holds the upload-and-generate form: the file selection,
// the request lifecycle, the status line and the generated script, plus the
// HTTP client that talks to the test-generation backend.
package upload

import (
	"fmt"

	"testhub/internal/logging"
)

// Status and placeholder texts shown by the form.
const (
	MsgInvalidArchive     = "Invalid file type. Please select a .zip file for project uploads."
	MsgNoSelection        = "Please select a file or a .zip archive using one of the options."
	NoScriptPlaceholder   = "No script was returned by the backend."
	MsgUnparseableError   = "Could not parse error response."
	defaultSuccessMessage = "File processed."
)

// Phase is the request lifecycle of the form.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseUploading
	PhaseSuccess
	PhaseFailed
)

// String returns the display name for each phase.
func (p Phase) String() string {
	names := []string{"idle", "uploading", "success", "failed"}
	if int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// StatusKind colours the status line.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusError
	StatusSuccess
)

// Status is the single status line under the form.
type Status struct {
	Text string
	Kind StatusKind
}

// IsZero reports whether no status is shown.
func (s Status) IsZero() bool { return s.Text == "" }

// Target is the free-text language/framework pair sent with the upload.
// Values are passed through untouched.
type Target struct {
	Language     string
	Framework    string
	Instructions string
}

// DefaultTarget returns the python/unittest target.
func DefaultTarget() Target {
	return Target{Language: "python", Framework: "unittest"}
}

// Request is everything needed to perform one submission.
type Request struct {
	ID         uint64
	File       File
	UploadType UploadType
	Target     Target
}

type flashState struct {
	token uint64
	prev  Status
}

// Form is the state of the upload-and-generate page. It is not safe for
// concurrent use; callers drive it from one goroutine (the bubbletea loop or
// one headless worker) and run the network call elsewhere.
type Form struct {
	selection Selection
	target    Target
	phase     Phase
	status    Status

	script    string
	hasScript bool

	maxBytes int64

	statusSeq uint64
	flash     *flashState

	inflight uint64 // id of the submission in flight, 0 when none
	nextID   uint64

	// staleOnComplete records an on-disk change seen while uploading.
	staleOnComplete bool
}

// FormOption configures a Form.
type FormOption func(*Form)

// WithMaxBytes rejects selections larger than n bytes. 0 disables the check.
func WithMaxBytes(n int64) FormOption {
	return func(f *Form) { f.maxBytes = n }
}

// NewForm creates an idle form with no selection.
func NewForm(target Target, opts ...FormOption) *Form {
	f := &Form{target: target}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Selection returns the current selection.
func (f *Form) Selection() Selection { return f.selection }

// Target returns the language/framework fields.
func (f *Form) Target() Target { return f.target }

// Phase returns the request lifecycle phase.
func (f *Form) Phase() Phase { return f.phase }

// Loading reports whether a submission is in flight.
func (f *Form) Loading() bool { return f.phase == PhaseUploading }

// Status returns the current status line.
func (f *Form) Status() Status { return f.status }

// Script returns the generated script. The placeholder counts as a script.
func (f *Form) Script() (string, bool) { return f.script, f.hasScript }

// SetLanguage updates the free-text language field.
func (f *Form) SetLanguage(v string) { f.target.Language = v }

// SetFramework updates the free-text framework field.
func (f *Form) SetFramework(v string) { f.target.Framework = v }

// SetInstructions updates the optional instructions field.
func (f *Form) SetInstructions(v string) { f.target.Instructions = v }

// SelectSingle handles a change of the single-file slot. nil means the user
// chose no file.
func (f *Form) SelectSingle(file *File) {
	f.resetResult()

	if file == nil {
		if f.selection.Mode() == ModeSingle {
			f.selection = NoSelection()
		}
		if f.selection.IsEmpty() {
			f.setStatus(Status{})
		}
		return
	}

	if msg, ok := f.tooLarge(*file); ok {
		if f.selection.Mode() == ModeSingle {
			f.selection = NoSelection()
		}
		f.setStatus(Status{Text: msg, Kind: StatusError})
		logging.UploadWarn("rejected single file %s: %d bytes over limit %d", file.Name, file.Size, f.maxBytes)
		return
	}

	f.selection = SingleFile(*file)
	f.setStatus(Status{Text: fmt.Sprintf("Single file selected: %s", file.Name), Kind: StatusInfo})
	logging.UploadDebug("single file selected: %s (%d bytes)", file.Name, file.Size)
}

// SelectArchive handles a change of the archive slot. nil means the user
// chose no file. Names without the .zip suffix are rejected and leave the
// archive slot empty.
func (f *Form) SelectArchive(file *File) {
	f.resetResult()

	if file == nil {
		if f.selection.Mode() == ModeArchive {
			f.selection = NoSelection()
		}
		if f.selection.IsEmpty() {
			f.setStatus(Status{})
		}
		return
	}

	if !file.IsArchive() {
		if f.selection.Mode() == ModeArchive {
			f.selection = NoSelection()
		}
		f.setStatus(Status{Text: MsgInvalidArchive, Kind: StatusError})
		logging.UploadWarn("rejected archive %s: missing .zip suffix", file.Name)
		return
	}

	if msg, ok := f.tooLarge(*file); ok {
		if f.selection.Mode() == ModeArchive {
			f.selection = NoSelection()
		}
		f.setStatus(Status{Text: msg, Kind: StatusError})
		logging.UploadWarn("rejected archive %s: %d bytes over limit %d", file.Name, file.Size, f.maxBytes)
		return
	}

	f.selection = ArchiveFile(*file)
	f.setStatus(Status{Text: fmt.Sprintf("ZIP file selected: %s", file.Name), Kind: StatusInfo})
	logging.UploadDebug("archive selected: %s (%d bytes)", file.Name, file.Size)
}

// Refresh treats an on-disk change of the selected file as a new selection
// of the same file: the previous result is discarded. While a submission is
// in flight the discard is deferred until it completes, so the single
// in-flight request is never orphaned. It returns false when nothing is
// selected or the refresh was deferred.
func (f *Form) Refresh() bool {
	if _, ok := f.selection.File(); !ok {
		return false
	}
	if f.phase == PhaseUploading {
		f.staleOnComplete = true
		logging.UploadDebug("refresh deferred: submission %d still in flight", f.inflight)
		return false
	}
	f.discardForChange()
	return true
}

func (f *Form) discardForChange() {
	file, _ := f.selection.File()
	f.resetResult()
	f.setStatus(Status{Text: fmt.Sprintf("%s changed on disk; previous result discarded.", file.Name), Kind: StatusInfo})
}

// Begin starts a submission. It returns false without a request when nothing
// is selected (setting the validation message) or when a submission is
// already in flight.
func (f *Form) Begin() (Request, bool) {
	if f.phase == PhaseUploading {
		logging.UploadDebug("submit ignored: submission %d still in flight", f.inflight)
		return Request{}, false
	}

	file, ok := f.selection.File()
	if !ok {
		f.setStatus(Status{Text: MsgNoSelection, Kind: StatusError})
		return Request{}, false
	}

	f.nextID++
	f.inflight = f.nextID
	f.phase = PhaseUploading
	f.setStatus(Status{Text: fmt.Sprintf("Uploading and processing %s...", file.Name), Kind: StatusInfo})
	f.script = ""
	f.hasScript = false

	return Request{
		ID:         f.inflight,
		File:       file,
		UploadType: f.selection.UploadType(),
		Target:     f.target,
	}, true
}

// Complete applies the outcome of submission id. Outcomes for anything other
// than the submission in flight are dropped and false is returned.
func (f *Form) Complete(id uint64, outcome Outcome) bool {
	if id == 0 || id != f.inflight || f.phase != PhaseUploading {
		logging.UploadDebug("dropping stale outcome for submission %d (in flight: %d)", id, f.inflight)
		return false
	}
	f.inflight = 0

	switch o := outcome.(type) {
	case Success:
		f.phase = PhaseSuccess
		if o.Script != "" {
			f.script = o.Script
		} else {
			f.script = NoScriptPlaceholder
		}
		f.hasScript = true
		msg := o.Message
		if msg == "" {
			msg = defaultSuccessMessage
		}
		f.setStatus(Status{Text: fmt.Sprintf("Success: %s", msg), Kind: StatusSuccess})

	case HTTPError:
		f.phase = PhaseFailed
		f.script = ""
		f.hasScript = false
		f.setStatus(Status{Text: fmt.Sprintf("Error: %d - %s", o.StatusCode, o.Message), Kind: StatusError})

	case TransportError:
		f.phase = PhaseFailed
		f.script = ""
		f.hasScript = false
		f.setStatus(Status{Text: fmt.Sprintf("Network Error: Failed to send file. %s", o.Error()), Kind: StatusError})

	default:
		f.phase = PhaseFailed
		f.script = ""
		f.hasScript = false
		f.setStatus(Status{Text: "Network Error: Failed to send file. no response", Kind: StatusError})
	}

	if f.staleOnComplete {
		f.discardForChange()
	}
	return true
}

// Copy writes the script with write exactly once and flashes the result.
// It returns the flash token for Revert and false when there is no script.
func (f *Form) Copy(write func(string) error) (uint64, bool) {
	if !f.hasScript || f.script == "" {
		return 0, false
	}
	if err := write(f.script); err != nil {
		logging.ClipboardError("clipboard write failed: %v", err)
		return f.Flash(Status{Text: fmt.Sprintf("Failed to copy script: %v", err), Kind: StatusError}), true
	}
	logging.Clipboard("copied %d bytes to clipboard", len(f.script))
	return f.Flash(Status{Text: "Copied generated script to clipboard", Kind: StatusSuccess}), true
}

// Flash shows a transient status and returns a token for Revert.
func (f *Form) Flash(s Status) uint64 {
	prev := f.status
	if f.flash != nil && f.flash.token == f.statusSeq {
		// Stacked flashes revert to what was showing before the first one.
		prev = f.flash.prev
	}
	f.setStatus(s)
	f.flash = &flashState{token: f.statusSeq, prev: prev}
	return f.statusSeq
}

// Revert restores the status shown before the flash identified by token,
// unless a newer status has replaced it since.
func (f *Form) Revert(token uint64) bool {
	if f.flash == nil || f.flash.token != token || f.statusSeq != token {
		return false
	}
	prev := f.flash.prev
	f.setStatus(prev)
	return true
}

func (f *Form) setStatus(s Status) {
	f.status = s
	f.statusSeq++
	f.flash = nil
}

// resetResult runs on every selection change: loading stops, the script is
// discarded and any in-flight submission is orphaned.
func (f *Form) resetResult() {
	f.phase = PhaseIdle
	f.script = ""
	f.hasScript = false
	f.inflight = 0
	f.staleOnComplete = false
}

func (f *Form) tooLarge(file File) (string, bool) {
	if f.maxBytes <= 0 || file.Size <= f.maxBytes {
		return "", false
	}
	return fmt.Sprintf("File too large: %s is %d bytes (limit %d).", file.Name, file.Size, f.maxBytes), true
}
