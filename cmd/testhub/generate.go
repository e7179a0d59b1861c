package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"testhub/internal/upload"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

var (
	genLanguage     string
	genFramework    string
	genInstructions string
	genOutDir       string
	genCopy         bool
	genConcurrency  int
)

// generateCmd submits files without the interactive interface
var generateCmd = &cobra.Command{
	Use:   "generate [paths...]",
	Short: "Upload files and print the generated test scripts",
	Long: `Uploads each path to the backend and prints the generated script.
Paths ending in .zip are sent as project archives, anything else as a single
code file. Paths are processed in parallel (see --concurrency).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

// generateResult is the finished form of one path.
type generateResult struct {
	path string
	form *upload.Form
	err  error
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := upload.Target{
		Language:     cfg.Defaults.Language,
		Framework:    cfg.Defaults.Framework,
		Instructions: genInstructions,
	}
	if genLanguage != "" {
		target.Language = genLanguage
	}
	if genFramework != "" {
		target.Framework = genFramework
	}

	client := upload.NewClient(cfg.EndpointURL())
	logger.Info("Generating test scripts",
		zap.Int("paths", len(args)),
		zap.String("endpoint", client.Endpoint()),
		zap.String("language", target.Language),
		zap.String("framework", target.Framework),
	)

	results := make([]generateResult, len(args))
	g := new(errgroup.Group)
	g.SetLimit(max(genConcurrency, 1))
	for i, path := range args {
		g.Go(func() error {
			form, err := generateOne(ctx, client, target, cfg.Upload.MaxBytes, path)
			results[i] = generateResult{path: path, form: form, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if genOutDir != "" {
		if err := os.MkdirAll(genOutDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.path, res.err)
			logger.Warn("Submission failed", zap.String("path", res.path), zap.Error(res.err))
			continue
		}
		if err := emitScript(res, len(results) > 1); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.path, err)
		}
	}

	if genCopy {
		if len(results) != 1 {
			fmt.Fprintln(os.Stderr, "--copy ignored: more than one path given")
		} else if results[0].err == nil {
			if _, ok := results[0].form.Copy(clipboardWriteAll); ok {
				fmt.Println(results[0].form.Status().Text)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d submissions failed", failed, len(results))
	}
	return nil
}

// generateOne runs one path through its own form: select, submit, complete.
func generateOne(ctx context.Context, client *upload.Client, target upload.Target, maxBytes int64, path string) (*upload.Form, error) {
	file, err := upload.FileFromPath(path)
	if err != nil {
		return nil, err
	}

	form := upload.NewForm(target, upload.WithMaxBytes(maxBytes))
	if file.IsArchive() {
		form.SelectArchive(&file)
	} else {
		form.SelectSingle(&file)
	}

	req, ok := form.Begin()
	if !ok {
		return form, errors.New(form.Status().Text)
	}
	form.Complete(req.ID, client.Generate(ctx, req))

	if form.Phase() != upload.PhaseSuccess {
		return form, errors.New(form.Status().Text)
	}
	return form, nil
}

func emitScript(res generateResult, many bool) error {
	script, _ := res.form.Script()

	if genOutDir == "" {
		if many {
			fmt.Printf("==> %s <==\n", res.path)
		}
		fmt.Println(script)
		return nil
	}

	out := filepath.Join(genOutDir, scriptFileName(res.path))
	if err := os.WriteFile(out, []byte(script), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Printf("%s -> %s\n", res.path, out)
	return nil
}

// scriptFileName maps calc.py to calc.generated.txt.
func scriptFileName(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return stem + ".generated.txt"
}
