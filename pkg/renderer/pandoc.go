// Package renderer turns Markdown reports into PDF documents with pandoc.
package renderer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
)

// DefaultBinary is the pandoc executable looked up on PATH.
const DefaultBinary = "pandoc"

// Pandoc renders Markdown to PDF by shelling out to pandoc.
type Pandoc struct {
	Binary    string // defaults to DefaultBinary
	Template  string // optional LaTeX template
	PDFEngine string // optional, e.g. xelatex
}

func (p Pandoc) binary() (bin string) {
	bin = p.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	return bin
}

// Available reports whether the pandoc binary can be run.
func (p Pandoc) Available(ctx context.Context) (err error) {
	cmd := exec.CommandContext(ctx, p.binary(), "--version")
	err = cmd.Run()
	if err != nil {
		err = errors.Errorf("%s not found or not runnable (install pandoc to generate PDFs)", p.binary())
		return err
	}
	return err
}

// RenderPDF converts a Markdown file to PDF.
func (p Pandoc) RenderPDF(ctx context.Context, markdownPath, outputPath string) (err error) {
	err = p.Available(ctx)
	if err != nil {
		return err
	}

	paths := []string{markdownPath}
	if p.Template != "" {
		paths = append(paths, p.Template)
	}
	err = validateFiles(paths...)
	if err != nil {
		return err
	}

	outputDir := filepath.Dir(outputPath)
	err = os.MkdirAll(outputDir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create output directory: %s", outputDir)
		return err
	}

	args := []string{"-f", "markdown", "-o", outputPath}
	if p.Template != "" {
		args = append(args, "--template", p.Template)
	}
	if p.PDFEngine != "" {
		args = append(args, "--pdf-engine", p.PDFEngine)
	}
	args = append(args, markdownPath)

	cmd := exec.CommandContext(ctx, p.binary(), args...)
	if p.Template != "" {
		// Let LaTeX find class files shipped next to the template
		texinputs := filepath.Dir(p.Template) + ":" + os.Getenv("TEXINPUTS")
		cmd.Env = append(os.Environ(), "TEXINPUTS="+texinputs)
	}

	var output []byte
	output, err = cmd.CombinedOutput()
	if err != nil {
		err = errors.Wrapf(err, "pandoc failed: %s", string(output))
		return err
	}

	return err
}

// RenderMarkdown writes content to a temporary file next to outputPath,
// renders it and removes the temporary file.
func (p Pandoc) RenderMarkdown(ctx context.Context, content, outputPath string) (err error) {
	mdPath := outputPath + ".md"
	err = WriteMarkdown(content, mdPath)
	if err != nil {
		return err
	}
	defer func() {
		cleanupErr := CleanupMarkdown(mdPath)
		if err == nil {
			err = cleanupErr
		}
	}()

	err = p.RenderPDF(ctx, mdPath, outputPath)

	return err
}

func validateFiles(paths ...string) (err error) {
	for _, path := range paths {
		_, err = os.Stat(path)
		if os.IsNotExist(err) {
			err = errors.Errorf("file not found: %s", path)
			return err
		}
	}
	return err
}

// WriteMarkdown writes markdown content to a file.
func WriteMarkdown(content, outputPath string) (err error) {
	outputDir := filepath.Dir(outputPath)
	err = os.MkdirAll(outputDir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create output directory: %s", outputDir)
		return err
	}

	err = os.WriteFile(outputPath, []byte(content), 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write markdown file: %s", outputPath)
		return err
	}

	return err
}

// CleanupMarkdown removes intermediate markdown files.
func CleanupMarkdown(paths ...string) (err error) {
	for _, path := range paths {
		err = os.Remove(path)
		if err != nil {
			err = errors.Wrapf(err, "failed to remove markdown file: %s", path)
			return err
		}
	}
	return err
}
