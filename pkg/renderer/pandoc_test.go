package renderer

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestWriteMarkdown(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.md")
	testContent := "# Test Markdown\n\nThis is a test."

	err := WriteMarkdown(testContent, testFile)
	if err != nil {
		t.Fatalf("Failed to write markdown: %v", err)
	}

	// Verify file exists.
	_, err = os.Stat(testFile)
	if os.IsNotExist(err) {
		t.Error("Markdown file was not created")
	}

	// Verify content.
	data, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}

	if string(data) != testContent {
		t.Errorf("Expected content '%s', got '%s'", testContent, string(data))
	}
}

func TestWriteMarkdownCreatesDir(t *testing.T) {
	tmpDir := t.TempDir()
	nestedPath := filepath.Join(tmpDir, "nested", "dir", "test.md")

	err := WriteMarkdown("test", nestedPath)
	if err != nil {
		t.Fatalf("Failed to write markdown: %v", err)
	}

	// Verify file exists.
	_, err = os.Stat(nestedPath)
	if os.IsNotExist(err) {
		t.Error("Markdown file was not created in nested directory")
	}
}

func TestCleanupMarkdown(t *testing.T) {
	tmpDir := t.TempDir()
	testFile1 := filepath.Join(tmpDir, "test1.md")
	testFile2 := filepath.Join(tmpDir, "test2.md")

	// Create files.
	err := os.WriteFile(testFile1, []byte("test"), 0600)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	err = os.WriteFile(testFile2, []byte("test"), 0600)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	// Cleanup.
	err = CleanupMarkdown(testFile1, testFile2)
	if err != nil {
		t.Fatalf("Failed to cleanup: %v", err)
	}

	// Verify files are gone.
	_, err = os.Stat(testFile1)
	if !os.IsNotExist(err) {
		t.Error("File 1 was not deleted")
	}

	_, err = os.Stat(testFile2)
	if !os.IsNotExist(err) {
		t.Error("File 2 was not deleted")
	}
}

func TestCleanupMarkdownNonexistent(t *testing.T) {
	err := CleanupMarkdown("/nonexistent/file.md")
	if err == nil {
		t.Error("Expected error cleaning up nonexistent file, got nil")
	}
}

func TestValidateFiles(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	err := os.WriteFile(existingFile, []byte("test"), 0600)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	// Test with existing file.
	err = validateFiles(existingFile)
	if err != nil {
		t.Errorf("Expected no error for existing file, got %v", err)
	}

	// Test with nonexistent file.
	err = validateFiles("/nonexistent/file.txt")
	if err == nil {
		t.Error("Expected error for nonexistent file, got nil")
	}

	// Test with multiple files.
	err = validateFiles(existingFile, "/nonexistent/file.txt")
	if err == nil {
		t.Error("Expected error when one file doesn't exist, got nil")
	}
}

// fakePandoc writes a script that copies its last argument to the -o target.
func fakePandoc(t *testing.T, exitCode int) (path string) {
	t.Helper()
	path = filepath.Join(t.TempDir(), "pandoc")
	script := `#!/bin/sh
if [ "$1" = "--version" ]; then exit 0; fi
out=""
while [ $# -gt 1 ]; do
  if [ "$1" = "-o" ]; then out="$2"; fi
  shift
done
if [ "EXIT_CODE" != "0" ]; then echo "boom" >&2; exit 1; fi
cp "$1" "$out"
`
	script = strings.Replace(script, "EXIT_CODE", strconv.Itoa(exitCode), 1)
	err := os.WriteFile(path, []byte(script), 0700)
	if err != nil {
		t.Fatalf("Failed to write fake pandoc: %v", err)
	}
	return path
}

func TestAvailable(t *testing.T) {
	p := Pandoc{Binary: "/nonexistent/pandoc"}
	if err := p.Available(context.Background()); err == nil {
		t.Error("Expected error for missing binary, got nil")
	}

	p = Pandoc{Binary: fakePandoc(t, 0)}
	if err := p.Available(context.Background()); err != nil {
		t.Errorf("Expected fake pandoc to be available, got %v", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	p := Pandoc{Binary: fakePandoc(t, 0)}
	out := filepath.Join(t.TempDir(), "out", "report.pdf")

	err := p.RenderMarkdown(context.Background(), "# Report", out)
	if err != nil {
		t.Fatalf("RenderMarkdown failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Output not written: %v", err)
	}
	if string(data) != "# Report" {
		t.Errorf("Unexpected output: %q", string(data))
	}

	if _, err = os.Stat(out + ".md"); !os.IsNotExist(err) {
		t.Error("Intermediate markdown was not removed")
	}
}

func TestRenderPDFFailure(t *testing.T) {
	p := Pandoc{Binary: fakePandoc(t, 1)}
	out := filepath.Join(t.TempDir(), "report.pdf")

	err := p.RenderMarkdown(context.Background(), "# Report", out)
	if err == nil {
		t.Fatal("Expected error from failing pandoc, got nil")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected pandoc output in error, got %v", err)
	}
}

func TestRenderPDFMissingTemplate(t *testing.T) {
	p := Pandoc{Binary: fakePandoc(t, 0), Template: "/nonexistent/template.tex"}
	md := filepath.Join(t.TempDir(), "in.md")
	_ = os.WriteFile(md, []byte("x"), 0600)

	err := p.RenderPDF(context.Background(), md, md+".pdf")
	if err == nil {
		t.Error("Expected error for missing template, got nil")
	}
}
