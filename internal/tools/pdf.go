package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/apex-agent/apex/internal/files"
	"github.com/apex-agent/apex/internal/registry"
)

const convertTimeout = 120 * time.Second

var (
	imageExts = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
		".bmp": true, ".tiff": true, ".tif": true, ".webp": true,
	}
	documentExts = map[string]bool{
		".docx": true, ".doc": true, ".xlsx": true, ".xls": true,
		".pptx": true, ".ppt": true, ".odt": true, ".ods": true,
		".txt": true, ".md": true, ".csv": true, ".html": true, ".htm": true,
	}
)

// pdfTool converts documents and images to PDF via headless LibreOffice.
type pdfTool struct {
	ws *files.Store
}

func (t *pdfTool) Name() string { return "convert_to_pdf" }
func (t *pdfTool) Description() string {
	return "Convert a document or image to PDF. " +
		"Supports docx, xlsx, pptx, odt, txt, md, csv, html and common image formats. " +
		"Requires LibreOffice on the host."
}

func (t *pdfTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input_path":  map[string]any{"type": "string", "description": "Path to the source file"},
			"output_path": map[string]any{"type": "string", "description": "Optional output PDF path (defaults to the input path with a .pdf extension)"},
		},
		"required": []string{"input_path"},
	}
}

func (t *pdfTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	inputPath, err := t.ws.Resolve(registry.GetString(args, "input_path"))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("input file not found: %s", inputPath)
	}

	ext := strings.ToLower(filepath.Ext(inputPath))
	switch {
	case imageExts[ext]:
		// LibreOffice handles RGB JPEGs most reliably; normalize first.
		normalized, cleanup, err := normalizeImage(inputPath, ext)
		if err != nil {
			return "", err
		}
		defer cleanup()
		inputPath = normalized
	case documentExts[ext]:
		// Converted directly.
	default:
		return "", fmt.Errorf("unsupported file type for PDF conversion: %s", ext)
	}

	outputPath := registry.GetString(args, "output_path")
	if outputPath == "" {
		outputPath = withSuffix(registry.GetString(args, "input_path"), ".pdf")
	}
	outputPath, err = t.ws.Resolve(outputPath)
	if err != nil {
		return "", err
	}
	if err := ensureParent(outputPath); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	resultPath, err := convertWithLibreOffice(ctx, inputPath, outputPath)
	if err != nil {
		return "", err
	}
	return "✅ Converted to PDF: " + resultPath, nil
}

// normalizeImage re-encodes non-JPEG images to a temporary RGB JPEG.
// Returns the path to feed the converter and a cleanup func.
func normalizeImage(path, ext string) (string, func(), error) {
	if ext == ".jpg" || ext == ".jpeg" {
		return path, func() {}, nil
	}
	img, err := imaging.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open image: %w", err)
	}
	tmp := withSuffix(path, "_rgb.jpg")
	if err := imaging.Save(img, tmp, imaging.JPEGQuality(92)); err != nil {
		return "", nil, fmt.Errorf("re-encode image: %w", err)
	}
	return tmp, func() { os.Remove(tmp) }, nil
}

// convertWithLibreOffice shells out to soffice and moves the produced PDF
// to outputPath. Returns the final path.
func convertWithLibreOffice(ctx context.Context, inputPath, outputPath string) (string, error) {
	soffice, err := findLibreOffice()
	if err != nil {
		return "", err
	}

	outputDir := filepath.Dir(outputPath)
	ctx, cancel := context.WithTimeout(ctx, convertTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, soffice,
		"--headless", "--convert-to", "pdf", "--outdir", outputDir, inputPath)
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("LibreOffice conversion timed out after %s", convertTimeout)
	}
	if err != nil {
		return "", fmt.Errorf("LibreOffice conversion failed: %s", strings.TrimSpace(string(out)))
	}

	// soffice names the output after the input stem.
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	produced := filepath.Join(outputDir, stem+".pdf")
	if produced != outputPath {
		if err := os.Rename(produced, outputPath); err != nil {
			return "", fmt.Errorf("move converted PDF: %w", err)
		}
	}
	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("conversion produced no output: %w", err)
	}
	return outputPath, nil
}

func findLibreOffice() (string, error) {
	for _, name := range []string{"soffice", "libreoffice"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("LibreOffice is required for PDF conversion; install it from https://www.libreoffice.org/")
}
