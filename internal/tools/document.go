package tools

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/apex-agent/apex/internal/files"
	"github.com/apex-agent/apex/internal/registry"
)

// documentTool edits Word and Excel files in place or to a new path.
type documentTool struct {
	ws *files.Store
}

func (t *documentTool) Name() string { return "modify_document" }
func (t *documentTool) Description() string {
	return "Modify office documents. Actions: modify_docx (find/replace text, append paragraphs), " +
		"modify_xlsx (update cells and formulas), create_docx (new document from title and sections)."
}

func (t *documentTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action":       map[string]any{"type": "string", "description": "Action: modify_docx, modify_xlsx, create_docx"},
			"input_path":   map[string]any{"type": "string", "description": "Path to the source document (modify actions)"},
			"output_path":  map[string]any{"type": "string", "description": "Output path (modifies in place if omitted)"},
			"replacements": map[string]any{"type": "object", "description": "Text replacements {old: new} for modify_docx"},
			"append_text":  map[string]any{"type": "string", "description": "Paragraph to append at the end (modify_docx)"},
			"cell_updates": map[string]any{"type": "object", "description": "Cell updates {address: value} for modify_xlsx, e.g. {\"A1\": \"Total\", \"B2\": 42}. String values starting with '=' are set as formulas."},
			"sheet_name":   map[string]any{"type": "string", "description": "Sheet to modify (first sheet if omitted)"},
			"title":        map[string]any{"type": "string", "description": "Document title (create_docx)"},
			"paragraphs":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Body paragraphs (create_docx)"},
		},
		"required": []string{"action"},
	}
}

func (t *documentTool) Execute(_ context.Context, args map[string]any) (string, error) {
	switch action := registry.GetString(args, "action"); action {
	case "modify_docx":
		return t.modifyDocx(args)
	case "modify_xlsx":
		return t.modifyXlsx(args)
	case "create_docx":
		return t.createDocx(args)
	default:
		return "", fmt.Errorf("unknown action %q (expected modify_docx, modify_xlsx, create_docx)", action)
	}
}

func (t *documentTool) resolveInOut(args map[string]any) (string, string, error) {
	inputPath, err := t.ws.Resolve(registry.GetString(args, "input_path"))
	if err != nil {
		return "", "", err
	}
	if _, err := os.Stat(inputPath); err != nil {
		return "", "", fmt.Errorf("document not found: %s", inputPath)
	}
	outputPath := inputPath
	if out := registry.GetString(args, "output_path"); out != "" {
		outputPath, err = t.ws.Resolve(out)
		if err != nil {
			return "", "", err
		}
		if err := ensureParent(outputPath); err != nil {
			return "", "", fmt.Errorf("create output directory: %w", err)
		}
	}
	return inputPath, outputPath, nil
}

// --- modify_docx ---

func (t *documentTool) modifyDocx(args map[string]any) (string, error) {
	inputPath, outputPath, err := t.resolveInOut(args)
	if err != nil {
		return "", err
	}
	replacements := registry.GetStringMap(args, "replacements")
	appendText := registry.GetString(args, "append_text")
	if len(replacements) == 0 && appendText == "" {
		return "", fmt.Errorf("nothing to do: provide replacements and/or append_text")
	}

	replaced, err := rewriteDocx(inputPath, outputPath, replacements, appendText)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Document saved to %s (%d replacements applied)", outputPath, replaced), nil
}

// rewriteDocx copies the docx archive, applying text replacements and an
// optional appended paragraph to word/document.xml. A docx file is a zip;
// paragraph text lives in <w:t> runs.
func rewriteDocx(inputPath, outputPath string, replacements map[string]any, appendText string) (int, error) {
	zr, err := zip.OpenReader(inputPath)
	if err != nil {
		return 0, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	replaced := 0

	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", f.Name, err)
		}

		if f.Name == "word/document.xml" {
			body := string(data)
			for old, repl := range replacements {
				newText, ok := repl.(string)
				if !ok {
					continue
				}
				oldEsc := xmlEscape(old)
				newEsc := xmlEscape(newText)
				replaced += strings.Count(body, oldEsc)
				body = strings.ReplaceAll(body, oldEsc, newEsc)
			}
			if appendText != "" {
				para := "<w:p><w:r><w:t xml:space=\"preserve\">" + xmlEscape(appendText) + "</w:t></w:r></w:p>"
				if idx := strings.LastIndex(body, "<w:sectPr"); idx >= 0 {
					body = body[:idx] + para + body[idx:]
				} else {
					body = strings.Replace(body, "</w:body>", para+"</w:body>", 1)
				}
			}
			data = []byte(body)
		}

		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate})
		if err != nil {
			return 0, fmt.Errorf("write %s: %w", f.Name, err)
		}
		if _, err := w.Write(data); err != nil {
			return 0, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finalize docx: %w", err)
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("save docx: %w", err)
	}
	return replaced, nil
}

// --- modify_xlsx ---

func (t *documentTool) modifyXlsx(args map[string]any) (string, error) {
	inputPath, outputPath, err := t.resolveInOut(args)
	if err != nil {
		return "", err
	}
	updates := registry.GetStringMap(args, "cell_updates")
	if len(updates) == 0 {
		return "", fmt.Errorf("cell_updates is empty")
	}

	wb, err := excelize.OpenFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()

	sheet := registry.GetString(args, "sheet_name")
	if sheet == "" {
		sheet = wb.GetSheetName(0)
	}
	if idx, err := wb.GetSheetIndex(sheet); err != nil || idx < 0 {
		return "", fmt.Errorf("sheet %q not found", sheet)
	}

	for addr, value := range updates {
		if s, ok := value.(string); ok && strings.HasPrefix(s, "=") {
			if err := wb.SetCellFormula(sheet, addr, strings.TrimPrefix(s, "=")); err != nil {
				return "", fmt.Errorf("set formula %s: %w", addr, err)
			}
			continue
		}
		if err := wb.SetCellValue(sheet, addr, value); err != nil {
			return "", fmt.Errorf("set cell %s: %w", addr, err)
		}
	}

	if err := wb.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("save xlsx: %w", err)
	}
	return fmt.Sprintf("✅ Spreadsheet saved to %s (%d cells updated on sheet %q)", outputPath, len(updates), sheet), nil
}

// --- create_docx ---

func (t *documentTool) createDocx(args map[string]any) (string, error) {
	out := registry.GetString(args, "output_path")
	if out == "" {
		return "", fmt.Errorf("output_path is required for create_docx")
	}
	outputPath, err := t.ws.Resolve(out)
	if err != nil {
		return "", err
	}
	if err := ensureParent(outputPath); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	title := registry.GetString(args, "title")
	paragraphs := registry.GetStringSlice(args, "paragraphs")
	if title == "" && len(paragraphs) == 0 {
		return "", fmt.Errorf("provide a title and/or paragraphs")
	}

	if err := writeMinimalDocx(outputPath, title, paragraphs); err != nil {
		return "", err
	}
	return "✅ Document created: " + filepath.Clean(outputPath), nil
}

// writeMinimalDocx emits the smallest valid docx: content types, package
// rels, and a document body.
func writeMinimalDocx(path, title string, paragraphs []string) error {
	var body strings.Builder
	if title != "" {
		body.WriteString(`<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t xml:space="preserve">`)
		body.WriteString(xmlEscape(title))
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		body.WriteString(xmlEscape(p))
		body.WriteString(`</w:t></w:r></w:p>`)
	}

	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
			`</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
			`</Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
			`<w:body>` + body.String() + `</w:body></w:document>`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	// Fixed order keeps output reproducible.
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		if _, err := w.Write([]byte(parts[name])); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize docx: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
