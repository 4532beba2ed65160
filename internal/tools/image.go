package tools

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/apex-agent/apex/internal/files"
	"github.com/apex-agent/apex/internal/registry"
)

const watermarkPadding = 20

// imageTool transforms images: resize, crop, rotate, flip, format
// conversion, tone adjustments, and text watermarks.
type imageTool struct {
	ws *files.Store
}

func (t *imageTool) Name() string { return "modify_image" }
func (t *imageTool) Description() string {
	return "Modify an image. Operations: resize, crop, rotate, flip, convert, adjust, watermark. " +
		"Adjust accepts brightness/contrast/saturation/sharpness where 1.0 keeps the original."
}

func (t *imageTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation":       map[string]any{"type": "string", "description": "Operation: resize, crop, rotate, flip, convert, adjust, watermark"},
			"input_path":      map[string]any{"type": "string", "description": "Path to the source image"},
			"output_path":     map[string]any{"type": "string", "description": "Output path (auto-generated if omitted)"},
			"width":           map[string]any{"type": "integer", "description": "Target width (resize)"},
			"height":          map[string]any{"type": "integer", "description": "Target height (resize)"},
			"maintain_aspect": map[string]any{"type": "boolean", "description": "Keep aspect ratio when resizing (default true)"},
			"left":            map[string]any{"type": "integer", "description": "Crop box left edge"},
			"upper":           map[string]any{"type": "integer", "description": "Crop box upper edge"},
			"right":           map[string]any{"type": "integer", "description": "Crop box right edge"},
			"lower":           map[string]any{"type": "integer", "description": "Crop box lower edge"},
			"angle":           map[string]any{"type": "number", "description": "Rotation angle in degrees, counter-clockwise (rotate)"},
			"direction":       map[string]any{"type": "string", "description": "Flip direction: horizontal or vertical"},
			"format":          map[string]any{"type": "string", "description": "Target format for convert: png, jpeg, webp-incompatible formats fall back to png"},
			"brightness":      map[string]any{"type": "number", "description": "Brightness factor, 1.0 = original (adjust)"},
			"contrast":        map[string]any{"type": "number", "description": "Contrast factor, 1.0 = original (adjust)"},
			"saturation":      map[string]any{"type": "number", "description": "Saturation factor, 1.0 = original (adjust)"},
			"sharpness":       map[string]any{"type": "number", "description": "Sharpness factor, 1.0 = original (adjust)"},
			"text":            map[string]any{"type": "string", "description": "Watermark text"},
			"position":        map[string]any{"type": "string", "description": "Watermark position: center, bottom-right, bottom-left, top-right, top-left"},
			"opacity":         map[string]any{"type": "integer", "description": "Watermark opacity 0-255 (default 128)"},
		},
		"required": []string{"operation", "input_path"},
	}
}

func (t *imageTool) Execute(_ context.Context, args map[string]any) (string, error) {
	inputPath, err := t.ws.Resolve(registry.GetString(args, "input_path"))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("image not found: %s", inputPath)
	}

	img, err := imaging.Open(inputPath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}

	op := registry.GetString(args, "operation")
	var out image.Image
	marker := "_" + op

	switch op {
	case "resize":
		out, err = resize(img, args)
		w := registry.GetInt(args, "width", 0)
		h := registry.GetInt(args, "height", 0)
		marker = fmt.Sprintf("_resized_%dx%d", w, h)
	case "crop":
		out, err = crop(img, args)
		marker = "_cropped"
	case "rotate":
		angle := registry.GetFloat(args, "angle", 0)
		out = imaging.Rotate(img, angle, color.Transparent)
		marker = "_rotated"
	case "flip":
		out, err = flip(img, args)
		marker = "_flipped"
	case "convert":
		out = img
		marker = ""
	case "adjust":
		out = adjust(img, args)
		marker = "_adjusted"
	case "watermark":
		out, err = watermark(img, args)
		marker = "_watermarked"
	default:
		return "", fmt.Errorf("unknown operation %q (expected resize, crop, rotate, flip, convert, adjust, watermark)", op)
	}
	if err != nil {
		return "", err
	}

	outputPath := registry.GetString(args, "output_path")
	if outputPath == "" {
		outputPath = withStemSuffix(registry.GetString(args, "input_path"), marker)
	}
	if op == "convert" {
		format := strings.ToLower(registry.GetString(args, "format"))
		if format == "" {
			return "", fmt.Errorf("format is required for convert")
		}
		outputPath = withSuffix(outputPath, extForFormat(format))
	}
	outputPath, err = t.ws.Resolve(outputPath)
	if err != nil {
		return "", err
	}
	if err := ensureParent(outputPath); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	if err := imaging.Save(out, outputPath); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return "✅ Image saved: " + outputPath, nil
}

func resize(img image.Image, args map[string]any) (image.Image, error) {
	width := registry.GetInt(args, "width", 0)
	height := registry.GetInt(args, "height", 0)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("resize needs positive width and height")
	}
	if keep := registry.GetBoolPtr(args, "maintain_aspect"); keep == nil || *keep {
		return imaging.Fit(img, width, height, imaging.Lanczos), nil
	}
	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}

func crop(img image.Image, args map[string]any) (image.Image, error) {
	left := registry.GetInt(args, "left", 0)
	upper := registry.GetInt(args, "upper", 0)
	right := registry.GetInt(args, "right", 0)
	lower := registry.GetInt(args, "lower", 0)
	if right <= left || lower <= upper {
		return nil, fmt.Errorf("invalid crop box (%d,%d,%d,%d)", left, upper, right, lower)
	}
	return imaging.Crop(img, image.Rect(left, upper, right, lower)), nil
}

func flip(img image.Image, args map[string]any) (image.Image, error) {
	switch dir := registry.GetString(args, "direction"); dir {
	case "horizontal", "":
		return imaging.FlipH(img), nil
	case "vertical":
		return imaging.FlipV(img), nil
	default:
		return nil, fmt.Errorf("unknown flip direction %q (expected horizontal or vertical)", dir)
	}
}

func adjust(img image.Image, args map[string]any) image.Image {
	out := img
	// imaging uses -100..100 percentages; the factor scale maps 1.0 to 0.
	if b := registry.GetFloat(args, "brightness", 1.0); b != 1.0 {
		out = imaging.AdjustBrightness(out, (b-1.0)*100)
	}
	if c := registry.GetFloat(args, "contrast", 1.0); c != 1.0 {
		out = imaging.AdjustContrast(out, (c-1.0)*100)
	}
	if s := registry.GetFloat(args, "saturation", 1.0); s != 1.0 {
		out = imaging.AdjustSaturation(out, (s-1.0)*100)
	}
	if sh := registry.GetFloat(args, "sharpness", 1.0); sh > 1.0 {
		out = imaging.Sharpen(out, sh-1.0)
	} else if sh < 1.0 {
		out = imaging.Blur(out, 1.0-sh)
	}
	return out
}

func watermark(img image.Image, args map[string]any) (image.Image, error) {
	text := registry.GetString(args, "text")
	if text == "" {
		return nil, fmt.Errorf("text is required for watermark")
	}
	opacity := registry.GetInt(args, "opacity", 128)
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 255 {
		opacity = 255
	}

	bounds := img.Bounds()
	canvas := image.NewNRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	face := basicfont.Face7x13
	textW := font.MeasureString(face, text).Ceil()
	textH := face.Metrics().Height.Ceil()

	w, h := bounds.Dx(), bounds.Dy()
	var x, y int
	switch registry.GetString(args, "position") {
	case "bottom-right":
		x, y = w-textW-watermarkPadding, h-watermarkPadding
	case "bottom-left":
		x, y = watermarkPadding, h-watermarkPadding
	case "top-right":
		x, y = w-textW-watermarkPadding, watermarkPadding+textH
	case "top-left":
		x, y = watermarkPadding, watermarkPadding+textH
	default: // center
		x, y = (w-textW)/2, (h+textH)/2
	}

	d := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.NRGBA{255, 255, 255, uint8(opacity)}),
		Face: face,
		Dot:  fixed.P(bounds.Min.X+x, bounds.Min.Y+y),
	}
	d.DrawString(text)
	return canvas, nil
}

func extForFormat(format string) string {
	switch format {
	case "jpeg", "jpg":
		return ".jpg"
	case "gif":
		return ".gif"
	case "bmp":
		return ".bmp"
	case "tiff", "tif":
		return ".tiff"
	default:
		return ".png"
	}
}
