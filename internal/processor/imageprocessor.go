// imageprocessor.go - Upload validation and image preprocessing for better OCR accuracy

package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrUnsupportedFormat is returned for uploads whose extension is not allowed
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ErrImageTooLarge is returned for uploads over the configured size limit
var ErrImageTooLarge = errors.New("image exceeds maximum size")

// ValidateImageFormat checks the upload's extension against the allowed list
// and returns the normalized extension without the dot
func ValidateImageFormat(filename string, allowed []string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: file has no extension", ErrUnsupportedFormat)
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: .%s (allowed: %s)", ErrUnsupportedFormat, ext, strings.Join(allowed, ", "))
}

// ValidateImageSize checks the upload size against maxBytes
func ValidateImageSize(size, maxBytes int64) error {
	if size <= 0 {
		return fmt.Errorf("image is empty")
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%w: %.2f MB (max %.0f MB)", ErrImageTooLarge,
			float64(size)/(1024*1024), float64(maxBytes)/(1024*1024))
	}
	return nil
}

// MIMETypeForExtension maps an image extension (without the dot) to its MIME type
func MIMETypeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// PreprocessImage prepares a question image for OCR: grayscale, dark mode
// inverted to dark-on-light, faint contrast stretched, then sharpened.
// PNG stays PNG; everything else is re-encoded as JPEG.
func PreprocessImage(data []byte, ext string, maxDimension int) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Step 1: Resize to optimal size
	img = resizeToFit(img, maxDimension)

	// Step 2: Measure brightness and pick the enhancement
	stats := measureLuminance(img)
	plan := planEnhancement(stats)

	// Step 3: Apply it
	img = applyEnhancement(img, stats, plan)

	// Step 4: Encode with high quality
	var buf bytes.Buffer
	format, mimeType := imaging.JPEG, "image/jpeg"
	if strings.EqualFold(ext, "png") {
		format, mimeType = imaging.PNG, "image/png"
	}

	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(95)); err != nil {
		return nil, "", fmt.Errorf("failed to encode processed image: %w", err)
	}

	return buf.Bytes(), mimeType, nil
}

// resizeToFit shrinks img so its longer side is at most maxDimension
func resizeToFit(img image.Image, maxDimension int) image.Image {
	if maxDimension <= 0 {
		return img
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDimension && height <= maxDimension {
		return img
	}
	if width > height {
		return imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
}

// luminanceStats summarizes the sampled brightness of an image (0-255)
type luminanceStats struct {
	Mean   float64
	Median float64
	Low    float64 // 5th percentile
	High   float64 // 95th percentile
}

// Spread is the robust contrast between text and background
func (s luminanceStats) Spread() float64 { return s.High - s.Low }

// measureLuminance samples at most ~40k pixels
func measureLuminance(img image.Image) luminanceStats {
	bounds := img.Bounds()
	step := int(math.Max(1, math.Sqrt(float64(bounds.Dx()*bounds.Dy())/40000)))

	var hist [256]int
	var total, count int
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := (299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000
			hist[lum]++
			total += int(lum)
			count++
		}
	}

	if count == 0 {
		return luminanceStats{}
	}
	return luminanceStats{
		Mean:   float64(total) / float64(count),
		Median: percentile(hist, count, 0.50),
		Low:    percentile(hist, count, 0.05),
		High:   percentile(hist, count, 0.95),
	}
}

func percentile(hist [256]int, count int, q float64) float64 {
	target := int(math.Ceil(q * float64(count)))
	if target < 1 {
		target = 1
	}
	cum := 0
	for lum, n := range hist {
		cum += n
		if cum >= target {
			return float64(lum)
		}
	}
	return 255
}

// enhancementPlan is what PreprocessImage does to a measured image
type enhancementPlan struct {
	Invert  bool // light text on a dark background
	Stretch bool // widen faint contrast to the full range
	Sharpen float64
}

const (
	darkBackgroundMedian = 100
	brightTextLevel      = 160
	crispSpread          = 160
	faintSpread          = 80
)

// planEnhancement picks the enhancement for a question image.
// Rendered screenshots are already crisp and only get a light sharpen.
func planEnhancement(s luminanceStats) enhancementPlan {
	plan := enhancementPlan{
		// underexposed photos are dark too but have no bright text
		Invert:  s.Median < darkBackgroundMedian && s.High >= brightTextLevel,
		Sharpen: 0.5,
	}

	switch spread := s.Spread(); {
	case spread >= crispSpread:
	case spread >= faintSpread:
		plan.Stretch = true
		plan.Sharpen = 1.0
	default:
		plan.Stretch = true
		plan.Sharpen = 1.5
	}
	return plan
}

func applyEnhancement(img image.Image, stats luminanceStats, plan enhancementPlan) *image.NRGBA {
	result := imaging.Grayscale(img)
	if plan.Stretch {
		result = stretchLevels(result, stats.Low, stats.High)
	}
	if plan.Invert {
		result = imaging.Invert(result)
	}
	if plan.Sharpen > 0 {
		result = imaging.Sharpen(result, plan.Sharpen)
	}
	return result
}

// stretchLevels maps [low, high] linearly onto [0, 255], clipping outside it
func stretchLevels(img *image.NRGBA, low, high float64) *image.NRGBA {
	if high-low < 1 {
		return img
	}
	scale := 255 / (high - low)
	level := func(v uint8) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(255, (float64(v)-low)*scale))))
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: level(c.R), G: level(c.G), B: level(c.B), A: c.A}
	})
}
