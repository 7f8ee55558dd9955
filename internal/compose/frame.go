// Package compose renders the learning-video frame and assembles it with the
// narration audio into the final MP4.
package compose

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// FrameWidth and FrameHeight are the fixed dimensions of the video.
	FrameWidth  = 800
	FrameHeight = 600

	// Blend weights for the background photo and the caption layer.
	backgroundWeight = 0.7
	captionWeight    = 0.3

	captionFontSize = 40.0
)

// loadBackground decodes the photo at path and stretches it to the frame
// size. Aspect ratio is intentionally not preserved, matching the full-frame
// background look of the final video.
func loadBackground(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open background image: %w", err)
	}
	defer f.Close()

	var src image.Image
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jpg", ".jpeg":
		src, err = jpeg.Decode(f)
	case ".png":
		src, err = png.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported background format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode background image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst, nil
}

// captionFace loads the configured font at caption size. When the font file
// is missing or invalid, the built-in bitmap face is used instead so a frame
// is always produced.
func captionFace(fontPath string) font.Face {
	if fontPath == "" {
		log.Warn().Msg("No caption font configured, using built-in face")
		return basicfont.Face7x13
	}

	data, err := os.ReadFile(fontPath)
	if err != nil {
		log.Warn().Err(err).Str("font", fontPath).Msg("Failed to read caption font, using built-in face")
		return basicfont.Face7x13
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		log.Warn().Err(err).Str("font", fontPath).Msg("Failed to parse caption font, using built-in face")
		return basicfont.Face7x13
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    captionFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Warn().Err(err).Str("font", fontPath).Msg("Failed to build caption face, using built-in face")
		return basicfont.Face7x13
	}
	return face
}

// renderCaptionLayer draws the caption centered in white on a black frame.
func renderCaptionLayer(caption string, face font.Face) *image.RGBA {
	layer := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	black := image.NewUniform(color.Black)
	draw.Draw(layer, layer.Bounds(), black, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(color.White),
		Face: face,
	}

	width := drawer.MeasureString(caption)
	metrics := face.Metrics()
	x := (fixed.I(FrameWidth) - width) / 2
	if x < 0 {
		x = 0
	}
	y := (fixed.I(FrameHeight) + metrics.Ascent - metrics.Descent) / 2

	drawer.Dot = fixed.Point26_6{X: x, Y: y}
	drawer.DrawString(caption)
	return layer
}

// blendFrames combines the background and caption layers with the fixed
// 0.7/0.3 weights per pixel.
func blendFrames(background, caption *image.RGBA) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	for i := range out.Pix {
		out.Pix[i] = uint8(backgroundWeight*float64(background.Pix[i]) + captionWeight*float64(caption.Pix[i]))
	}
	// Keep the frame fully opaque regardless of source alpha.
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

// RenderFrame produces the single video frame: the photo stretched across
// the frame, dimmed, with the caption burned in, written to outputFile as
// PNG.
func RenderFrame(backgroundPath, caption, fontPath, outputFile string) error {
	background, err := loadBackground(backgroundPath)
	if err != nil {
		return err
	}

	layer := renderCaptionLayer(caption, captionFace(fontPath))
	frame := blendFrames(background, layer)

	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, frame); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return nil
}
