package synth

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	mathrand "math/rand/v2"
	"strings"

	"github.com/beevik/etree"
	"github.com/getmocknode/mocknode/pkg/mock"
)

// Placeholder dimensions when the definition leaves them unset.
const (
	defaultImageWidth  = 640
	defaultImageHeight = 480
	maxImageDim        = 8192
)

var placeholderPalette = []color.RGBA{
	{0x4a, 0x90, 0xd9, 0xff},
	{0x7e, 0xd3, 0x21, 0xff},
	{0xf5, 0xa6, 0x23, 0xff},
	{0xd0, 0x45, 0x4e, 0xff},
	{0x9b, 0x59, 0xb6, 0xff},
}

// Placeholder renders a placeholder image per the config: an SVG document,
// optionally rasterized to png or jpeg, padded (never truncated) up to
// TargetSizeKB. webp has no encoder in this stack, so webp requests are
// served as SVG.
func Placeholder(cfg *mock.ImageConfig) ([]byte, string, error) {
	width, height := cfg.Width, cfg.Height
	if width <= 0 {
		width = defaultImageWidth
	}
	if height <= 0 {
		height = defaultImageHeight
	}
	if width > maxImageDim || height > maxImageDim {
		return nil, "", fmt.Errorf("image dimensions %dx%d exceed limit %d", width, height, maxImageDim)
	}

	format := strings.ToLower(cfg.Format)
	fill := placeholderPalette[mathrand.IntN(len(placeholderPalette))]

	var data []byte
	var mimeType string
	var err error
	switch format {
	case "png":
		data, err = rasterPlaceholder(width, height, fill, "png")
		mimeType = "image/png"
	case "jpeg", "jpg":
		data, err = rasterPlaceholder(width, height, fill, "jpeg")
		mimeType = "image/jpeg"
	default:
		// svg, webp, and anything unrecognized.
		data = svgPlaceholder(width, height, fill)
		mimeType = "image/svg+xml"
	}
	if err != nil {
		return nil, "", err
	}

	data = padToSize(data, cfg.TargetSizeKB, mimeType)
	return data, mimeType, nil
}

// svgPlaceholder builds the SVG document: a filled rectangle with the
// dimensions printed in the center.
func svgPlaceholder(width, height int, fill color.RGBA) []byte {
	doc := etree.NewDocument()
	svg := doc.CreateElement("svg")
	svg.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	svg.CreateAttr("width", fmt.Sprintf("%d", width))
	svg.CreateAttr("height", fmt.Sprintf("%d", height))
	svg.CreateAttr("viewBox", fmt.Sprintf("0 0 %d %d", width, height))

	rect := svg.CreateElement("rect")
	rect.CreateAttr("width", "100%")
	rect.CreateAttr("height", "100%")
	rect.CreateAttr("fill", fmt.Sprintf("#%02x%02x%02x", fill.R, fill.G, fill.B))

	label := svg.CreateElement("text")
	label.CreateAttr("x", "50%")
	label.CreateAttr("y", "50%")
	label.CreateAttr("dominant-baseline", "middle")
	label.CreateAttr("text-anchor", "middle")
	label.CreateAttr("fill", "#ffffff")
	label.CreateAttr("font-family", "sans-serif")
	label.CreateAttr("font-size", fmt.Sprintf("%d", max(12, min(width, height)/8)))
	label.SetText(fmt.Sprintf("%d x %d", width, height))

	out, err := doc.WriteToBytes()
	if err != nil {
		return []byte(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"/>`, width, height))
	}
	return out
}

// rasterPlaceholder draws the placeholder into a raster image and encodes
// it with the stdlib encoder for the format.
func rasterPlaceholder(width, height int, fill color.RGBA, format string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	border := color.RGBA{0xff, 0xff, 0xff, 0xff}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < 2 || y < 2 || x >= width-2 || y >= height-2 {
				img.SetRGBA(x, y, border)
			} else {
				img.SetRGBA(x, y, fill)
			}
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s placeholder: %w", format, err)
	}
	return buf.Bytes(), nil
}

// padToSize pads data up to targetKB kilobytes. Data already at or above
// the target is returned unchanged; the stream is never truncated. SVG
// pads with an XML comment so the document stays well formed; raster
// formats pad with trailing zero bytes, which decoders ignore.
func padToSize(data []byte, targetKB int, mimeType string) []byte {
	if targetKB <= 0 {
		return data
	}
	target := targetKB * 1024
	if len(data) >= target {
		return data
	}

	pad := target - len(data)
	if mimeType == "image/svg+xml" {
		// "<!--" + filler + "-->" must fit exactly.
		if pad < 7 {
			pad = 7
		}
		filler := bytes.Repeat([]byte{' '}, pad-7)
		out := make([]byte, 0, target)
		out = append(out, data...)
		out = append(out, []byte("<!--")...)
		out = append(out, filler...)
		out = append(out, []byte("-->")...)
		return out
	}

	out := make([]byte, target)
	copy(out, data)
	return out
}
