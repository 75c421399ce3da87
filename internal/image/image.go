// Package image re-encodes the engine's native raster dump into a portable
// image format selected by the output path's extension.
//
// The native dump is a PPM raster (binary P6 or plain P3). Neither the
// standard library nor golang.org/x/image ships a PNM codec, so the decoder
// lives here; encoding goes through the stdlib png/jpeg encoders and the
// x/image bmp/tiff encoders.
package image

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrUnsupportedFormat reports an output extension with no known encoder.
var ErrUnsupportedFormat = errors.New("unsupported output image format")

// maxRasterPixels bounds the decoded raster so a corrupt header cannot drive
// the allocation below it. 2^26 pixels covers an 8192x8192 framebuffer.
const maxRasterPixels = 1 << 26

// Normalize decodes the raster dump at rasterPath and writes it to
// outputPath in the format implied by its extension (.png, .jpg/.jpeg,
// .bmp, .tif/.tiff). The output's parent directory is created if absent.
func Normalize(rasterPath, outputPath string) error {
	f, err := os.Open(rasterPath)
	if err != nil {
		return fmt.Errorf("opening raster dump: %w", err)
	}
	defer f.Close()

	img, err := DecodePPM(f)
	if err != nil {
		return fmt.Errorf("decoding raster dump %s: %w", rasterPath, err)
	}

	if parent := filepath.Dir(outputPath); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output image: %w", err)
	}
	if err := encode(out, img, outputPath); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func encode(w io.Writer, img image.Image, outputPath string) error {
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, nil)
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, nil)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(outputPath))
	}
}

// DecodePPM decodes a binary (P6) or plain (P3) PPM raster into an RGB
// image. Only 8-bit component depth is supported; the engine dumps with a
// maximum value of 255.
func DecodePPM(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)

	magic, err := ppmToken(br)
	if err != nil {
		return nil, err
	}
	if magic != "P6" && magic != "P3" {
		return nil, fmt.Errorf("not a PPM raster (magic %q)", magic)
	}

	width, err := ppmInt(br)
	if err != nil {
		return nil, fmt.Errorf("reading width: %w", err)
	}
	height, err := ppmInt(br)
	if err != nil {
		return nil, fmt.Errorf("reading height: %w", err)
	}
	maxval, err := ppmInt(br)
	if err != nil {
		return nil, fmt.Errorf("reading maxval: %w", err)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid raster size %dx%d", width, height)
	}
	// ppmInt caps each dimension at 2^30, so the product cannot overflow.
	if width*height > maxRasterPixels {
		return nil, fmt.Errorf("raster size %dx%d too large", width, height)
	}
	if maxval <= 0 || maxval > 255 {
		return nil, fmt.Errorf("unsupported component depth (maxval %d)", maxval)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	if magic == "P6" {
		// One whitespace byte separates the header from raster data;
		// ppmInt already consumed it.
		buf := make([]byte, 3*width*height)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("reading raster data: %w", err)
		}
		for i := 0; i < width*height; i++ {
			img.SetNRGBA(i%width, i/width, color.NRGBA{
				R: scale(int(buf[3*i]), maxval),
				G: scale(int(buf[3*i+1]), maxval),
				B: scale(int(buf[3*i+2]), maxval),
				A: 255,
			})
		}
		return img, nil
	}

	for i := 0; i < width*height; i++ {
		var c [3]int
		for j := range c {
			v, err := ppmInt(br)
			if err != nil {
				return nil, fmt.Errorf("reading sample %d: %w", 3*i+j, err)
			}
			if v < 0 || v > maxval {
				return nil, fmt.Errorf("sample %d out of range", v)
			}
			c[j] = v
		}
		img.SetNRGBA(i%width, i/width, color.NRGBA{
			R: scale(c[0], maxval),
			G: scale(c[1], maxval),
			B: scale(c[2], maxval),
			A: 255,
		})
	}
	return img, nil
}

func scale(v, maxval int) uint8 {
	if maxval == 255 {
		return uint8(v)
	}
	return uint8(v * 255 / maxval)
}

// ppmToken reads the next whitespace-delimited header token, skipping
// '#' comments.
func ppmToken(br *bufio.Reader) (string, error) {
	var b strings.Builder
	inComment := false
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && b.Len() > 0 {
				return b.String(), nil
			}
			return "", fmt.Errorf("reading PPM header: %w", err)
		}
		switch {
		case inComment:
			if c == '\n' {
				inComment = false
			}
		case c == '#':
			inComment = true
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			if b.Len() > 0 {
				return b.String(), nil
			}
		default:
			b.WriteByte(c)
		}
	}
}

func ppmInt(br *bufio.Reader) (int, error) {
	tok, err := ppmToken(br)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range tok {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("malformed header value %q", tok)
		}
		n = n*10 + int(c-'0')
		if n > 1<<30 {
			return 0, fmt.Errorf("header value %q too large", tok)
		}
	}
	if tok == "" {
		return 0, errors.New("empty header value")
	}
	return n, nil
}
