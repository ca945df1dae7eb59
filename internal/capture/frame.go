// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const dataURLPrefix = "data:image/jpeg;base64,"

// Frame is a rasterized still taken from a sink.
type Frame struct {
	Image  *image.RGBA
	Width  int
	Height int
}

// rasterize decodes an encoded frame and draws it onto an off-screen RGBA
// surface. maxWidth > 0 downsamples wider frames preserving aspect ratio.
func rasterize(encoded []byte, maxWidth int) (Frame, error) {
	src, _, err := image.Decode(bytes.NewReader(encoded))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: decode: %v", ErrCaptureFailure, err)
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Frame{}, fmt.Errorf("%w: empty frame", ErrCaptureFailure)
	}

	w, h := b.Dx(), b.Dy()
	if maxWidth > 0 && w > maxWidth {
		h = h * maxWidth / w
		if h < 1 {
			h = 1
		}
		w = maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}
	return Frame{Image: dst, Width: w, Height: h}, nil
}

// encodeDataURL JPEG-encodes the frame as a data URL.
func encodeDataURL(f Frame, quality int) (string, error) {
	var buf bytes.Buffer
	buf.Grow(f.Width * f.Height / 4)
	if err := jpeg.Encode(&buf, f.Image, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("%w: encode: %v", ErrCaptureFailure, err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
