// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compose

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// button is the validated PNG drawn on the first page.
type button struct {
	png           []byte
	width, height int
}

func decodeButton(data []byte) (*button, error) {
	if len(data) == 0 {
		return nil, ErrAssetMissing
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetMissing, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrAssetMissing)
	}
	return &button{png: bytes.Clone(data), width: b.Dx(), height: b.Dy()}, nil
}

// scale maps image pixels to points so the button is ButtonWidth wide.
func (b *button) scale() float64 {
	return ButtonWidth / float64(b.width)
}

// drawnHeight is the button's height on the page, in points.
func (b *button) drawnHeight() float64 {
	return float64(b.height) * b.scale()
}

// stamp returns a watermark drawing the button buttonMargin points in from
// the top-right corner. A Watermark reads its image once, so each merge
// needs a fresh one.
func (b *button) stamp() (*model.Watermark, error) {
	desc := fmt.Sprintf("pos:tr, off:%s %s, scale:%s abs, rot:0, op:1",
		num(-buttonMargin), num(-buttonMargin), num(b.scale()))
	return api.ImageWatermarkForReader(bytes.NewReader(b.png), desc, true, false, types.POINTS)
}
