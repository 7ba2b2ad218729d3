package imageio

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/Brownie44l1/classify-api/internal/model"
)

// Fit scales img so its shorter side equals size, keeping the aspect ratio,
// then crops the centered size x size square out of the longer side.
func Fit(img image.Image, size int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return image.NewNRGBA(image.Rect(0, 0, size, size))
	}

	// Round the long side up so it never ends short of size.
	var sw, sh int
	if w < h {
		sw, sh = size, (h*size+w-1)/w
	} else {
		sw, sh = (w*size+h-1)/h, size
	}

	scaled := img
	if sw != w || sh != h {
		scaled = resize.Resize(uint(sw), uint(sh), img, resize.Lanczos3)
	}
	return imaging.CropCenter(scaled, size, size)
}

// ToRaw copies img into an HWC RGB byte grid, dropping alpha.
func ToRaw(img *image.NRGBA) *model.RawImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, 0, w*h*model.Channels)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			pix = append(pix, row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return &model.RawImage{Height: h, Width: w, Channels: model.Channels, Pix: pix}
}
