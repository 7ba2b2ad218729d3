package preprocess

import "github.com/Brownie44l1/classify-api/internal/model"

const stage = "preprocess"

// ImageNet channel statistics, RGB order.
var (
	Mean   = [model.Channels]float32{0.485, 0.456, 0.406}
	StdDev = [model.Channels]float32{0.229, 0.224, 0.225}
)

// Normalize converts an HWC image into a [1, C, H, W] tensor where every
// value is (v/255 - Mean[c]) / StdDev[c]. Values are not clamped.
func Normalize(img *model.RawImage) (*model.Tensor, error) {
	if img == nil {
		return nil, model.Errorf(model.ErrShape, stage, "nil image")
	}
	if img.Channels != model.Channels {
		return nil, model.Errorf(model.ErrShape, stage, "expected %d channels, got %d", model.Channels, img.Channels)
	}
	if img.Height <= 0 || img.Width <= 0 {
		return nil, model.Errorf(model.ErrShape, stage, "invalid dimensions %dx%d", img.Width, img.Height)
	}
	plane := img.Height * img.Width
	if len(img.Pix) != plane*img.Channels {
		return nil, model.Errorf(model.ErrShape, stage,
			"%d bytes do not fill %dx%dx%d", len(img.Pix), img.Height, img.Width, img.Channels)
	}

	data := make([]float32, plane*model.Channels)
	for c := 0; c < model.Channels; c++ {
		out := data[c*plane : (c+1)*plane]
		mean, std := Mean[c], StdDev[c]
		for i := range out {
			out[i] = (float32(img.Pix[i*model.Channels+c])/255 - mean) / std
		}
	}

	return &model.Tensor{
		Shape: []int64{1, model.Channels, int64(img.Height), int64(img.Width)},
		Data:  data,
	}, nil
}
