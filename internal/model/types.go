package model

import "time"

// Reference input geometry of the ImageNet classifiers this service runs.
const (
	ImageSize = 224
	Channels  = 3
)

// RawImage is a decoded, cropped RGB image in HWC order.
type RawImage struct {
	Height   int
	Width    int
	Channels int
	Pix      []uint8
}

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// PredictionResponse is the record returned for one classified image.
type PredictionResponse struct {
	Created    Timestamp `json:"created"`
	Prediction string    `json:"prediction"`
	Latency    float64   `json:"latency"`
	Confidence float32   `json:"confidence"`
}

// Timestamp renders as a UTC ISO-8601 string without a zone suffix.
type Timestamp time.Time

const timestampLayout = "2006-01-02T15:04:05.999999"

func (t Timestamp) String() string {
	return time.Time(t).UTC().Format(timestampLayout)
}

func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Timestamp) UnmarshalText(text []byte) error {
	parsed, err := time.ParseInLocation(timestampLayout, string(text), time.UTC)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Ranked is one entry of a top-k listing.
type Ranked struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
}
