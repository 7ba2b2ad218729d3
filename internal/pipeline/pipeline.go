package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/classify-api/internal/labels"
	"github.com/Brownie44l1/classify-api/internal/model"
	"github.com/Brownie44l1/classify-api/internal/postprocess"
	"github.com/Brownie44l1/classify-api/internal/preprocess"
)

// Fetcher downloads and crops one image.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*model.RawImage, error)
}

// Engine executes the classification graph. Implementations must be safe for
// concurrent use; model.Session is.
type Engine interface {
	Run(in *model.Tensor) ([]float32, error)
}

// Clock is swapped out in tests.
type Clock func() time.Time

// Deps is everything a Pipeline needs. It is captured once by New and never mutated.
type Deps struct {
	Fetcher Fetcher
	Engine  Engine
	Labels  labels.Table
	Logger  logrus.FieldLogger
	Clock   Clock
}

type Pipeline struct {
	fetcher Fetcher
	engine  Engine
	labels  labels.Table
	logger  logrus.FieldLogger
	now     Clock
}

// Result is a prediction together with the distribution it was taken from.
type Result struct {
	Response      *model.PredictionResponse
	ClassID       int
	Probabilities []float32
}

func New(deps Deps) (*Pipeline, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("pipeline: fetcher is required")
	}
	if deps.Engine == nil {
		return nil, errors.New("pipeline: engine is required")
	}
	if deps.Labels.Len() == 0 {
		return nil, errors.New("pipeline: label table is empty")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Pipeline{
		fetcher: deps.Fetcher,
		engine:  deps.Engine,
		labels:  deps.Labels,
		logger:  deps.Logger,
		now:     deps.Clock,
	}, nil
}

// Predict classifies the image at url.
func (p *Pipeline) Predict(ctx context.Context, url string) (*model.PredictionResponse, error) {
	res, err := p.Classify(ctx, url)
	if err != nil {
		return nil, err
	}
	return res.Response, nil
}

// Classify is Predict that also hands back the full distribution.
func (p *Pipeline) Classify(ctx context.Context, url string) (*Result, error) {
	log := p.logger.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"url":        url,
	})
	begin := p.now()

	img, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		log.WithError(err).Warn("fetch failed")
		return nil, err
	}

	input, err := preprocess.Normalize(img)
	if err != nil {
		log.WithError(err).Warn("preprocess failed")
		return nil, err
	}

	// Latency covers the engine call only.
	start := p.now()
	scores, err := p.engine.Run(input)
	end := p.now()
	if err != nil {
		if !errors.Is(err, model.ErrInference) {
			err = model.NewError(model.ErrInference, "inference", err)
		}
		log.WithError(err).Error("inference failed")
		return nil, err
	}

	probs, classID, err := postprocess.Classify(scores)
	if err != nil {
		log.WithError(err).Error("postprocess failed")
		return nil, err
	}

	label, err := p.labels.Label(classID)
	if err != nil {
		err = fmt.Errorf("model produced %d scores for %d labels: %w", len(scores), p.labels.Len(), err)
		log.WithError(err).Error("label lookup failed")
		return nil, err
	}

	created := p.now()
	resp := &model.PredictionResponse{
		Created:    model.Timestamp(created.UTC()),
		Prediction: label,
		Latency:    latencyMillis(end.Sub(start)),
		Confidence: probs[classID],
	}

	log.WithFields(logrus.Fields{
		"created":    resp.Created.String(),
		"prediction": resp.Prediction,
		"latency":    resp.Latency,
		"confidence": resp.Confidence,
		"total_ms":   latencyMillis(created.Sub(begin)),
	}).Info("returning prediction")

	return &Result{Response: resp, ClassID: classID, Probabilities: probs}, nil
}

// Label resolves a class id against the pipeline's table.
func (p *Pipeline) Label(id int) (string, error) {
	return p.labels.Label(id)
}

// latencyMillis rounds d to hundredths of a millisecond.
func latencyMillis(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return math.Round(float64(d)/float64(time.Millisecond)*100) / 100
}
