package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/classify-api/internal/config"
	"github.com/Brownie44l1/classify-api/internal/imageio"
	"github.com/Brownie44l1/classify-api/internal/labels"
	"github.com/Brownie44l1/classify-api/internal/model"
	"github.com/Brownie44l1/classify-api/internal/pipeline"
)

// App owns the process-wide model session and label table. Build it once
// at startup; the pipeline only reads from it.
type App struct {
	Pipeline *pipeline.Pipeline
	Labels   labels.Table
	Session  *model.Session
}

func New(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	table, err := labels.Load(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"path": cfg.LabelsPath, "classes": table.Len()}).Info("loaded labels")

	session, err := model.NewSession(model.SessionConfig{
		ModelPath:   cfg.ModelPath,
		LibraryPath: cfg.LibraryPath,
	})
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"path":   cfg.ModelPath,
		"input":  session.InputName(),
		"shape":  session.InputShape(),
		"output": session.OutputShape(),
	}).Info("loaded model")

	if err := checkPairing(session.OutputShape(), table.Len()); err != nil {
		logger.WithError(err).Warn("model and labels may not match")
	}

	fetcher := imageio.NewFetcher(cfg.FetchTimeout, cfg.ImageSize, cfg.MaxBytes, logger)
	p, err := pipeline.New(pipeline.Deps{
		Fetcher: fetcher,
		Engine:  session,
		Labels:  table,
		Logger:  logger,
	})
	if err != nil {
		session.Close()
		return nil, err
	}

	return &App{Pipeline: p, Labels: table, Session: session}, nil
}

func (a *App) Close() {
	if a.Session != nil {
		a.Session.Close()
	}
}

// checkPairing compares the model's class count with the label table. A
// mismatch is reported at startup; requests that land outside the table
// still fail individually with a label index error.
func checkPairing(outputShape []int64, numLabels int) error {
	if len(outputShape) == 0 {
		return nil
	}
	classes := outputShape[len(outputShape)-1]
	if classes != int64(numLabels) {
		return fmt.Errorf("model emits %d classes but %d labels are loaded", classes, numLabels)
	}
	return nil
}
