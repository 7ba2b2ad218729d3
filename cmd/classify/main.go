package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/Brownie44l1/classify-api/internal/app"
	"github.com/Brownie44l1/classify-api/internal/config"
)

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "classify"
	cliApp.Usage = "classify the image at a URL with an ONNX model"
	cliApp.ArgsUsage = "<image-url>"
	cliApp.Flags = []cli.Flag{
		cli.StringFlag{Name: "model", Usage: "path to the ONNX model, relative to the working directory"},
		cli.StringFlag{Name: "labels", Usage: "path to the JSON label array, relative to the working directory"},
		cli.StringFlag{Name: "ort-lib", Usage: "path to the onnxruntime shared library, relative to the working directory"},
		cli.DurationFlag{Name: "timeout", Usage: "image download timeout"},
		cli.StringFlag{Name: "log-level", Usage: "log level (debug, info, warn, error)"},
	}
	cliApp.Action = run

	if err := cliApp.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("expected exactly one image url", 2)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg.OverridePaths(wd, c.String("model"), c.String("labels"), c.String("ort-lib"))
	if c.IsSet("timeout") {
		cfg.FetchTimeout = c.Duration("timeout")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}

	classifier, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer classifier.Close()

	resp, err := classifier.Pipeline.Predict(context.Background(), c.Args().First())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
