package model

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

const stageInference = "inference"

// SessionConfig locates the model and, optionally, the onnxruntime shared library.
type SessionConfig struct {
	ModelPath   string
	LibraryPath string
}

// Session runs a classification graph through onnxruntime. It binds the
// model's first input and first output and allocates tensors per call, so a
// single Session serves concurrent callers.
type Session struct {
	session     *ort.DynamicAdvancedSession
	inputName   string
	outputName  string
	inputShape  ort.Shape
	outputShape ort.Shape
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to read model metadata: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("model %s has %d inputs and %d outputs", cfg.ModelPath, len(inputs), len(outputs))
	}

	input, output := inputs[0], outputs[0]
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{input.Name}, []string{output.Name}, nil)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Session{
		session:     session,
		inputName:   input.Name,
		outputName:  output.Name,
		inputShape:  staticShape(input.Dimensions),
		outputShape: staticShape(output.Dimensions),
	}, nil
}

// InputName is the name of the tensor fed on every Run.
func (s *Session) InputName() string { return s.inputName }

func (s *Session) InputShape() []int64 { return append([]int64(nil), s.inputShape...) }

func (s *Session) OutputShape() []int64 { return append([]int64(nil), s.outputShape...) }

// Run feeds in to the model and returns a copy of the first output.
func (s *Session) Run(in *Tensor) ([]float32, error) {
	if in == nil {
		return nil, Errorf(ErrInference, stageInference, "nil input tensor")
	}
	shape := ort.NewShape(in.Shape...)
	if int(shape.FlattenedSize()) != len(in.Data) {
		return nil, Errorf(ErrInference, stageInference,
			"input shape %v does not hold %d values", in.Shape, len(in.Data))
	}

	inputTensor, err := ort.NewTensor(shape, in.Data)
	if err != nil {
		return nil, Errorf(ErrInference, stageInference, "failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](append(ort.Shape(nil), s.outputShape...))
	if err != nil {
		return nil, Errorf(ErrInference, stageInference, "failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := s.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, Errorf(ErrInference, stageInference, "%s: %w", s.inputName, err)
	}

	return append([]float32(nil), outputTensor.GetData()...), nil
}

func (s *Session) Close() {
	if s.session != nil {
		s.session.Destroy()
	}
	ort.DestroyEnvironment()
}

// staticShape replaces dynamic dimensions (batch, usually) with 1.
func staticShape(dims ort.Shape) ort.Shape {
	shape := make(ort.Shape, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		shape[i] = d
	}
	return shape
}
