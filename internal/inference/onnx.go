package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/example/letter-recognizer/internal/logging"
	"github.com/example/letter-recognizer/internal/normalizer"
)

// ONNXOptions configures NewONNXModel. Empty names are discovered from the model file.
type ONNXOptions struct {
	Path        string
	LibraryPath string
	InputName   string
	OutputName  string
}

// ONNXModel runs an exported classifier through ONNX Runtime. Input and
// output tensors are allocated once, so runs are serialized.
type ONNXModel struct {
	mu          sync.Mutex
	session     *ort.AdvancedSession
	input       *ort.Tensor[float32]
	output      *ort.Tensor[float32]
	inputSize   int
	outputWidth int
	logger      *zap.Logger
}

// NewONNXModel initializes the runtime environment and loads the model at opts.Path.
func NewONNXModel(opts ONNXOptions, logger *zap.Logger) (*ONNXModel, error) {
	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, logging.NewOperationError("inference.init_environment", "", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.Path)
	if err != nil {
		return nil, logging.NewOperationError("inference.inspect_model", "", err)
	}
	inInfo, err := pickInfo(inputs, opts.InputName, "input")
	if err != nil {
		return nil, err
	}
	outInfo, err := pickInfo(outputs, opts.OutputName, "output")
	if err != nil {
		return nil, err
	}

	inputShape := resolveShape(inInfo.Dimensions)
	outputShape := resolveShape(outInfo.Dimensions)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(opts.Path,
		[]string{inInfo.Name}, []string{outInfo.Name},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, logging.NewOperationError("inference.create_session", "", err)
	}

	m := &ONNXModel{
		session:     session,
		input:       inputTensor,
		output:      outputTensor,
		inputSize:   int(inputShape.FlattenedSize()),
		outputWidth: int(outputShape.FlattenedSize()),
		logger:      logger.Named("onnx_model"),
	}
	m.logger.Info("model loaded",
		zap.String("path", opts.Path),
		zap.String("input", inInfo.Name),
		zap.Int64s("input_shape", inputShape),
		zap.String("output", outInfo.Name),
		zap.Int64s("output_shape", outputShape),
	)
	return m, nil
}

// OutputWidth returns the number of scores produced per run.
func (m *ONNXModel) OutputWidth() int {
	return m.outputWidth
}

// Score runs a forward pass. A started run is never cancelled. The returned
// slice is owned by the caller.
func (m *ONNXModel) Score(_ context.Context, input *normalizer.Tensor) ([]float32, error) {
	if input == nil {
		return nil, errors.New("nil input tensor")
	}
	if input.Size() != len(input.Data) {
		return nil, fmt.Errorf("input tensor shape %v does not match %d values", input.Shape, len(input.Data))
	}
	if len(input.Data) != m.inputSize {
		return nil, fmt.Errorf("input tensor has %d values, model expects %d", len(input.Data), m.inputSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.input.GetData(), input.Data)
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	scores := make([]float32, m.outputWidth)
	copy(scores, m.output.GetData())
	return scores, nil
}

// Close releases the session, its tensors and the runtime environment.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.session != nil {
		errs = append(errs, m.session.Destroy())
		m.session = nil
	}
	if m.input != nil {
		errs = append(errs, m.input.Destroy())
		m.input = nil
	}
	if m.output != nil {
		errs = append(errs, m.output.Destroy())
		m.output = nil
	}
	errs = append(errs, ort.DestroyEnvironment())
	return errors.Join(errs...)
}

func pickInfo(infos []ort.InputOutputInfo, name, kind string) (ort.InputOutputInfo, error) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, fmt.Errorf("model declares no %ss", kind)
	}
	if name == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return ort.InputOutputInfo{}, fmt.Errorf("model has no %s named %q", kind, name)
}

// resolveShape pins dynamic (non-positive) dimensions to 1, which covers the batch axis.
func resolveShape(dims ort.Shape) ort.Shape {
	out := make(ort.Shape, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		out[i] = d
	}
	return out
}
