package encoder

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// DefaultMaxLength is the token truncation limit applied before encoding.
	// Matches the 512-token context of BERT-family encoders.
	DefaultMaxLength = 512

	// Tensor names used by transformer encoder ONNX exports.
	inputIDsName      = "input_ids"
	attentionMaskName = "attention_mask"
	tokenTypeIDsName  = "token_type_ids"
	hiddenStateName   = "last_hidden_state"
)

// The ONNX Runtime environment is process-wide and initialized once.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initRuntime(libraryPath string) error {
	ortInitOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNXConfig describes how to load a local encoder model.
type ONNXConfig struct {
	ModelName     string // Model identifier, used for reporting only
	ModelPath     string // Path to the model.onnx weights
	TokenizerPath string // Path to the tokenizer.json vocabulary
	Device        Device // Requested device (auto tries GPU, falls back to CPU)
	MaxLength     int    // Token truncation limit (0 = DefaultMaxLength)
	LibraryPath   string // Optional path to the onnxruntime shared library
}

// ONNX runs a pretrained transformer encoder through ONNX Runtime and
// returns its last hidden state per token.
type ONNX struct {
	name       string
	device     Device
	session    *ort.DynamicAdvancedSession
	tk         *tokenizer.Tokenizer
	inputNames []string
	dims       int
	maxLength  int
}

// LoadONNX loads the model weights and tokenizer vocabulary from disk and
// prepares an inference session. Load failures wrap ErrModelLoad so callers
// can branch on the kind without parsing messages.
func LoadONNX(cfg ONNXConfig) (*ONNX, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("%w: initializing onnxruntime: %v", ErrModelLoad, err)
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("%w: loading tokenizer %s: %v", ErrModelLoad, cfg.TokenizerPath, err)
	}

	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	tk.WithTruncation(&tokenizer.TruncationParams{MaxLength: maxLength})

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading model metadata: %v", ErrModelLoad, err)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: model declares no outputs", ErrModelLoad)
	}

	// Keep the model's own input order; Encode matches tensors by name.
	inputNames := make([]string, len(inputs))
	for i, in := range inputs {
		switch in.Name {
		case inputIDsName, attentionMaskName, tokenTypeIDsName:
			inputNames[i] = in.Name
		default:
			return nil, fmt.Errorf("%w: unsupported model input %q", ErrModelLoad, in.Name)
		}
	}

	outputName := outputs[0].Name
	for _, out := range outputs {
		if out.Name == hiddenStateName {
			outputName = out.Name
			break
		}
	}

	// Hidden dimensionality is usually declared statically as the last axis
	// of the output; dynamic exports fill it in on the first forward pass.
	dims := 0
	for _, out := range outputs {
		if out.Name == outputName && len(out.Dimensions) == 3 && out.Dimensions[2] > 0 {
			dims = int(out.Dimensions[2])
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: creating session options: %v", ErrModelLoad, err)
	}
	defer opts.Destroy()

	device := DeviceCPU
	if cfg.Device == DeviceGPU || cfg.Device == DeviceAuto {
		if err := appendCUDA(opts); err != nil {
			if cfg.Device == DeviceGPU {
				return nil, fmt.Errorf("%w: enabling CUDA: %v", ErrModelLoad, err)
			}
			// Auto-detect: fall back to CPU silently.
		} else {
			device = DeviceGPU
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, []string{outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: creating session for %s: %v", ErrModelLoad, cfg.ModelPath, err)
	}

	return &ONNX{
		name:       cfg.ModelName,
		device:     device,
		session:    session,
		tk:         tk,
		inputNames: inputNames,
		dims:       dims,
		maxLength:  maxLength,
	}, nil
}

func appendCUDA(opts *ort.SessionOptions) error {
	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return err
	}
	defer cudaOpts.Destroy()
	return opts.AppendExecutionProviderCUDA(cudaOpts)
}

// Encode implements Encoder.
func (e *ONNX) Encode(ctx context.Context, texts []string) (*TokenBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return &TokenBatch{}, nil
	}

	encodings := make([]*tokenizer.Encoding, len(texts))
	for i, text := range texts {
		en, err := e.tk.EncodeSingle(text, true)
		if err != nil {
			return nil, fmt.Errorf("tokenizing %q: %w", text, err)
		}
		encodings[i] = en
	}

	batch := padBatch(encodings)
	shape := ort.NewShape(int64(batch.batch), int64(batch.seqLen))

	idsTensor, err := ort.NewTensor(shape, batch.ids)
	if err != nil {
		return nil, fmt.Errorf("creating input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, batch.mask)
	if err != nil {
		return nil, fmt.Errorf("creating attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	typeTensor, err := ort.NewTensor(shape, batch.typeIDs)
	if err != nil {
		return nil, fmt.Errorf("creating token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	inputs := make([]ort.Value, len(e.inputNames))
	for i, name := range e.inputNames {
		switch name {
		case inputIDsName:
			inputs[i] = idsTensor
		case attentionMaskName:
			inputs[i] = maskTensor
		case tokenTypeIDsName:
			inputs[i] = typeTensor
		}
	}

	outputs := make([]ort.Value, 1)
	if err := e.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}
	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	defer hidden.Destroy()

	outShape := hidden.GetShape()
	if len(outShape) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v, want batch x tokens x dimensions", outShape)
	}
	tokens, dims := int(outShape[1]), int(outShape[2])
	if e.dims == 0 {
		e.dims = dims
	}

	data := hidden.GetData()
	vectors := make([][][]float32, batch.batch)
	for i := 0; i < batch.batch; i++ {
		rows := make([][]float32, tokens)
		for j := 0; j < tokens; j++ {
			vec := make([]float32, dims)
			copy(vec, data[(i*tokens+j)*dims:])
			rows[j] = vec
		}
		vectors[i] = rows
	}

	return &TokenBatch{Vectors: vectors, Mask: batch.maskRows}, nil
}

// Dimensions returns the hidden dimensionality. For models without a static
// output shape this is 0 until the first Encode call.
func (e *ONNX) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier the encoder was loaded with.
func (e *ONNX) ModelName() string {
	return e.name
}

// Device returns the device inference actually runs on.
func (e *ONNX) Device() Device {
	return e.device
}

// MaxLength returns the token truncation limit.
func (e *ONNX) MaxLength() int {
	return e.maxLength
}

// Close releases the inference session.
func (e *ONNX) Close() error {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	return nil
}
