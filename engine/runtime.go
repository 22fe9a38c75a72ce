package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ErrBertNoInputs = errors.New("bert model declares no inputs")

// BertInspector checks uploaded BERT bytes before they are shipped to the
// engine.
type BertInspector func(bert []byte) error

// Runtime performs the engine's global initialization exactly once per
// process and guards holder creation behind it.
type Runtime struct {
	backend Engine
	libPath string
	inspect BertInspector

	mu          sync.Mutex
	initialized bool
}

// NewRuntime wraps backend. When libPath names an ONNX Runtime shared
// library, Init loads it and uploaded BERT models are inspected with it.
func NewRuntime(backend Engine, libPath string) *Runtime {
	return &Runtime{backend: backend, libPath: libPath}
}

// WithInspector replaces the BERT check used by NewHolder.
func (r *Runtime) WithInspector(inspect BertInspector) *Runtime {
	r.inspect = inspect
	return r
}

// Init runs global initialization. A successful result is kept; a failed
// one is retried on the next call.
func (r *Runtime) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	if r.libPath != "" && !ort.IsInitialized() {
		ort.SetSharedLibraryPath(r.libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to load onnxruntime from %s: %w", r.libPath, err)
		}
		log.Printf("Loaded onnxruntime %s", ort.GetVersion())
		if r.inspect == nil {
			r.inspect = InspectBert
		}
	}

	if err := r.backend.Init(ctx); err != nil {
		return fmt.Errorf("engine init: %w", err)
	}

	r.initialized = true
	log.Printf("Synthesis engine initialized")
	return nil
}

func (r *Runtime) IsInitialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

func (r *Runtime) NewHolder(ctx context.Context, tokenizer string, bert []byte) (Holder, error) {
	if err := r.Init(ctx); err != nil {
		return nil, err
	}
	if len(bert) == 0 {
		return nil, ErrEmptyBert
	}
	if r.inspect != nil {
		if err := r.inspect(bert); err != nil {
			return nil, fmt.Errorf("bert model rejected: %w", err)
		}
	}
	return r.backend.NewHolder(ctx, tokenizer, bert)
}

// Close tears down the ONNX Runtime environment if Init created it.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.libPath != "" && ort.IsInitialized() {
		if err := ort.DestroyEnvironment(); err != nil {
			return fmt.Errorf("failed to destroy onnxruntime environment: %w", err)
		}
	}
	r.initialized = false
	return nil
}

// InspectBert parses the ONNX graph and requires at least one input and one
// output. It needs an initialized ONNX Runtime environment.
func InspectBert(bert []byte) error {
	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(bert)
	if err != nil {
		return fmt.Errorf("failed to read onnx graph: %w", err)
	}
	if len(inputs) == 0 {
		return ErrBertNoInputs
	}
	if len(outputs) == 0 {
		return errors.New("bert model declares no outputs")
	}
	return nil
}
