package embed

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// miniLMDimensions is the output width of all-MiniLM-L6-v2.
	miniLMDimensions = 384

	// maxSequenceLength caps tokenized input; longer text is truncated.
	maxSequenceLength = 256
)

var ortInit sync.Once

// Local embeds text with a local ONNX sentence-transformer model
// (all-MiniLM-L6-v2). Mean pooling over the attention mask, L2-normalized
// output. The ONNX session is serialized with a mutex; scorers may call
// Embed from concurrent goroutines.
type Local struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	tk      *tokenizer.Tokenizer
	dims    int
}

// NewLocal loads the tokenizer and opens an ONNX session for the model.
// Callers should probe Available first; this returns an error rather than a
// degraded embedder when the files are missing or unreadable.
func NewLocal(modelPath, tokenizerPath string) (*Local, error) {
	var initErr error
	ortInit.Do(func() {
		if !ort.IsInitialized() {
			initErr = ort.InitializeEnvironment()
		}
	})
	if initErr != nil {
		return nil, fmt.Errorf("initializing onnxruntime: %w", initErr)
	}

	tk, err := pretrained.FromFile(tokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer %s: %w", tokenizerPath, err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("opening onnx session %s: %w", modelPath, err)
	}

	return &Local{session: session, tk: tk, dims: miniLMDimensions}, nil
}

// Dimensions returns the embedding width.
func (l *Local) Dimensions() int { return l.dims }

// Close releases the ONNX session.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != nil {
		err := l.session.Destroy()
		l.session = nil
		return err
	}
	return nil
}

// Embed returns the normalized sentence embedding for text.
func (l *Local) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	enc, err := l.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("tokenizing: %w", err)
	}

	n := len(enc.Ids)
	if n == 0 {
		return nil, fmt.Errorf("tokenizer produced no tokens")
	}
	if n > maxSequenceLength {
		n = maxSequenceLength
	}

	ids := make([]int64, n)
	mask := make([]int64, n)
	types := make([]int64, n)
	for i := 0; i < n; i++ {
		ids[i] = int64(enc.Ids[i])
		mask[i] = int64(enc.AttentionMask[i])
		types[i] = int64(enc.TypeIds[i])
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil {
		return nil, fmt.Errorf("embedder is closed")
	}

	shape := ort.NewShape(1, int64(n))
	idTensor, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}
	defer idTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("creating mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, types)
	if err != nil {
		return nil, fmt.Errorf("creating type tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := l.session.Run([]ort.Value{idTensor, maskTensor, typeTensor}, outputs); err != nil {
		return nil, fmt.Errorf("running onnx session: %w", err)
	}
	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	defer out.Destroy()

	return meanPool(out.GetData(), mask, l.dims), nil
}

// EmbedBatch embeds each text independently.
func (l *Local) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := l.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// meanPool averages token vectors over the attention mask and L2-normalizes
// the result. hidden is laid out [seq][dims] for a batch of one.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	pooled := make([]float32, dims)
	var count float32
	for i, m := range mask {
		if m == 0 {
			continue
		}
		base := i * dims
		if base+dims > len(hidden) {
			break
		}
		for d := 0; d < dims; d++ {
			pooled[d] += hidden[base+d]
		}
		count++
	}
	if count == 0 {
		return pooled
	}

	var norm float64
	for d := range pooled {
		pooled[d] /= count
		norm += float64(pooled[d]) * float64(pooled[d])
	}
	if norm > 0 {
		inv := float32(1.0 / math.Sqrt(norm))
		for d := range pooled {
			pooled[d] *= inv
		}
	}
	return pooled
}
