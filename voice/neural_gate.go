package voice

import (
	"fmt"
	"log"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// NeuralGateConfig конфигурация нейронного VAD (Silero)
type NeuralGateConfig struct {
	ModelPath  string  // путь к ONNX модели
	SampleRate int     // 8000 или 16000
	Threshold  float32 // порог вероятности речи
}

// DefaultNeuralGateConfig конфигурация по умолчанию
func DefaultNeuralGateConfig(modelPath string) NeuralGateConfig {
	return NeuralGateConfig{
		ModelPath:  modelPath,
		SampleRate: 16000,
		Threshold:  0.5,
	}
}

// NeuralGate опциональная перепроверка голосовой активности моделью
// Silero VAD. Эвристический гейт анализатора остаётся первичным;
// нейронный используется на деградированном захвате, где энергетический
// порог пропускает шум. Состояние LSTM сохраняется между чанками.
type NeuralGate struct {
	session *ort.DynamicAdvancedSession
	config  NeuralGateConfig

	state   []float32 // [2, 1, 128] h и c состояния LSTM
	context []float32 // хвост предыдущего чанка (64 сэмпла при 16kHz)

	mu          sync.Mutex
	initialized bool
}

// NewNeuralGate создаёт гейт; модель должна существовать на диске
func NewNeuralGate(config NeuralGateConfig) (*NeuralGate, error) {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", config.ModelPath)
	}
	if config.SampleRate != 8000 && config.SampleRate != 16000 {
		return nil, fmt.Errorf("sample rate must be 8000 or 16000, got %d", config.SampleRate)
	}

	if err := initONNXRuntime(); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	// Silero VAD: входы input, state, sr; выходы output, stateN
	session, err := ort.NewDynamicAdvancedSession(
		config.ModelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	contextSize := 64
	if config.SampleRate == 8000 {
		contextSize = 32
	}

	log.Printf("[NeuralGate] Silero VAD initialized: sample_rate=%d, threshold=%.2f",
		config.SampleRate, config.Threshold)

	return &NeuralGate{
		session:     session,
		config:      config,
		state:       make([]float32, 2*1*128),
		context:     make([]float32, contextSize),
		initialized: true,
	}, nil
}

// ResetState сбрасывает LSTM состояние и контекст (начало новой сессии)
func (g *NeuralGate) ResetState() {
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.state)
	clear(g.context)
}

// ProcessChunk возвращает вероятность речи для одного чанка.
// Размер чанка: 512 сэмплов при 16kHz, 256 при 8kHz.
func (g *NeuralGate) ProcessChunk(samples []float32) (float32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.initialized {
		return 0, fmt.Errorf("neural gate not initialized")
	}

	contextSize := len(g.context)
	inputData := make([]float32, contextSize+len(samples))
	copy(inputData[:contextSize], g.context)
	copy(inputData[contextSize:], samples)

	// Хвост чанка становится контекстом следующего вызова
	if len(samples) >= contextSize {
		copy(g.context, samples[len(samples)-contextSize:])
	} else {
		copy(g.context, g.context[len(samples):])
		copy(g.context[contextSize-len(samples):], samples)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(inputData))), inputData)
	if err != nil {
		return 0, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	stateTensor, err := ort.NewTensor(ort.NewShape(2, 1, 128), g.state)
	if err != nil {
		return 0, fmt.Errorf("failed to create state tensor: %w", err)
	}
	defer stateTensor.Destroy()

	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(g.config.SampleRate)})
	if err != nil {
		return 0, fmt.Errorf("failed to create sr tensor: %w", err)
	}
	defer srTensor.Destroy()

	outputs := []ort.Value{nil, nil}
	if err := g.session.Run([]ort.Value{inputTensor, stateTensor, srTensor}, outputs); err != nil {
		return 0, fmt.Errorf("failed to run inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	outputData := outputs[0].(*ort.Tensor[float32]).GetData()
	copy(g.state, outputs[1].(*ort.Tensor[float32]).GetData())

	if len(outputData) == 0 {
		return 0, nil
	}
	return outputData[0], nil
}

// ProbeFrame средняя вероятность речи по окнам целого кадра анализа.
// Используется конвейером как перепроверка эвристического гейта.
func (g *NeuralGate) ProbeFrame(samples []float32) (float32, error) {
	windowSize := 512
	if g.config.SampleRate == 8000 {
		windowSize = 256
	}

	var sum float32
	var count int
	for i := 0; i+windowSize <= len(samples); i += windowSize {
		prob, err := g.ProcessChunk(samples[i : i+windowSize])
		if err != nil {
			return 0, err
		}
		sum += prob
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float32(count), nil
}

// SpeechLikely true если средняя вероятность выше порога
func (g *NeuralGate) SpeechLikely(samples []float32) bool {
	prob, err := g.ProbeFrame(samples)
	if err != nil {
		return true // при ошибке инференса не блокируем основной гейт
	}
	return prob >= g.config.Threshold
}

// Close освобождает ресурсы модели
func (g *NeuralGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session != nil {
		g.session.Destroy()
		g.session = nil
	}
	g.initialized = false
}
