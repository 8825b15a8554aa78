package diarize

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// TurnSegment сегмент речи с номером спикера из офлайн-диаризации
type TurnSegment struct {
	Start   float32 `json:"start"` // секунды
	End     float32 `json:"end"`   // секунды
	Speaker int     `json:"speaker"`
}

// OfflineDiarizerConfig конфигурация офлайн-диаризации sherpa-onnx
type OfflineDiarizerConfig struct {
	SegmentationModelPath string  // модель сегментации (pyannote)
	EmbeddingModelPath    string  // модель эмбеддингов (wespeaker/3dspeaker)
	NumThreads            int
	ClusteringThreshold   float32 // порог кластеризации (0.0-1.0)
	MinDurationOn         float32 // минимальная длительность речи, сек
	MinDurationOff        float32 // минимальная пауза, сек
	Provider              string  // cpu, cuda, coreml, auto
}

// DefaultOfflineDiarizerConfig конфигурация по умолчанию с
// автоопределением provider для платформы
func DefaultOfflineDiarizerConfig(segmentationPath, embeddingPath string) OfflineDiarizerConfig {
	return OfflineDiarizerConfig{
		SegmentationModelPath: segmentationPath,
		EmbeddingModelPath:    embeddingPath,
		NumThreads:            4,
		ClusteringThreshold:   0.5,
		MinDurationOn:         0.3,
		MinDurationOff:        0.5,
		Provider:              "auto",
	}
}

func detectBestProvider() string {
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return "coreml"
	}
	// cuda возможен на Linux/Windows с NVIDIA, но по умолчанию безопасный cpu
	return "cpu"
}

// OfflineDiarizer нейронная офлайн-диаризация записанной сессии.
// Используется конвейером повторного анализа: участки, помеченные
// трекером как низкоуверенные, пересматриваются по полной записи.
// Опционален: требует моделей на диске.
type OfflineDiarizer struct {
	config      OfflineDiarizerConfig
	diarizer    *sherpa.OfflineSpeakerDiarization
	mu          sync.Mutex
	initialized bool
}

// NewOfflineDiarizer создаёт диаризатор на базе sherpa-onnx
func NewOfflineDiarizer(config OfflineDiarizerConfig) (*OfflineDiarizer, error) {
	if _, err := os.Stat(config.SegmentationModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("segmentation model not found: %s", config.SegmentationModelPath)
	}
	if _, err := os.Stat(config.EmbeddingModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("embedding model not found: %s", config.EmbeddingModelPath)
	}

	provider := config.Provider
	if provider == "auto" || provider == "" {
		provider = detectBestProvider()
	}

	sherpaConfig := &sherpa.OfflineSpeakerDiarizationConfig{
		Segmentation: sherpa.OfflineSpeakerSegmentationModelConfig{
			Pyannote: sherpa.OfflineSpeakerSegmentationPyannoteModelConfig{
				Model: config.SegmentationModelPath,
			},
			NumThreads: config.NumThreads,
			Debug:      0,
			Provider:   provider,
		},
		Embedding: sherpa.SpeakerEmbeddingExtractorConfig{
			Model:      config.EmbeddingModelPath,
			NumThreads: config.NumThreads,
			Debug:      0,
			Provider:   provider,
		},
		Clustering: sherpa.FastClusteringConfig{
			NumClusters: -1, // количество спикеров определяется автоматически
			Threshold:   config.ClusteringThreshold,
		},
		MinDurationOn:  config.MinDurationOn,
		MinDurationOff: config.MinDurationOff,
	}

	diarizer := sherpa.NewOfflineSpeakerDiarization(sherpaConfig)
	if diarizer == nil && provider != "cpu" {
		log.Printf("[OfflineDiarizer] %s provider failed, falling back to CPU", provider)
		sherpaConfig.Segmentation.Provider = "cpu"
		sherpaConfig.Embedding.Provider = "cpu"
		diarizer = sherpa.NewOfflineSpeakerDiarization(sherpaConfig)
		provider = "cpu"
	}
	if diarizer == nil {
		return nil, fmt.Errorf("failed to create sherpa-onnx diarizer (provider=%s)", provider)
	}

	log.Printf("[OfflineDiarizer] initialized: provider=%s, segmentation=%s, embedding=%s",
		provider, config.SegmentationModelPath, config.EmbeddingModelPath)

	config.Provider = provider
	return &OfflineDiarizer{
		config:      config,
		diarizer:    diarizer,
		initialized: true,
	}, nil
}

// Reanalyze выполняет диаризацию всей записи.
// samples - float32 PCM, 16kHz, mono.
func (d *OfflineDiarizer) Reanalyze(samples []float32) ([]TurnSegment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil, fmt.Errorf("diarizer not initialized")
	}
	if len(samples) == 0 {
		return nil, nil
	}

	segments := d.diarizer.Process(samples)
	if len(segments) == 0 {
		return nil, nil
	}

	result := make([]TurnSegment, len(segments))
	speakers := make(map[int]struct{})
	for i, seg := range segments {
		result[i] = TurnSegment{
			Start:   seg.Start,
			End:     seg.End,
			Speaker: seg.Speaker,
		}
		speakers[seg.Speaker] = struct{}{}
	}

	log.Printf("[OfflineDiarizer] found %d segments from %d speakers",
		len(result), len(speakers))
	return result, nil
}

// IsInitialized true если модели загружены
func (d *OfflineDiarizer) IsInitialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initialized
}

// Close освобождает ресурсы моделей
func (d *OfflineDiarizer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.diarizer != nil {
		sherpa.DeleteOfflineSpeakerDiarization(d.diarizer)
		d.diarizer = nil
	}
	d.initialized = false
}
