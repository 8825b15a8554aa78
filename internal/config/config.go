package config

import (
	"flag"

	"medscribe/voice"
)

type Config struct {
	Port     string
	DataDir  string
	Mode     voice.CaptureMode
	GRPCAddr string

	// Опциональные модели; пустой путь отключает компонент
	VADModelPath   string // Silero VAD для нейронного гейта
	SegModelPath   string // pyannote сегментация для офлайн-диаризации
	EmbedModelPath string // эмбеддинги спикеров для офлайн-диаризации

	ArchiveMP3 bool
}

func Load() *Config {
	port := flag.String("port", "8080", "Server port")
	dataDir := flag.String("data", "data/sessions", "Directory for session data")
	mode := flag.String("mode", "direct", "Capture mode: direct or relayed")
	grpcAddr := flag.String("grpc", "", "gRPC listen address (unix:/path or npipe:name), empty = default")
	vadModel := flag.String("vad-model", "", "Path to Silero VAD ONNX model (optional)")
	segModel := flag.String("seg-model", "", "Path to segmentation model for offline diarization (optional)")
	embedModel := flag.String("embed-model", "", "Path to speaker embedding model for offline diarization (optional)")
	archive := flag.Bool("archive", true, "Write MP3 archive of session audio")
	flag.Parse()

	captureMode := voice.CaptureDirect
	if *mode == string(voice.CaptureRelayed) {
		captureMode = voice.CaptureRelayed
	}

	return &Config{
		Port:           *port,
		DataDir:        *dataDir,
		Mode:           captureMode,
		GRPCAddr:       *grpcAddr,
		VADModelPath:   *vadModel,
		SegModelPath:   *segModel,
		EmbedModelPath: *embedModel,
		ArchiveMP3:     *archive,
	}
}
