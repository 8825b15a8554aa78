// Офлайн анализ записанной сессии: прогоняет MP3 архив через тот же
// конвейер характеристик и печатает профили спикеров и диагностику.
// При наличии моделей выполняет нейронную офлайн-диаризацию.
//
// Запуск: go run ./cmd/analyzefile -file data/sessions/<id>/audio.mp3

package main

import (
	"flag"
	"log"
	"time"

	"medscribe/diarize"
	"medscribe/session"
	"medscribe/voice"
)

func main() {
	file := flag.String("file", "", "Path to session MP3 archive")
	mode := flag.String("mode", "direct", "Capture mode: direct or relayed")
	segModel := flag.String("seg-model", "", "Segmentation model for neural diarization (optional)")
	embedModel := flag.String("embed-model", "", "Embedding model for neural diarization (optional)")
	flag.Parse()

	if *file == "" {
		log.Fatal("usage: analyzefile -file <audio.mp3>")
	}

	reader, err := session.NewMP3Reader(*file)
	if err != nil {
		log.Fatalf("Failed to open archive: %v", err)
	}
	defer reader.Close()

	log.Printf("Archive: %s (%.1fs, %d Hz)", *file, reader.Duration(), reader.SampleRate())

	samples, err := reader.ReadAllMono()
	if err != nil {
		log.Fatalf("Failed to read archive: %v", err)
	}

	cfg := voice.ConfigForMode(voice.CaptureMode(*mode))
	cfg.SampleRate = reader.SampleRate()

	analyzer := voice.NewAnalyzer(cfg)
	classifier := voice.NewClassifier(cfg)
	registry := voice.NewRegistry(cfg)
	tracker := voice.NewTracker(cfg)

	// Синхронный проход по кадрам: офлайн не требует конвейера с дропом
	start := time.Now()
	tick := time.Duration(float64(cfg.FrameSize) / float64(cfg.SampleRate) * float64(time.Second))
	activeFrames := 0
	for i := 0; i+cfg.FrameSize <= len(samples); i += cfg.FrameSize {
		feat := analyzer.AnalyzeFrame(samples[i : i+cfg.FrameSize])
		ts := start.Add(time.Duration(i/cfg.FrameSize) * tick)

		vc := voice.Silent(ts)
		vc.Volume = feat.Volume
		if feat.VoiceActive {
			activeFrames++
			register, conf := classifier.Classify(feat.Pitch)
			quality, _ := classifier.AssessQuality(samples[i:i+cfg.FrameSize], feat.Volume)
			speaker := registry.Resolve(voice.Observation{
				Pitch:    feat.Pitch,
				Tilt:     feat.Tilt,
				Register: register,
				Quality:  quality,
				Time:     ts,
			})
			vc = voice.VoiceCharacteristics{
				Register:   register,
				Pitch:      feat.Pitch,
				Confidence: conf,
				Volume:     feat.Volume,
				Quality:    quality,
				Speaker:    speaker,
				Tilt:       feat.Tilt,
				Timestamp:  ts,
			}
		}
		tracker.Observe(vc)
	}

	log.Printf("Frames: %d total, %d voice-active", len(samples)/cfg.FrameSize, activeFrames)

	log.Println("=== Speaker profiles ===")
	for _, p := range registry.Profiles() {
		log.Printf("%s: pitch avg=%.1fHz range=[%.1f, %.1f] quality=%s samples=%d",
			p.ID, p.AvgPitch, p.PitchMin, p.PitchMax, p.Quality, p.Samples)
	}

	if flagged := tracker.Flagged(); len(flagged) > 0 {
		log.Printf("=== Low-confidence ticks: %d ===", len(flagged))
		byReason := make(map[voice.FlagReason]int)
		for _, f := range flagged {
			byReason[f.Reason]++
		}
		for reason, count := range byReason {
			log.Printf("  %s: %d", reason, count)
		}
	}

	if *segModel != "" && *embedModel != "" {
		runNeuralDiarization(samples, *segModel, *embedModel)
	}
}

func runNeuralDiarization(samples []float32, segModel, embedModel string) {
	d, err := diarize.NewOfflineDiarizer(diarize.DefaultOfflineDiarizerConfig(segModel, embedModel))
	if err != nil {
		log.Printf("Neural diarization unavailable: %v", err)
		return
	}
	defer d.Close()

	turns, err := d.Reanalyze(samples)
	if err != nil {
		log.Printf("Neural diarization failed: %v", err)
		return
	}

	log.Println("=== Neural diarization ===")
	for _, t := range turns {
		log.Printf("  speaker %d: %.2fs - %.2fs", t.Speaker, t.Start, t.End)
	}
}
