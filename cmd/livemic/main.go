// Живой анализ голоса с микрофона
// Запуск: go run ./cmd/livemic
// Остановка: Ctrl+C

package main

import (
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"

	"medscribe/session"
	"medscribe/voice"
)

const (
	sampleRate = 16000
	channels   = 1
)

func main() {
	mode := flag.String("mode", "direct", "Capture mode: direct or relayed")
	flag.Parse()

	cfg := voice.ConfigForMode(voice.CaptureMode(*mode))

	log.Println("=== Live microphone voice analysis ===")
	log.Printf("Format: %dHz mono, frame=%d samples, mode=%s", sampleRate, cfg.FrameSize, cfg.Mode)
	log.Println("Press Ctrl+C to stop...")

	pipeline := session.NewPipeline(cfg, nil)
	pipeline.SetCallbacks(func(vc voice.VoiceCharacteristics) {
		if vc.Speaker == voice.SpeakerSilence {
			return
		}
		log.Printf("speaker=%s pitch=%.1fHz register=%s conf=%.2f vol=%.0f quality=%s",
			vc.Speaker, vc.Pitch, vc.Register, vc.Confidence, vc.Volume, vc.Quality)
	}, nil)
	pipeline.Start()
	defer pipeline.Close()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Fatalf("Failed to init audio context: %v", err)
	}
	defer ctx.Uninit()
	defer ctx.Free()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = channels
	deviceConfig.SampleRate = sampleRate
	deviceConfig.Alsa.NoMMap = 1

	// Накапливаем сэмплы до размера кадра анализа
	frame := make([]float32, 0, cfg.FrameSize)

	onRecvFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		sampleCount := int(framecount) * channels
		if len(pInputSamples) != sampleCount*4 {
			return
		}
		for i := 0; i < sampleCount; i++ {
			bits := uint32(pInputSamples[i*4]) |
				uint32(pInputSamples[i*4+1])<<8 |
				uint32(pInputSamples[i*4+2])<<16 |
				uint32(pInputSamples[i*4+3])<<24
			frame = append(frame, math.Float32frombits(bits))
			if len(frame) == cfg.FrameSize {
				chunk := make([]float32, cfg.FrameSize)
				copy(chunk, frame)
				pipeline.PushFrame(chunk)
				frame = frame[:0]
			}
		}
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onRecvFrames,
	})
	if err != nil {
		log.Fatalf("Failed to init capture device: %v", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		log.Fatalf("Failed to start capture: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	device.Stop()
	time.Sleep(100 * time.Millisecond)

	log.Println("=== Speaker profiles ===")
	for _, p := range pipeline.Profiles() {
		log.Printf("%s: pitch avg=%.1fHz range=[%.1f, %.1f] samples=%d",
			p.ID, p.AvgPitch, p.PitchMin, p.PitchMax, p.Samples)
	}
	if dropped := pipeline.Dropped(); dropped > 0 {
		log.Printf("dropped frames: %d", dropped)
	}
}
