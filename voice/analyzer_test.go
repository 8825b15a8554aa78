// Package voice тесты извлечения признаков из кадров
package voice

import (
	"math"
	"testing"
)

// sineFrame генерирует кадр синусоиды заданной частоты
func sineFrame(freq, amp float64, n, sampleRate int) []float32 {
	frame := make([]float32, n)
	for i := range frame {
		frame[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return frame
}

func TestPitchDetectionSine(t *testing.T) {
	cfg := DefaultDirectConfig()
	analyzer := NewAnalyzer(cfg)

	// Частоты по всему правдоподобному диапазону питча
	for _, freq := range []float64{60, 85, 120, 150, 220, 300, 440, 600, 750} {
		frame := sineFrame(freq, 0.5, cfg.FrameSize, cfg.SampleRate)
		feat := analyzer.AnalyzeFrame(frame)

		if feat.Pitch == 0 {
			t.Errorf("freq=%.0f: no pitch detected", freq)
			continue
		}
		relErr := math.Abs(feat.Pitch-freq) / freq
		t.Logf("freq=%.0f detected=%.1f err=%.2f%%", freq, feat.Pitch, relErr*100)
		if relErr > 0.03 {
			t.Errorf("freq=%.0f: detected %.1f, error %.1f%% exceeds 3%%", freq, feat.Pitch, relErr*100)
		}
		if !feat.VoiceActive {
			t.Errorf("freq=%.0f: loud pitched frame must be voice-active", freq)
		}
	}
}

func TestZeroFrame(t *testing.T) {
	cfg := DefaultDirectConfig()
	analyzer := NewAnalyzer(cfg)

	feat := analyzer.AnalyzeFrame(make([]float32, cfg.FrameSize))
	if feat.VoiceActive {
		t.Error("zero frame must not be voice-active")
	}
	if feat.Pitch != 0 {
		t.Errorf("zero frame pitch = %.1f, want 0", feat.Pitch)
	}
	if feat.Volume != 0 {
		t.Errorf("zero frame volume = %.1f, want 0", feat.Volume)
	}
}

func TestEmptyFrame(t *testing.T) {
	analyzer := NewAnalyzer(DefaultDirectConfig())
	feat := analyzer.AnalyzeFrame(nil)
	if feat.VoiceActive || feat.Pitch != 0 || feat.Volume != 0 {
		t.Errorf("empty frame must yield zero features, got %+v", feat)
	}
}

func TestQuietFrameBelowFloor(t *testing.T) {
	cfg := DefaultDirectConfig()
	analyzer := NewAnalyzer(cfg)

	// Питч присутствует, но громкость ниже порога активности
	frame := sineFrame(120, 0.005, cfg.FrameSize, cfg.SampleRate)
	feat := analyzer.AnalyzeFrame(frame)
	if feat.VoiceActive {
		t.Errorf("quiet frame (volume=%.2f) must not be voice-active", feat.Volume)
	}
}

func TestRelayedModeLowerFloor(t *testing.T) {
	direct := NewAnalyzer(DefaultDirectConfig())
	relayed := NewAnalyzer(DefaultRelayedConfig())

	// Кадр тише прямого порога, но громче деградированного
	frame := sineFrame(120, 0.015, DefaultDirectConfig().FrameSize, 16000)

	if direct.AnalyzeFrame(frame).VoiceActive {
		t.Error("direct mode must reject frame below its floor")
	}
	if !relayed.AnalyzeFrame(frame).VoiceActive {
		t.Error("relayed mode must accept the same frame with its lower floor")
	}
}

func TestVolumeScale(t *testing.T) {
	cfg := DefaultDirectConfig()
	analyzer := NewAnalyzer(cfg)

	// RMS синусоиды = amp/sqrt(2); при amp=0.5 громкость ~35
	feat := analyzer.AnalyzeFrame(sineFrame(150, 0.5, cfg.FrameSize, cfg.SampleRate))
	if feat.Volume < 30 || feat.Volume > 40 {
		t.Errorf("volume = %.1f, want ~35", feat.Volume)
	}
}

func TestAnalyzerDeterminism(t *testing.T) {
	cfg := DefaultDirectConfig()
	frame := sineFrame(180, 0.4, cfg.FrameSize, cfg.SampleRate)

	a := NewAnalyzer(cfg).AnalyzeFrame(frame)
	b := NewAnalyzer(cfg).AnalyzeFrame(frame)
	if a != b {
		t.Errorf("same frame produced different features: %+v vs %+v", a, b)
	}
}

func TestSpectralTiltComputed(t *testing.T) {
	cfg := DefaultDirectConfig()
	analyzer := NewAnalyzer(cfg)

	feat := analyzer.AnalyzeFrame(sineFrame(150, 0.5, cfg.FrameSize, cfg.SampleRate))
	if feat.Tilt == 0 {
		t.Error("pitched frame must yield a non-zero spectral tilt")
	}
	// Чистый тон: энергия сосредоточена внизу, спектр спадает к высоким частотам
	if feat.Tilt > 0 {
		t.Errorf("tilt = %.1f, want negative slope for a low-frequency tone", feat.Tilt)
	}
}
