package voice

import "testing"

func TestClassifyZeroPitch(t *testing.T) {
	c := NewClassifier(DefaultDirectConfig())
	register, conf := c.Classify(0)
	if register != RegisterUnknown || conf != 0 {
		t.Errorf("zero pitch: got %s/%.2f, want unknown/0", register, conf)
	}
}

func TestClassifyDeepInBand(t *testing.T) {
	c := NewClassifier(DefaultDirectConfig())

	register, conf := c.Classify(120)
	if register != RegisterMale {
		t.Errorf("120 Hz: got %s, want male", register)
	}
	if conf != 0.95 {
		t.Errorf("120 Hz: conf = %.2f, want 0.95 (deep in band)", conf)
	}

	register, conf = c.Classify(220)
	if register != RegisterFemale {
		t.Errorf("220 Hz: got %s, want female", register)
	}
	if conf != 0.95 {
		t.Errorf("220 Hz: conf = %.2f, want 0.95", conf)
	}
}

func TestClassifyOverlapZone(t *testing.T) {
	cfg := DefaultDirectConfig()
	c := NewClassifier(cfg)

	zoneLow, zoneHigh := cfg.FemaleBand.Low, cfg.MaleBand.High
	mid := (zoneLow + zoneHigh) / 2

	// Внутри зоны классификация к ближней стороне с пониженной уверенностью
	register, conf := c.Classify(mid - 3)
	if register != RegisterMale {
		t.Errorf("%.1f Hz: got %s, want male (nearer side)", mid-3, register)
	}
	if conf < 0.65 || conf > 0.85 {
		t.Errorf("overlap zone conf = %.2f, want within [0.65, 0.85]", conf)
	}

	register, conf = c.Classify(mid + 3)
	if register != RegisterFemale {
		t.Errorf("%.1f Hz: got %s, want female (nearer side)", mid+3, register)
	}
	if conf < 0.65 || conf > 0.85 {
		t.Errorf("overlap zone conf = %.2f, want within [0.65, 0.85]", conf)
	}
}

// Уверенность не должна убывать при удалении питча от зоны перекрытия
func TestConfidenceMonotonicity(t *testing.T) {
	cfg := DefaultDirectConfig()
	c := NewClassifier(cfg)

	mid := (cfg.FemaleBand.Low + cfg.MaleBand.High) / 2

	prev := -1.0
	for pitch := mid; pitch >= 90; pitch -= 0.5 {
		_, conf := c.Classify(pitch)
		if prev >= 0 && conf < prev-1e-9 {
			t.Fatalf("confidence inversion at %.1f Hz: %.4f < %.4f", pitch, conf, prev)
		}
		prev = conf
	}

	prev = -1.0
	for pitch := mid; pitch <= 250; pitch += 0.5 {
		_, conf := c.Classify(pitch)
		if prev >= 0 && conf < prev-1e-9 {
			t.Fatalf("confidence inversion at %.1f Hz: %.4f < %.4f", pitch, conf, prev)
		}
		prev = conf
	}
}

func TestRelayedConfidenceScale(t *testing.T) {
	direct := NewClassifier(DefaultDirectConfig())
	relayed := NewClassifier(DefaultRelayedConfig())

	_, dConf := direct.Classify(120)
	_, rConf := relayed.Classify(120)
	if rConf >= dConf {
		t.Errorf("relayed conf %.2f must be below direct conf %.2f", rConf, dConf)
	}
	want := dConf * 0.9
	if rConf < want-0.01 || rConf > want+0.01 {
		t.Errorf("relayed conf = %.3f, want ~%.3f (x0.9)", rConf, want)
	}
}

func TestQualityTiers(t *testing.T) {
	cfg := DefaultDirectConfig()
	c := NewClassifier(cfg)

	// Громкая стабильная синусоида: хорошее или отличное качество
	loud := sineFrame(150, 0.7, cfg.FrameSize, cfg.SampleRate)
	feat := NewAnalyzer(cfg).AnalyzeFrame(loud)
	tier, score := c.AssessQuality(loud, feat.Volume)
	t.Logf("loud stable tone: tier=%s score=%.1f", tier, score)
	if tier == QualityPoor || tier == QualityFair {
		t.Errorf("loud stable tone: tier=%s (score=%.1f), want good or excellent", tier, score)
	}

	// Почти тишина: плохое качество
	quiet := sineFrame(150, 0.003, cfg.FrameSize, cfg.SampleRate)
	tier, score = c.AssessQuality(quiet, 0.2)
	if tier != QualityPoor {
		t.Errorf("near-silence: tier=%s (score=%.1f), want poor", tier, score)
	}
}
