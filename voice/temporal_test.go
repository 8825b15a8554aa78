package voice

import (
	"testing"
	"time"
)

func tickVC(pitch, volume, conf float64, ts time.Time) VoiceCharacteristics {
	return VoiceCharacteristics{
		Register:   RegisterMale,
		Pitch:      pitch,
		Confidence: conf,
		Volume:     volume,
		Quality:    QualityGood,
		Speaker:    "male-1",
		Timestamp:  ts,
	}
}

func TestStableVoiceNoStress(t *testing.T) {
	tracker := NewTracker(DefaultDirectConfig())
	now := time.Now()

	for i := 0; i < 10; i++ {
		entry := tracker.Observe(tickVC(120+float64(i%3), 30, 0.9, now.Add(time.Duration(i)*time.Second)))
		if entry.Stress {
			t.Fatalf("tick %d: stable voice flagged as stress (pitchVar=%.1f, volVar=%.1f)",
				i, entry.PitchVariance, entry.VolumeVariance)
		}
	}
	if flagged := tracker.Flagged(); len(flagged) != 0 {
		t.Errorf("high-confidence ticks produced %d flags", len(flagged))
	}
}

// Стресс требует всплеска обеих дисперсий одновременно
func TestStressNeedsBothVariances(t *testing.T) {
	cfg := DefaultDirectConfig()
	now := time.Now()

	// Скачет только питч: громкость ровная, стресса нет
	tracker := NewTracker(cfg)
	sawStress := false
	for i := 0; i < 10; i++ {
		pitch := 100.0
		if i%2 == 1 {
			pitch = 200
		}
		if tracker.Observe(tickVC(pitch, 30, 0.9, now.Add(time.Duration(i)*time.Second))).Stress {
			sawStress = true
		}
	}
	if sawStress {
		t.Error("pitch swings alone must not trigger stress")
	}

	// Скачут и питч, и громкость: стресс
	tracker = NewTracker(cfg)
	sawStress = false
	for i := 0; i < 10; i++ {
		pitch, volume := 100.0, 10.0
		if i%2 == 1 {
			pitch, volume = 200, 60
		}
		if tracker.Observe(tickVC(pitch, volume, 0.9, now.Add(time.Duration(i)*time.Second))).Stress {
			sawStress = true
		}
	}
	if !sawStress {
		t.Error("joint pitch and volume swings must trigger stress")
	}
}

func TestLowConfidenceFlagging(t *testing.T) {
	cfg := DefaultDirectConfig()
	tracker := NewTracker(cfg)
	now := time.Now()

	tracker.Observe(tickVC(120, 30, 0.9, now))
	tracker.Observe(tickVC(120, 30, cfg.LowConfidence-0.05, now.Add(time.Second)))
	tracker.Observe(tickVC(120, 30, cfg.LowConfidence, now.Add(2*time.Second)))

	flagged := tracker.Flagged()
	if len(flagged) != 1 {
		t.Fatalf("got %d flags, want 1 (only below-threshold tick)", len(flagged))
	}
	if flagged[0].Confidence != cfg.LowConfidence-0.05 {
		t.Errorf("flagged confidence = %.2f, want %.2f", flagged[0].Confidence, cfg.LowConfidence-0.05)
	}
}

func TestFlagReasons(t *testing.T) {
	cfg := DefaultDirectConfig()
	now := time.Now()

	cases := []struct {
		name string
		vc   VoiceCharacteristics
		want FlagReason
	}{
		{
			name: "quiet",
			vc:   VoiceCharacteristics{Pitch: 120, Volume: 0.5, Confidence: 0.3, Quality: QualityGood, Timestamp: now},
			want: FlagLowVolume,
		},
		{
			name: "poor quality",
			vc:   VoiceCharacteristics{Pitch: 120, Volume: 20, Confidence: 0.5, Quality: QualityPoor, Timestamp: now},
			want: FlagPoorQuality,
		},
		{
			name: "pitch outside both bands",
			vc:   VoiceCharacteristics{Pitch: 500, Volume: 20, Confidence: 0.5, Quality: QualityGood, Timestamp: now},
			want: FlagUnusualPitch,
		},
		{
			name: "no dominant cause",
			vc:   VoiceCharacteristics{Pitch: 120, Volume: 20, Confidence: 0.6, Quality: QualityGood, Timestamp: now},
			want: FlagLowConfidence,
		},
	}

	for _, tc := range cases {
		tracker := NewTracker(cfg)
		tracker.Observe(tc.vc)
		flagged := tracker.Flagged()
		if len(flagged) != 1 {
			t.Errorf("%s: got %d flags, want 1", tc.name, len(flagged))
			continue
		}
		if flagged[0].Reason != tc.want {
			t.Errorf("%s: reason = %q, want %q", tc.name, flagged[0].Reason, tc.want)
		}
	}
}

// Сессия из одной тишины: каждый тик помечается как тихий
func TestSilentSessionFlagsEveryTick(t *testing.T) {
	tracker := NewTracker(DefaultDirectConfig())
	now := time.Now()

	const n = 8
	for i := 0; i < n; i++ {
		tracker.Observe(Silent(now.Add(time.Duration(i) * time.Second)))
	}

	flagged := tracker.Flagged()
	if len(flagged) != n {
		t.Fatalf("got %d flags for %d silent ticks", len(flagged), n)
	}
	for _, f := range flagged {
		if f.Reason != FlagLowVolume {
			t.Errorf("silent tick reason = %q, want %q", f.Reason, FlagLowVolume)
		}
	}
}

func TestHistoryCap(t *testing.T) {
	cfg := DefaultDirectConfig()
	cfg.HistoryCap = 10
	tracker := NewTracker(cfg)
	now := time.Now()

	for i := 0; i < 25; i++ {
		tracker.Observe(tickVC(120, 30, 0.9, now.Add(time.Duration(i)*time.Second)))
	}

	history := tracker.History()
	if len(history) != cfg.HistoryCap {
		t.Fatalf("history has %d entries, cap is %d", len(history), cfg.HistoryCap)
	}
	// Остаются самые свежие записи
	if !history[len(history)-1].Timestamp.Equal(now.Add(24 * time.Second)) {
		t.Error("history must keep the newest entries after eviction")
	}
}
