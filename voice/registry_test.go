package voice

import (
	"testing"
	"time"
)

func obsAt(pitch float64, register RegisterClass, ts time.Time) Observation {
	return Observation{
		Pitch:    pitch,
		Register: register,
		Quality:  QualityGood,
		Time:     ts,
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := NewRegistry(DefaultDirectConfig())
	now := time.Now()

	first := r.Resolve(obsAt(120, RegisterMale, now))
	second := r.Resolve(obsAt(120, RegisterMale, now.Add(time.Second)))

	if first != second {
		t.Errorf("same pitch and register resolved to %s and %s", first, second)
	}
	if r.Len() != 1 {
		t.Errorf("registry has %d profiles, want 1", r.Len())
	}
}

func TestResolveSilence(t *testing.T) {
	r := NewRegistry(DefaultDirectConfig())
	if id := r.Resolve(obsAt(0, RegisterUnknown, time.Now())); id != SpeakerSilence {
		t.Errorf("zero pitch resolved to %s, want %s", id, SpeakerSilence)
	}
	if r.Len() != 0 {
		t.Error("silence must not create a profile")
	}
}

// Медленный дрейф питча одного спикера не должен дробить профиль
func TestDriftTolerance(t *testing.T) {
	r := NewRegistry(DefaultDirectConfig())
	now := time.Now()

	id := r.Resolve(obsAt(100, RegisterMale, now))
	for pitch := 100.5; pitch <= 140; pitch += 0.5 {
		now = now.Add(250 * time.Millisecond)
		got := r.Resolve(obsAt(pitch, RegisterMale, now))
		if got != id {
			t.Fatalf("drift to %.1f Hz fragmented profile: %s -> %s", pitch, id, got)
		}
	}
	if r.Len() != 1 {
		t.Errorf("registry has %d profiles after drift, want 1", r.Len())
	}

	profiles := r.Profiles()
	if profiles[0].PitchMax < 139 {
		t.Errorf("adaptive range did not widen: max=%.1f", profiles[0].PitchMax)
	}
}

// Резкий скачок в другой регистр обязан дать новый профиль
func TestRegisterJumpDiscrimination(t *testing.T) {
	r := NewRegistry(DefaultDirectConfig())
	now := time.Now()

	male := r.Resolve(obsAt(110, RegisterMale, now))
	female := r.Resolve(obsAt(250, RegisterFemale, now.Add(time.Second)))

	if male == female {
		t.Error("different registers resolved to the same profile")
	}
	if r.Len() != 2 {
		t.Errorf("registry has %d profiles, want 2", r.Len())
	}
}

// Скачок внутри регистра за пределы допуска и диапазона — новый профиль
func TestSameRegisterDistantPitch(t *testing.T) {
	r := NewRegistry(DefaultDirectConfig())
	now := time.Now()

	a := r.Resolve(obsAt(100, RegisterMale, now))
	b := r.Resolve(obsAt(160, RegisterMale, now.Add(time.Second)))

	if a == b {
		t.Error("distant same-register pitches resolved to one profile")
	}
}

// Профиль не меняет регистр после создания
func TestProfileRegisterImmutable(t *testing.T) {
	r := NewRegistry(DefaultDirectConfig())
	now := time.Now()

	r.Resolve(obsAt(170, RegisterMale, now))
	r.Resolve(obsAt(170, RegisterFemale, now.Add(time.Second)))

	for _, p := range r.Profiles() {
		switch p.ID {
		case "male-1":
			if p.Register != RegisterMale {
				t.Errorf("male-1 register mutated to %s", p.Register)
			}
		case "female-1":
			if p.Register != RegisterFemale {
				t.Errorf("female-1 register mutated to %s", p.Register)
			}
		}
	}
	if r.Len() != 2 {
		t.Errorf("registry has %d profiles, want 2 (one per register)", r.Len())
	}
}

// Сглаживание не даёт одиночному выбросу сдвинуть среднее
func TestSmoothingResistsOutlier(t *testing.T) {
	cfg := DefaultDirectConfig()
	r := NewRegistry(cfg)
	now := time.Now()

	for i := 0; i < 20; i++ {
		r.Resolve(obsAt(120, RegisterMale, now.Add(time.Duration(i)*time.Second)))
	}
	// Выброс на границе допуска
	r.Resolve(obsAt(120+cfg.MatchDelta, RegisterMale, now.Add(21*time.Second)))

	avg := r.Profiles()[0].AvgPitch
	if avg > 120+cfg.MatchDelta*cfg.PitchSmoothing+0.1 {
		t.Errorf("single outlier moved average too far: %.2f", avg)
	}
}

// Одинаковая последовательность кадров в свежих реестрах даёт
// идентичные назначения (детерминизм, без скрытого глобального состояния)
func TestRegistryDeterminism(t *testing.T) {
	sequence := []struct {
		pitch    float64
		register RegisterClass
	}{
		{110, RegisterMale}, {115, RegisterMale}, {230, RegisterFemale},
		{108, RegisterMale}, {226, RegisterFemale}, {160, RegisterMale},
		{112, RegisterMale}, {240, RegisterFemale}, {158, RegisterMale},
	}

	run := func() []string {
		r := NewRegistry(DefaultDirectConfig())
		now := time.Unix(0, 0)
		out := make([]string, len(sequence))
		for i, s := range sequence {
			out[i] = r.Resolve(obsAt(s.pitch, s.register, now.Add(time.Duration(i)*time.Second)))
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("assignment %d differs between runs: %s vs %s", i, a[i], b[i])
		}
	}
}
