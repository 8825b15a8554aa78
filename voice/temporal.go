package voice

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// TemporalPattern запись истории характеристик с дисперсиями по
// контекстному окну из последних N записей
type TemporalPattern struct {
	Timestamp       time.Time            `json:"timestamp"`
	Characteristics VoiceCharacteristics `json:"characteristics"`
	PitchVariance   float64              `json:"pitchVariance"`
	VolumeVariance  float64              `json:"volumeVariance"`
	Stress          bool                 `json:"stress"`
}

// FlagReason причина попадания сегмента в список низкой уверенности
type FlagReason string

const (
	FlagLowVolume     FlagReason = "low volume"
	FlagPoorQuality   FlagReason = "poor quality"
	FlagUnusualPitch  FlagReason = "unusual pitch"
	FlagUnstablePitch FlagReason = "unstable pitch"
	FlagLowConfidence FlagReason = "low confidence"
)

// FlaggedSegment кандидат на повторный анализ с диагностической причиной
type FlaggedSegment struct {
	Timestamp  time.Time  `json:"timestamp"`
	Confidence float64    `json:"confidence"`
	Reason     FlagReason `json:"reason"`
}

// Tracker скользящая статистика по характеристикам голоса.
// Диагностический компонент: помечает стресс-подобные всплески и собирает
// моменты низкой уверенности, но не влияет на основной конвейер.
type Tracker struct {
	cfg     Config
	history []TemporalPattern
	flagged []FlaggedSegment
}

// NewTracker создаёт трекер временных паттернов
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Observe добавляет характеристики в историю и возвращает запись
// с дисперсиями по контекстному окну
func (t *Tracker) Observe(vc VoiceCharacteristics) TemporalPattern {
	pitches, volumes := t.contextWindow()
	pitches = append(pitches, vc.Pitch)
	volumes = append(volumes, vc.Volume)

	entry := TemporalPattern{
		Timestamp:       vc.Timestamp,
		Characteristics: vc,
	}
	if len(pitches) >= 2 {
		entry.PitchVariance = stat.Variance(pitches, nil)
		entry.VolumeVariance = stat.Variance(volumes, nil)
		// Совместный порог на обе дисперсии: всплеск и питча, и громкости
		entry.Stress = entry.PitchVariance >= t.cfg.PitchVarianceCutoff &&
			entry.VolumeVariance >= t.cfg.VolumeVarianceCutoff
	}

	t.history = append(t.history, entry)
	if len(t.history) > t.cfg.HistoryCap {
		// Вытесняем старые записи, память ограничена при долгих сессиях
		t.history = t.history[len(t.history)-t.cfg.HistoryCap:]
	}

	if vc.Confidence < t.cfg.LowConfidence {
		t.flagged = append(t.flagged, FlaggedSegment{
			Timestamp:  vc.Timestamp,
			Confidence: vc.Confidence,
			Reason:     t.diagnose(vc, entry),
		})
		if len(t.flagged) > t.cfg.HistoryCap {
			t.flagged = t.flagged[len(t.flagged)-t.cfg.HistoryCap:]
		}
	}

	return entry
}

// diagnose человекочитаемая причина низкой уверенности по простым
// пороговым проверкам того же окна
func (t *Tracker) diagnose(vc VoiceCharacteristics, entry TemporalPattern) FlagReason {
	switch {
	case vc.Volume < t.cfg.ActivityFloor:
		return FlagLowVolume
	case vc.Quality == QualityPoor:
		return FlagPoorQuality
	case vc.Pitch > 0 && !t.cfg.MaleBand.Contains(vc.Pitch) && !t.cfg.FemaleBand.Contains(vc.Pitch):
		return FlagUnusualPitch
	case entry.PitchVariance >= t.cfg.PitchVarianceCutoff:
		return FlagUnstablePitch
	default:
		return FlagLowConfidence
	}
}

// contextWindow питчи и громкости последних N записей истории
func (t *Tracker) contextWindow() ([]float64, []float64) {
	start := len(t.history) - t.cfg.ContextWindow
	if start < 0 {
		start = 0
	}
	win := t.history[start:]
	pitches := make([]float64, 0, len(win)+1)
	volumes := make([]float64, 0, len(win)+1)
	for _, e := range win {
		pitches = append(pitches, e.Characteristics.Pitch)
		volumes = append(volumes, e.Characteristics.Volume)
	}
	return pitches, volumes
}

// History копия текущей истории (диагностика)
func (t *Tracker) History() []TemporalPattern {
	out := make([]TemporalPattern, len(t.history))
	copy(out, t.history)
	return out
}

// Flagged список сегментов для повторного анализа
func (t *Tracker) Flagged() []FlaggedSegment {
	out := make([]FlaggedSegment, len(t.flagged))
	copy(out, t.flagged)
	return out
}
