// Package voice реализует акустический анализ аудио кадров в реальном времени:
// определение питча и громкости, детекцию голосовой активности, классификацию
// регистра голоса и онлайн-кластеризацию спикеров в рамках одной сессии.
package voice

import "time"

// RegisterClass класс регистра голоса (первичный ключ кластеризации,
// не утверждение о поле говорящего)
type RegisterClass string

const (
	RegisterMale    RegisterClass = "male"
	RegisterFemale  RegisterClass = "female"
	RegisterUnknown RegisterClass = "unknown"
)

// QualityTier дискретная оценка качества аудио
type QualityTier string

const (
	QualityExcellent QualityTier = "excellent"
	QualityGood      QualityTier = "good"
	QualityFair      QualityTier = "fair"
	QualityPoor      QualityTier = "poor"
)

// SpeakerSilence сентинел-идентификатор для кадров без голоса
const SpeakerSilence = "silence"

// VoiceCharacteristics результат одного такта анализа.
// Значение живёт один такт; дольше хранится только копия в истории.
type VoiceCharacteristics struct {
	Register   RegisterClass `json:"register"`
	Pitch      float64       `json:"pitch"`      // Hz, 0 = тишина
	Confidence float64       `json:"confidence"` // [0, 1]
	Volume     float64       `json:"volume"`     // [0, 100]
	Quality    QualityTier   `json:"quality"`
	Speaker    string        `json:"speaker"` // идентификатор профиля или SpeakerSilence
	Tilt       float64       `json:"tilt"`    // спектральный наклон, dB/декаду
	Timestamp  time.Time     `json:"timestamp"`
}

// Silent возвращает характеристики для кадра без голоса
func Silent(now time.Time) VoiceCharacteristics {
	return VoiceCharacteristics{
		Register:  RegisterUnknown,
		Quality:   QualityPoor,
		Speaker:   SpeakerSilence,
		Timestamp: now,
	}
}

// Smooth экспоненциальное сглаживание: new = old*(1-w) + sample*w.
// Единая утилита для усреднения питча в профилях и вокальных сигнатурах,
// чтобы коэффициенты не расходились по компонентам.
func Smooth(old, sample, w float64) float64 {
	return old*(1-w) + sample*w
}
