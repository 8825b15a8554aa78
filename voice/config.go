package voice

import "time"

// CaptureMode режим захвата аудио. Прямой микрофон и переозвученный
// через динамик сигнал имеют разный уровень шума, поэтому пороги
// конвейера параметризуются режимом.
type CaptureMode string

const (
	// CaptureDirect прямая запись с микрофона
	CaptureDirect CaptureMode = "direct"
	// CaptureRelayed деградированный сигнал (переозвучка через динамик)
	CaptureRelayed CaptureMode = "relayed"
)

// PitchBand частотная полоса одного регистра голоса
type PitchBand struct {
	Low  float64 // Hz
	High float64 // Hz
}

// Contains проверяет попадание питча в полосу
func (b PitchBand) Contains(pitch float64) bool {
	return pitch >= b.Low && pitch <= b.High
}

// Config консолидирует все эвристические пороги конвейера для одного
// режима захвата. Конструируется один раз и передаётся во все компоненты,
// чтобы настройки не дублировались магическими числами по коду.
type Config struct {
	Mode       CaptureMode
	SampleRate int
	FrameSize  int // размер окна анализа в сэмплах

	// Извлечение признаков (анализатор кадров)
	MinPitch       float64 // Hz, нижняя граница правдоподобного питча
	MaxPitch       float64 // Hz, верхняя граница
	MinCorrelation float64 // минимальный score автокорреляции
	MaxCorrSamples int     // ограничение числа коррелируемых сэмплов
	ActivityFloor  float64 // порог громкости [0,100] для голосовой активности

	// Классификатор регистра
	MaleBand        PitchBand // полоса мужского регистра
	FemaleBand      PitchBand // полоса женского регистра, перекрывается с мужской
	DeepMargin      float64   // Hz, глубина "уверенной" зоны за границей перекрытия
	MaxConfidence   float64   // потолок уверенности классификации
	ConfidenceScale float64   // множитель уверенности (ниже для relayed)

	// Оценка качества
	ClarityFloor float64 // амплитудный порог для оценки SNR

	// Реестр профилей спикеров
	MatchDelta      float64 // Hz, допуск совпадения со сглаженным средним
	RangeSlack      float64 // Hz, люфт адаптивного диапазона профиля
	InitialRangePad float64 // Hz, начальный диапазон нового профиля
	PitchSmoothing  float64 // вес нового сэмпла при сглаживании (0.15)
	TiltGate        float64 // dB, максимум расхождения спектрального наклона
	TiltMinSamples  int     // сколько сэмплов профиля нужно прежде чем наклон вето

	// Трекер временных паттернов
	ContextWindow        int     // размер контекстного окна (последние N)
	HistoryCap           int     // потолок истории (старые записи вытесняются)
	PitchVarianceCutoff  float64 // Hz^2
	VolumeVarianceCutoff float64
	LowConfidence        float64 // порог сбора сегментов на повторный анализ

	// Движок диаризации
	TurnSilence        time.Duration // пауза, после которой вероятна смена роли
	VoiceMatchTrust    float64       // score, при котором голосу верим безусловно
	SignatureSmoothing float64       // сглаживание вокальных сигнатур ролей
}

// DefaultDirectConfig пороги для прямой записи с микрофона
func DefaultDirectConfig() Config {
	return Config{
		Mode:       CaptureDirect,
		SampleRate: 16000,
		FrameSize:  4096,

		MinPitch:       50,
		MaxPitch:       800,
		MinCorrelation: 0.1,
		MaxCorrSamples: 4000,
		ActivityFloor:  2.0,

		MaleBand:        PitchBand{Low: 85, High: 180},
		FemaleBand:      PitchBand{Low: 165, High: 255},
		DeepMargin:      10,
		MaxConfidence:   0.95,
		ConfidenceScale: 1.0,

		ClarityFloor: 0.02,

		MatchDelta:      25,
		RangeSlack:      10,
		InitialRangePad: 15,
		PitchSmoothing:  0.15,
		TiltGate:        15,
		TiltMinSamples:  10,

		ContextWindow:        5,
		HistoryCap:           2000,
		PitchVarianceCutoff:  900, // std ~30 Hz
		VolumeVarianceCutoff: 400, // std ~20
		LowConfidence:        0.72,

		TurnSilence:        2 * time.Second,
		VoiceMatchTrust:    0.7,
		SignatureSmoothing: 0.15,
	}
}

// DefaultRelayedConfig пороги для деградированного захвата: ниже порог
// активности, шире полосы регистров, ниже потолок уверенности.
func DefaultRelayedConfig() Config {
	cfg := DefaultDirectConfig()
	cfg.Mode = CaptureRelayed
	cfg.ActivityFloor = 0.8
	cfg.MaleBand = PitchBand{Low: 80, High: 185}
	cfg.FemaleBand = PitchBand{Low: 160, High: 265}
	cfg.ConfidenceScale = 0.9
	cfg.ClarityFloor = 0.012
	cfg.MatchDelta = 30
	cfg.LowConfidence = 0.65
	return cfg
}

// ConfigForMode возвращает конфигурацию по режиму захвата
func ConfigForMode(mode CaptureMode) Config {
	if mode == CaptureRelayed {
		return DefaultRelayedConfig()
	}
	return DefaultDirectConfig()
}

// overlapZone возвращает зону перекрытия полос регистров
func (c Config) overlapZone() (low, high float64) {
	return c.FemaleBand.Low, c.MaleBand.High
}
