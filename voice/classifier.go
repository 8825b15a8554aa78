package voice

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Classifier эвристическая классификация регистра голоса по питчу
// и оценка качества аудио. Полосы регистров перекрываются: внутри зоны
// перекрытия уверенность снижена и растёт по мере удаления от зоны.
type Classifier struct {
	cfg Config
}

// NewClassifier создаёт классификатор для заданного режима захвата
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify определяет регистр голоса по питчу.
// Возвращает класс и уверенность [0, 1]; нулевой питч даёт unknown/0.
func (c *Classifier) Classify(pitch float64) (RegisterClass, float64) {
	if pitch <= 0 {
		return RegisterUnknown, 0
	}

	zoneLow, zoneHigh := c.cfg.overlapZone()

	var register RegisterClass
	var conf float64

	switch {
	case pitch < zoneLow:
		// Ниже зоны перекрытия: мужской регистр, уверенность растёт
		// с удалением от зоны до потолка
		register = RegisterMale
		conf = c.outsideZoneConfidence(zoneLow - pitch)
	case pitch > zoneHigh:
		register = RegisterFemale
		conf = c.outsideZoneConfidence(pitch - zoneHigh)
	default:
		// Внутри зоны: классифицируем к ближней стороне, уверенность
		// 0.65-0.85 в зависимости от расстояния до середины зоны
		mid := (zoneLow + zoneHigh) / 2
		half := (zoneHigh - zoneLow) / 2
		if half <= 0 {
			half = 1
		}
		var dist float64
		if pitch <= mid {
			register = RegisterMale
			dist = mid - pitch
		} else {
			register = RegisterFemale
			dist = pitch - mid
		}
		conf = 0.65 + 0.20*(dist/half)
	}

	conf *= c.cfg.ConfidenceScale
	limit := c.cfg.MaxConfidence * c.cfg.ConfidenceScale
	if conf > limit {
		conf = limit
	}
	return register, conf
}

// outsideZoneConfidence уверенность вне зоны перекрытия: на границе зоны
// продолжает внутризонную шкалу (0.85), глубже DeepMargin выходит на потолок
func (c *Classifier) outsideZoneConfidence(dist float64) float64 {
	if dist >= c.cfg.DeepMargin {
		return c.cfg.MaxConfidence
	}
	return 0.85 + (c.cfg.MaxConfidence-0.85)*(dist/c.cfg.DeepMargin)
}

// AssessQuality взвешенная оценка качества кадра:
// громкость (0-40), стабильность питча по четырём под-чанкам (0-30)
// и доля энергии над шумовым порогом (0-30). Пороги тиров 80/60/40.
func (c *Classifier) AssessQuality(samples []float32, volume float64) (QualityTier, float64) {
	score := volume / 100 * 40
	score += c.pitchStability(samples) * 30
	score += c.clarity(samples) * 30

	switch {
	case score >= 80:
		return QualityExcellent, score
	case score >= 60:
		return QualityGood, score
	case score >= 40:
		return QualityFair, score
	default:
		return QualityPoor, score
	}
}

// pitchStability 1 - нормированное отклонение питча по четырём четвертям
// кадра; непитчевые четверти исключаются
func (c *Classifier) pitchStability(samples []float32) float64 {
	if len(samples) < 8 {
		return 0
	}

	quarter := len(samples) / 4
	pitches := make([]float64, 0, 4)
	buf := make([]float64, quarter)
	for q := 0; q < 4; q++ {
		chunk := samples[q*quarter : (q+1)*quarter]
		for i, s := range chunk {
			buf[i] = float64(s)
		}
		if p := autocorrPitch(c.cfg, buf); p > 0 {
			pitches = append(pitches, p)
		}
	}
	if len(pitches) < 2 {
		return 0
	}

	mean, std := stat.MeanStdDev(pitches, nil)
	if mean <= 0 {
		return 0
	}
	norm := std / mean
	if norm > 1 {
		norm = 1
	}
	return 1 - norm
}

// clarity доля энергии сэмплов над шумовым порогом (прокси SNR)
func (c *Classifier) clarity(samples []float32) float64 {
	var above, total float64
	for _, s := range samples {
		e := float64(s) * float64(s)
		total += e
		if math.Abs(float64(s)) >= c.cfg.ClarityFloor {
			above += e
		}
	}
	if total == 0 {
		return 0
	}
	return above / total
}
