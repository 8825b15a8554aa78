package voice

import (
	"fmt"
	"log"
	"math"
	"time"
)

// SpeakerProfile адаптивная акустическая сигнатура одного спикера.
// Регистр профиля не меняется после создания: для голоса другого
// регистра создаётся отдельный профиль.
type SpeakerProfile struct {
	ID       string        `json:"id"`
	Register RegisterClass `json:"register"`
	AvgPitch float64       `json:"avgPitch"` // сглаженное среднее, Hz
	PitchMin float64       `json:"pitchMin"` // адаптивный диапазон
	PitchMax float64       `json:"pitchMax"`
	AvgTilt  float64       `json:"avgTilt"` // сглаженный спектральный наклон
	Quality  QualityTier   `json:"quality"`
	Samples  int           `json:"samples"`
	LastSeen time.Time     `json:"lastSeen"`
}

// Observation голосовой кадр для разрешения идентичности
type Observation struct {
	Pitch    float64
	Tilt     float64 // 0 = наклон не вычислялся
	Register RegisterClass
	Quality  QualityTier
	Time     time.Time
}

// Registry онлайн-кластеризация спикеров: жадный однопроходный алгоритм
// без глобального оптимума. Сглаживание среднего и адаптивный диапазон —
// два регулятора компромисса между дрейфом питча одного спикера и
// слипанием двух разных спикеров. Живёт в рамках одной сессии и
// уничтожается вместе с ней.
type Registry struct {
	cfg      Config
	profiles []*SpeakerProfile
	counters map[RegisterClass]int
}

// NewRegistry создаёт пустой реестр профилей
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		counters: make(map[RegisterClass]int),
	}
}

// Resolve сопоставляет голосовой кадр профилю спикера, создавая новый
// профиль если совпадения нет. Возвращает идентификатор спикера.
func (r *Registry) Resolve(obs Observation) string {
	if obs.Pitch <= 0 {
		return SpeakerSilence
	}

	for _, p := range r.profiles {
		if r.matches(p, obs) {
			r.update(p, obs)
			return p.ID
		}
	}

	p := r.create(obs)
	return p.ID
}

// matches проверяет совпадение кадра с профилем: тот же регистр И
// (питч в допуске от сглаженного среднего ИЛИ в адаптивном диапазоне
// с люфтом). Спектральный наклон — вето для устоявшихся профилей.
func (r *Registry) matches(p *SpeakerProfile, obs Observation) bool {
	if p.Register != obs.Register {
		return false
	}

	inDelta := math.Abs(obs.Pitch-p.AvgPitch) <= r.cfg.MatchDelta
	inRange := obs.Pitch >= p.PitchMin-r.cfg.RangeSlack &&
		obs.Pitch <= p.PitchMax+r.cfg.RangeSlack
	if !inDelta && !inRange {
		return false
	}

	// Два спикера одного регистра с близким питчем — известный трудный
	// случай; наклон спектра отсекает часть ложных совпадений
	if obs.Tilt != 0 && p.Samples >= r.cfg.TiltMinSamples && p.AvgTilt != 0 {
		if math.Abs(obs.Tilt-p.AvgTilt) > r.cfg.TiltGate {
			return false
		}
	}
	return true
}

// update обновляет профиль совпавшим кадром. Экспоненциальное сглаживание
// не даёт одиночному выбросу сдвинуть среднее; диапазон только расширяется.
func (r *Registry) update(p *SpeakerProfile, obs Observation) {
	p.AvgPitch = Smooth(p.AvgPitch, obs.Pitch, r.cfg.PitchSmoothing)
	if obs.Pitch < p.PitchMin {
		p.PitchMin = obs.Pitch
	}
	if obs.Pitch > p.PitchMax {
		p.PitchMax = obs.Pitch
	}
	if obs.Tilt != 0 {
		if p.AvgTilt == 0 {
			p.AvgTilt = obs.Tilt
		} else {
			p.AvgTilt = Smooth(p.AvgTilt, obs.Tilt, r.cfg.PitchSmoothing)
		}
	}
	if obs.Quality != "" {
		p.Quality = obs.Quality
	}
	p.Samples++
	p.LastSeen = obs.Time
}

// create заводит новый профиль с диапазоном вокруг первого сэмпла
func (r *Registry) create(obs Observation) *SpeakerProfile {
	r.counters[obs.Register]++
	p := &SpeakerProfile{
		ID:       fmt.Sprintf("%s-%d", obs.Register, r.counters[obs.Register]),
		Register: obs.Register,
		AvgPitch: obs.Pitch,
		PitchMin: obs.Pitch - r.cfg.InitialRangePad,
		PitchMax: obs.Pitch + r.cfg.InitialRangePad,
		AvgTilt:  obs.Tilt,
		Quality:  obs.Quality,
		Samples:  1,
		LastSeen: obs.Time,
	}
	r.profiles = append(r.profiles, p)
	log.Printf("[Registry] new speaker profile %s (pitch=%.1f Hz, register=%s)",
		p.ID, obs.Pitch, obs.Register)
	return p
}

// Profiles возвращает копию всех профилей (для статистики и UI)
func (r *Registry) Profiles() []SpeakerProfile {
	out := make([]SpeakerProfile, len(r.profiles))
	for i, p := range r.profiles {
		out[i] = *p
	}
	return out
}

// Len количество обнаруженных спикеров
func (r *Registry) Len() int {
	return len(r.profiles)
}
