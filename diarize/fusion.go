package diarize

import (
	"log"
	"math"
	"time"

	"medscribe/voice"
)

// signature скользящая вокальная сигнатура роли: ожидаемый питч,
// регистр и качество по последним приписанным сегментам
type signature struct {
	pitch    float64
	register voice.RegisterClass
	quality  voice.QualityTier
	samples  int
}

// Engine движок диаризации: два состояния роли, текущая роль служит
// смещением при разрешении неоднозначности. Потребляет финализированные
// сегменты текста с приблизительно выровненными характеристиками голоса
// и ведёт append-only историю сегментов.
type Engine struct {
	cfg         voice.Config
	current     Role
	signatures  map[Role]*signature
	segments    []Segment
	lastAt      time.Time
	lastShiftAt time.Time
}

// NewEngine создаёт движок; разговор по умолчанию открывает врач
func NewEngine(cfg voice.Config) *Engine {
	return &Engine{
		cfg:     cfg,
		current: RoleClinician,
		signatures: map[Role]*signature{
			RoleClinician: {},
			RolePatient:   {},
		},
	}
}

// Ingest принимает финализированный сегмент текста с характеристиками
// голоса (nil если на момент сегмента голос не анализировался) и
// возвращает диаризованный сегмент. Решение комбинирует четыре сигнала:
// акустическое совпадение, паузу, лексику и чередование реплик.
func (e *Engine) Ingest(text string, vc *voice.VoiceCharacteristics, ts time.Time) Segment {
	matchCur := e.voiceMatch(e.signatures[e.current], vc)
	matchOther := e.voiceMatch(e.signatures[other(e.current)], vc)

	bestRole, bestScore := e.current, matchCur
	if matchOther > matchCur {
		bestRole, bestScore = other(e.current), matchOther
	}

	silence := !e.lastAt.IsZero() && ts.Sub(e.lastAt) > e.cfg.TurnSilence
	lexRole, lexScore := lexicalSignal(text)

	var role Role
	var conf float64

	switch {
	case bestScore > e.cfg.VoiceMatchTrust:
		// Голос совпал уверенно — верим ему безусловно
		role = bestRole
		conf = bestScore
	case silence:
		// Долгая пауза — вероятная смена говорящего
		role = other(e.current)
		conf = 0.65 + e.voiceMatch(e.signatures[role], vc)*0.2
		if lexRole == role {
			conf += lexScore * 0.15
		}
	default:
		// Продолжение текущей реплики
		role = e.current
		conf = 0.55 + matchCur*0.25 + e.flowScore()*0.2
	}

	if conf > 0.99 {
		conf = 0.99
	}

	seg := Segment{
		Role:       role,
		Text:       text,
		Confidence: conf,
		Timestamp:  ts,
	}
	if vc != nil {
		copied := *vc
		seg.Voice = &copied
		e.updateSignature(role, vc)
	}

	if role != e.current {
		log.Printf("[Diarize] role shift %s -> %s (confidence=%.2f)", e.current, role, conf)
		e.lastShiftAt = ts
	}
	e.segments = append(e.segments, seg)
	e.current = role
	e.lastAt = ts

	return seg
}

// voiceMatch score совпадения характеристик с сигнатурой роли:
// взвешенное среднее близости питча, равенства регистра и качества,
// масштабированное уверенностью самих характеристик
func (e *Engine) voiceMatch(sig *signature, vc *voice.VoiceCharacteristics) float64 {
	if vc == nil || vc.Confidence <= 0.5 || sig == nil || sig.samples == 0 {
		return 0
	}

	closeness := 1 - math.Abs(vc.Pitch-sig.pitch)/80
	if closeness < 0 {
		closeness = 0
	}
	score := closeness * 0.5
	if vc.Register == sig.register {
		score += 0.3
	}
	if vc.Quality == sig.quality {
		score += 0.2
	}
	return score * vc.Confidence
}

// flowScore смещение к продолжению текущей роли: монолог (низкое
// чередование последних 5 сегментов) усиливает продолжение
func (e *Engine) flowScore() float64 {
	start := len(e.segments) - 5
	if start < 0 {
		start = 0
	}
	win := e.segments[start:]
	if len(win) < 2 {
		return 1
	}
	shifts := 0
	for i := 1; i < len(win); i++ {
		if win[i].Role != win[i-1].Role {
			shifts++
		}
	}
	alternation := float64(shifts) / float64(len(win)-1)
	return 1 - alternation
}

// updateSignature сглаживает сигнатуру роли новыми характеристиками
func (e *Engine) updateSignature(role Role, vc *voice.VoiceCharacteristics) {
	if vc.Confidence <= 0 {
		return
	}
	sig := e.signatures[role]
	if sig.samples == 0 {
		sig.pitch = vc.Pitch
	} else {
		sig.pitch = voice.Smooth(sig.pitch, vc.Pitch, e.cfg.SignatureSmoothing)
	}
	sig.register = vc.Register
	sig.quality = vc.Quality
	sig.samples++
}

// CurrentRole текущая роль (смещение следующего решения)
func (e *Engine) CurrentRole() Role {
	return e.current
}

// Segments копия упорядоченной истории сегментов
func (e *Engine) Segments() []Segment {
	out := make([]Segment, len(e.segments))
	copy(out, e.segments)
	return out
}
