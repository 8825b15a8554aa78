package session

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"medscribe/diarize"
	"medscribe/voice"
)

// Допустимое расхождение между таймстемпом текстового сегмента и
// последним голосовым кадром: транскрипция приходит вне полосы аудио
// и выравнивание лишь приблизительное.
const segmentAlignTolerance = 3 * time.Second

type textSegment struct {
	text string
	ts   time.Time
}

// Pipeline последовательный конвейер анализа одной сессии. Владеет
// реестром спикеров, трекером и движком диаризации эксклюзивно: все
// обновления выполняет одна горутина в порядке поступления кадров.
// Кадры, не успевающие обрабатываться в реальном времени, отбрасываются,
// очередь не растёт неограниченно.
type Pipeline struct {
	cfg        voice.Config
	analyzer   *voice.Analyzer
	classifier *voice.Classifier
	registry   *voice.Registry
	tracker    *voice.Tracker
	fusion     *diarize.Engine
	gate       *voice.NeuralGate // опционален, nil = только эвристический гейт

	frames   chan []float32
	segments chan textSegment
	done     chan struct{}
	wg       sync.WaitGroup

	paused  atomic.Bool
	dropped atomic.Int64

	// mu защищает компоненты, снапшоты и колбэки от других горутин
	mu           sync.Mutex
	latest       voice.VoiceCharacteristics
	lastActive   *voice.VoiceCharacteristics
	lastActiveAt time.Time

	// Колбэки вызываются из горутины конвейера; подписка через SetCallbacks
	onCharacteristics func(voice.VoiceCharacteristics)
	onSegment         func(diarize.Segment)
}

// NewPipeline создаёт конвейер для одного режима захвата
func NewPipeline(cfg voice.Config, gate *voice.NeuralGate) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		analyzer:   voice.NewAnalyzer(cfg),
		classifier: voice.NewClassifier(cfg),
		registry:   voice.NewRegistry(cfg),
		tracker:    voice.NewTracker(cfg),
		fusion:     diarize.NewEngine(cfg),
		gate:       gate,
		frames:     make(chan []float32, 8),
		segments:   make(chan textSegment, 64),
		done:       make(chan struct{}),
	}
}

// SetCallbacks подписывает получателей выхода конвейера. Запись идёт
// под тем же мьютексом, под которым горутина конвейера читает колбэки,
// поэтому подписываться безопасно и после Start.
func (p *Pipeline) SetCallbacks(onCharacteristics func(voice.VoiceCharacteristics), onSegment func(diarize.Segment)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCharacteristics = onCharacteristics
	p.onSegment = onSegment
}

// Start запускает горутину обработки
func (p *Pipeline) Start() {
	p.wg.Add(1)
	go p.run()
}

func (p *Pipeline) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case samples := <-p.frames:
			p.processFrame(samples)
		case seg := <-p.segments:
			p.processSegment(seg)
		}
	}
}

// PushFrame передаёт кадр в конвейер. Возвращает false если кадр
// отброшен (конвейер занят или на паузе).
func (p *Pipeline) PushFrame(samples []float32) bool {
	if p.paused.Load() {
		return false
	}
	select {
	case p.frames <- samples:
		return true
	default:
		// Не успеваем за реальным временем: кадр отбрасывается
		if n := p.dropped.Add(1); n%100 == 1 {
			log.Printf("[Pipeline] dropping frames, total dropped=%d", n)
		}
		return false
	}
}

// PushSegment передаёт финализированный сегмент текста транскрипции.
// Сегменты приходят асинхронно относительно аудио кадров.
func (p *Pipeline) PushSegment(text string, ts time.Time) {
	select {
	case p.segments <- textSegment{text: text, ts: ts}:
	case <-p.done:
	}
}

// Pause приостанавливает приём кадров, сохраняя профили и историю:
// после Resume установленные идентичности спикеров не забываются
func (p *Pipeline) Pause() {
	p.paused.Store(true)
}

// Resume возобновляет приём кадров
func (p *Pipeline) Resume() {
	p.paused.Store(false)
}

// Paused true если конвейер на паузе
func (p *Pipeline) Paused() bool {
	return p.paused.Load()
}

// Close синхронно останавливает конвейер и освобождает ресурсы.
// После возврата никакая фоновая работа сессию не переживает.
func (p *Pipeline) Close() {
	close(p.done)
	p.wg.Wait()
	if p.gate != nil {
		p.gate.Close()
	}
}

// processFrame один такт анализа: признаки -> классификация ->
// идентичность спикера -> скользящая статистика
func (p *Pipeline) processFrame(samples []float32) {
	feat := p.analyzer.AnalyzeFrame(samples)
	now := time.Now()

	active := feat.VoiceActive
	if active && p.gate != nil && !p.gate.SpeechLikely(samples) {
		// Нейронный гейт отклонил кадр, который энергетический порог пропустил
		active = false
	}

	p.mu.Lock()
	var vc voice.VoiceCharacteristics
	if !active {
		vc = voice.Silent(now)
		vc.Volume = feat.Volume
	} else {
		register, conf := p.classifier.Classify(feat.Pitch)
		quality, _ := p.classifier.AssessQuality(samples, feat.Volume)
		speaker := p.registry.Resolve(voice.Observation{
			Pitch:    feat.Pitch,
			Tilt:     feat.Tilt,
			Register: register,
			Quality:  quality,
			Time:     now,
		})
		vc = voice.VoiceCharacteristics{
			Register:   register,
			Pitch:      feat.Pitch,
			Confidence: conf,
			Volume:     feat.Volume,
			Quality:    quality,
			Speaker:    speaker,
			Tilt:       feat.Tilt,
			Timestamp:  now,
		}
	}

	p.tracker.Observe(vc)
	p.latest = vc
	if active {
		copied := vc
		p.lastActive = &copied
		p.lastActiveAt = now
	}
	cb := p.onCharacteristics
	p.mu.Unlock()

	if cb != nil {
		cb(vc)
	}
}

// processSegment диаризация финализированного сегмента текста с
// последними голосовыми характеристиками, если они достаточно свежие
func (p *Pipeline) processSegment(ts textSegment) {
	p.mu.Lock()
	var vc *voice.VoiceCharacteristics
	if p.lastActive != nil {
		delta := ts.ts.Sub(p.lastActiveAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= segmentAlignTolerance {
			copied := *p.lastActive
			vc = &copied
		}
	}
	seg := p.fusion.Ingest(ts.text, vc, ts.ts)
	cb := p.onSegment
	p.mu.Unlock()

	if cb != nil {
		cb(seg)
	}
}

// Latest последний снапшот характеристик (для UI)
func (p *Pipeline) Latest() voice.VoiceCharacteristics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Profiles дамп профилей спикеров сессии
func (p *Pipeline) Profiles() []voice.SpeakerProfile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registry.Profiles()
}

// Flagged сегменты низкой уверенности для повторного анализа
func (p *Pipeline) Flagged() []voice.FlaggedSegment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tracker.Flagged()
}

// Segments диаризованная история сегментов
func (p *Pipeline) Segments() []diarize.Segment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fusion.Segments()
}

// Transcript транскрипт с метками ролей
func (p *Pipeline) Transcript() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fusion.Transcript()
}

// Stats статистика диаризации
func (p *Pipeline) Stats() diarize.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fusion.Stats()
}

// Dropped количество отброшенных кадров
func (p *Pipeline) Dropped() int64 {
	return p.dropped.Load()
}
