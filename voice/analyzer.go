package voice

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/stat"
)

// FrameFeatures низкоуровневые признаки одного кадра
type FrameFeatures struct {
	Pitch       float64 // Hz, 0 = питч не обнаружен
	Volume      float64 // [0, 100]
	Tilt        float64 // спектральный наклон, dB/декаду
	VoiceActive bool
}

// Analyzer извлекает признаки из кадров PCM. Чистая функция над кадром:
// не хранит состояния между кадрами и никогда не возвращает ошибок —
// вырожденный вход (нулевой кадр) даёт нулевые признаки.
type Analyzer struct {
	cfg    Config
	window []float64 // окно Хэмминга, len = FrameSize
	fft    *fourier.FFT
}

// NewAnalyzer создаёт анализатор кадров
func NewAnalyzer(cfg Config) *Analyzer {
	w := make([]float64, cfg.FrameSize)
	for i := range w {
		w[i] = 1
	}
	window.Hamming(w)

	return &Analyzer{
		cfg:    cfg,
		window: w,
		fft:    fourier.NewFFT(cfg.FrameSize),
	}
}

// AnalyzeFrame вычисляет признаки одного кадра mono PCM.
// Длина кадра должна совпадать с cfg.FrameSize; более короткий кадр
// дополняется нулями, более длинный усекается.
func (a *Analyzer) AnalyzeFrame(samples []float32) FrameFeatures {
	if len(samples) == 0 {
		return FrameFeatures{}
	}

	// Оконная функция применяется до автокорреляции и FFT
	windowed := make([]float64, a.cfg.FrameSize)
	n := len(samples)
	if n > a.cfg.FrameSize {
		n = a.cfg.FrameSize
	}
	for i := 0; i < n; i++ {
		windowed[i] = float64(samples[i]) * a.window[i]
	}

	volume := a.computeVolume(samples[:n])
	pitch := a.detectPitch(windowed)
	tilt := a.spectralTilt(windowed)

	// Двухчастный гейт: громкость выше порога И валидный питч.
	// Отсекает и тишину, и непериодический шум (гул вентиляции, взрывные
	// согласные), пропуская тихую речь над порогом.
	active := volume >= a.cfg.ActivityFloor && pitch > 0

	return FrameFeatures{
		Pitch:       pitch,
		Volume:      volume,
		Tilt:        tilt,
		VoiceActive: active,
	}
}

// computeVolume RMS-громкость кадра, приведённая к шкале 0-100
func (a *Analyzer) computeVolume(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))

	v := rms * 100
	if v > 100 {
		v = 100
	}
	return v
}

// detectPitch оконная автокорреляция над подготовленным кадром
func (a *Analyzer) detectPitch(windowed []float64) float64 {
	return autocorrPitch(a.cfg, windowed)
}

// autocorrPitch перебирает периоды-кандидаты в правдоподобном диапазоне
// питча и выбирает период с максимальным нормированным score; слабый
// максимум означает отсутствие питча.
func autocorrPitch(cfg Config, x []float64) float64 {
	minPeriod := int(float64(cfg.SampleRate) / cfg.MaxPitch)
	maxPeriod := int(float64(cfg.SampleRate) / cfg.MinPitch)
	if minPeriod < 1 {
		minPeriod = 1
	}
	if maxPeriod >= len(x) {
		maxPeriod = len(x) - 1
	}

	// Ограничиваем число коррелируемых сэмплов для контроля стоимости
	n := len(x)
	if n > cfg.MaxCorrSamples {
		n = cfg.MaxCorrSamples
	}

	bestScore := 0.0
	bestPeriod := 0

	for period := minPeriod; period <= maxPeriod; period++ {
		var num, den float64
		limit := n - period
		if limit <= 0 {
			break
		}
		for i := 0; i < limit; i++ {
			num += x[i] * x[i+period]
			den += x[i] * x[i]
		}
		if den == 0 {
			continue
		}
		score := num / den
		if score > bestScore {
			bestScore = score
			bestPeriod = period
		}
	}

	if bestPeriod == 0 || bestScore < cfg.MinCorrelation {
		return 0
	}

	pitch := float64(cfg.SampleRate) / float64(bestPeriod)
	if pitch < cfg.MinPitch || pitch > cfg.MaxPitch {
		return 0
	}
	return pitch
}

// spectralTilt наклон спектра в dB на декаду частоты. Вторичный
// акустический признак для различения спикеров с близким питчем:
// линейная регрессия log-мощности по log-частоте в полосе 100-4000 Hz.
func (a *Analyzer) spectralTilt(windowed []float64) float64 {
	coeffs := a.fft.Coefficients(nil, windowed)

	binHz := float64(a.cfg.SampleRate) / float64(a.cfg.FrameSize)
	lowBin := int(100 / binHz)
	highBin := int(4000 / binHz)
	if lowBin < 1 {
		lowBin = 1
	}
	if highBin >= len(coeffs) {
		highBin = len(coeffs) - 1
	}
	if highBin-lowBin < 8 {
		return 0
	}

	xs := make([]float64, 0, highBin-lowBin+1)
	ys := make([]float64, 0, highBin-lowBin+1)
	var total float64
	for k := lowBin; k <= highBin; k++ {
		re := real(coeffs[k])
		im := imag(coeffs[k])
		power := re*re + im*im
		total += power
		xs = append(xs, math.Log10(float64(k)*binHz))
		ys = append(ys, 10*math.Log10(power+1e-12))
	}
	if total < 1e-10 {
		// Практически пустой спектр, наклон не информативен
		return 0
	}

	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta
}
