package session

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/braheezy/shine-mp3/pkg/mp3"
)

// MP3Writer стриминговый MP3 архив аудио сессии через shine-mp3
// (чистый Go). Запись используется конвейером повторного анализа.
type MP3Writer struct {
	file       *os.File
	encoder    *mp3.Encoder
	filePath   string
	sampleRate int
	channels   int

	// shine кодирует блоками по 1152 сэмпла на канал, накапливаем
	buffer []int16

	samplesWritten int64
	mu             sync.Mutex
	closed         bool
}

// NewMP3Writer создаёт MP3 writer
func NewMP3Writer(filePath string, sampleRate, channels int) (*MP3Writer, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	log.Printf("[MP3Writer] started: %s (rate=%d, ch=%d)", filePath, sampleRate, channels)
	return &MP3Writer{
		file:       file,
		encoder:    mp3.NewEncoder(sampleRate, channels),
		filePath:   filePath,
		sampleRate: sampleRate,
		channels:   channels,
		buffer:     make([]int16, 0, 8192),
	}, nil
}

// Write записывает float32 сэмплы
func (w *MP3Writer) Write(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	for _, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		w.buffer = append(w.buffer, int16(s*32767))
	}
	w.samplesWritten += int64(len(samples))

	// Пишем по четыре блока, чтобы не дёргать энкодер на каждый кадр
	minBufferSize := 1152 * w.channels * 4
	if len(w.buffer) >= minBufferSize {
		w.encoder.Write(w.file, w.buffer)
		w.buffer = w.buffer[:0]
	}
	return nil
}

// SamplesWritten сколько сэмплов записано
func (w *MP3Writer) SamplesWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.samplesWritten
}

// Path путь к файлу архива
func (w *MP3Writer) Path() string {
	return w.filePath
}

// Close дописывает остаток буфера и закрывает файл
func (w *MP3Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if len(w.buffer) > 0 {
		w.encoder.Write(w.file, w.buffer)
		w.buffer = nil
	}

	log.Printf("[MP3Writer] closed %s (%d samples, %.1fs)",
		w.filePath, w.samplesWritten, float64(w.samplesWritten)/float64(w.sampleRate))
	return w.file.Close()
}
