// Package session управляет жизненным циклом сессий записи: каждый
// анализируемый разговор владеет собственным конвейером, реестром
// спикеров и историей диаризации, создаваемыми на старте сессии и
// синхронно освобождаемыми на остановке.
package session

import (
	"time"

	"medscribe/voice"
)

// Status состояние сессии
type Status string

const (
	StatusRecording Status = "recording"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Config параметры создания сессии
type Config struct {
	Mode       voice.CaptureMode // direct или relayed
	SampleRate int               // 0 = из конфигурации режима
	ArchiveMP3 bool              // писать MP3 архив аудио сессии
	VADModel   string            // путь к Silero VAD модели, "" = без нейронного гейта
}

// Session сессия записи разговора. Pipeline и Audio живут только пока
// сессия активна и не сериализуются.
type Session struct {
	ID        string            `json:"id"`
	StartTime time.Time         `json:"startTime"`
	EndTime   *time.Time        `json:"endTime,omitempty"`
	Status    Status            `json:"status"`
	Mode      voice.CaptureMode `json:"mode"`
	DataDir   string            `json:"dataDir"`

	Pipeline *Pipeline  `json:"-"`
	Audio    *MP3Writer `json:"-"`
}
