package api

import (
	"medscribe/diarize"
	"medscribe/session"
	"medscribe/voice"
)

// Message структура сообщений WebSocket и gRPC control stream.
// Один формат на оба транспорта: gRPC использует JSON-кодек.
type Message struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`

	// Параметры start_session
	Mode       string `json:"mode,omitempty"` // direct или relayed
	ArchiveMP3 bool   `json:"archiveMp3,omitempty"`

	// push_segment: финализированный текст транскрипции
	Text      string `json:"text,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"` // unix миллисекунды

	// Ответы
	Session   *session.Session   `json:"session,omitempty"`
	Sessions  []*session.Session `json:"sessions,omitempty"`
	SessionID string             `json:"sessionId,omitempty"`

	// Realtime поток движка
	Characteristics *voice.VoiceCharacteristics `json:"characteristics,omitempty"`
	Segment         *diarize.Segment            `json:"segment,omitempty"`

	// Наблюдаемость
	Profiles   []voice.SpeakerProfile `json:"profiles,omitempty"`
	Flagged    []voice.FlaggedSegment `json:"flagged,omitempty"`
	Stats      *diarize.Stats         `json:"stats,omitempty"`
	Transcript string                 `json:"transcript,omitempty"`

	// Результат офлайн повторной диаризации архива
	Turns []diarize.TurnSegment `json:"turns,omitempty"`
}
