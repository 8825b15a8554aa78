// Package diarize атрибутирует финализированные сегменты транскрипта
// ролям разговора (врач/пациент), комбинируя акустическое совпадение
// с вокальными сигнатурами ролей, паузы между репликами, лексические
// маркеры и статистику чередования.
package diarize

import (
	"time"

	"medscribe/voice"
)

// Role роль участника разговора
type Role string

const (
	RoleClinician Role = "clinician"
	RolePatient   Role = "patient"
	RoleUnknown   Role = "unknown"
)

// other противоположная роль
func other(r Role) Role {
	if r == RoleClinician {
		return RolePatient
	}
	return RoleClinician
}

// Segment диаризованный сегмент транскрипта. Создаётся один раз и не
// мутирует: исправления текста приходят новыми сегментами выше по потоку.
type Segment struct {
	Role       Role                        `json:"role"`
	Text       string                      `json:"text"`
	Confidence float64                     `json:"confidence"`
	Timestamp  time.Time                   `json:"timestamp"`
	Voice      *voice.VoiceCharacteristics `json:"voice,omitempty"` // копия, без владения
}

// RoleStats статистика одной роли
type RoleStats struct {
	Segments       int     `json:"segments"`
	MeanConfidence float64 `json:"meanConfidence"`
}

// Stats сводная статистика движка (конкретный типизированный контракт
// для наблюдаемости, не открытая map)
type Stats struct {
	Segments    int                `json:"segments"`
	ByRole      map[Role]RoleStats `json:"byRole"`
	LastShiftAt time.Time          `json:"lastShiftAt,omitempty"`
}

// TranscriptBlock блок последовательных сегментов одной роли
type TranscriptBlock struct {
	Role  Role      `json:"role"`
	Text  string    `json:"text"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
