package diarize

import "strings"

// Лексические маркеры ролей. Врачебная речь — вопросы, назначения,
// инструкции; речь пациента — жалобы от первого лица и симптомы.
// Списки намеренно короткие: лексика лишь смещает решение, не определяет его.
var clinicianMarkers = []string{
	"how are you",
	"any pain",
	"tell me",
	"let me",
	"take a deep breath",
	"prescribe",
	"medication",
	"dosage",
	"blood pressure",
	"examination",
	"follow up",
	"symptoms",
	"diagnosis",
	"scale of",
	"how long have",
}

var patientMarkers = []string{
	"i feel",
	"i have",
	"i've been",
	"it hurts",
	"my chest",
	"my head",
	"my stomach",
	"my back",
	"pain",
	"ache",
	"dizzy",
	"nausea",
	"tired",
	"can't sleep",
	"worried",
}

// lexicalScore считает попадания маркеров роли в тексте.
// Результат нормирован на [0, 1] с потолком в три попадания.
func lexicalScore(text string, markers []string) float64 {
	normalized := strings.ToLower(text)
	hits := 0
	for _, m := range markers {
		if strings.Contains(normalized, m) {
			hits++
		}
	}
	if hits > 3 {
		hits = 3
	}
	return float64(hits) / 3
}

// lexicalSignal возвращает роль с большим лексическим счётом и сам счёт
func lexicalSignal(text string) (Role, float64) {
	c := lexicalScore(text, clinicianMarkers)
	p := lexicalScore(text, patientMarkers)
	switch {
	case c > p:
		return RoleClinician, c
	case p > c:
		return RolePatient, p
	default:
		return RoleUnknown, c
	}
}
