package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"metisconnect/models"
	"metisconnect/services/booking"

	"go.uber.org/zap"
)

// Interpreter extracts booking fields from a free-form utterance.
type Interpreter interface {
	Interpret(ctx context.Context, utterance string) (models.DraftPatch, error)
}

// serviceKeywords is checked in order; compound services come first.
var serviceKeywords = []struct {
	keyword string
	code    string
}{
	{"lavaggio", "wash_and_cut"},
	{"barba", "beard_trim"},
	{"rasatura", "shave"},
	{"styling", "styling"},
	{"piega", "styling"},
	{"taglio", "haircut"},
	{"capelli", "haircut"},
}

var (
	dayMonthPattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	clockPattern    = regexp.MustCompile(`\b([01]?\d|2[0-3])[:.]([0-5]\d)\b`)
	hourPattern     = regexp.MustCompile(`\balle\s+([01]?\d|2[0-3])\b`)
	namePattern     = regexp.MustCompile(`(?i)\bmi chiamo\s+([\p{L}']+(?:\s+[\p{L}']+)?)`)
)

// KeywordInterpreter understands simple Italian booking requests.
type KeywordInterpreter struct {
	location *time.Location
	now      func() time.Time
}

func NewKeywordInterpreter(location *time.Location) *KeywordInterpreter {
	return &KeywordInterpreter{location: location, now: time.Now}
}

func (k *KeywordInterpreter) Interpret(_ context.Context, utterance string) (models.DraftPatch, error) {
	var patch models.DraftPatch
	text := strings.ToLower(utterance)
	today := k.now().In(k.location)

	for _, sk := range serviceKeywords {
		if strings.Contains(text, sk.keyword) {
			code := sk.code
			patch.ServiceCode = &code
			break
		}
	}

	if date, ok := k.date(text, today); ok {
		patch.Date = &date
	}

	if m := clockPattern.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		t := fmt.Sprintf("%02d:%s", h, m[2])
		patch.Time = &t
	} else if m := hourPattern.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		t := fmt.Sprintf("%02d:00", h)
		patch.Time = &t
	}

	if m := namePattern.FindStringSubmatch(utterance); m != nil {
		name := strings.TrimSpace(m[1])
		patch.CustomerName = &name
	}

	return patch, nil
}

func (k *KeywordInterpreter) date(text string, today time.Time) (string, bool) {
	switch {
	case strings.Contains(text, "dopodomani"):
		return today.AddDate(0, 0, 2).Format("2006-01-02"), true
	case strings.Contains(text, "domani"):
		return today.AddDate(0, 0, 1).Format("2006-01-02"), true
	case strings.Contains(text, "oggi"):
		return today.Format("2006-01-02"), true
	}

	m := dayMonthPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year := today.Year()
	explicitYear := m[3] != ""
	if explicitYear {
		year, _ = strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, k.location)
	if d.Day() != day || int(d.Month()) != month {
		return "", false
	}
	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, k.location)
	if !explicitYear && d.Before(midnight) {
		d = d.AddDate(1, 0, 0)
	}
	return d.Format("2006-01-02"), true
}

const interpretPrompt = `Sei l'assistente di prenotazione di un barbiere. Oggi è %s.
Estrai dalla frase del cliente i campi della prenotazione e rispondi solo con JSON:
{"customerName": string|null, "serviceCode": one of [%s]|null, "date": "YYYY-MM-DD"|null, "time": "HH:MM"|null, "notes": string|null}
Frase: %q`

// GeminiInterpreter asks a language model and falls back to keywords when
// the model fails or answers with something unusable.
type GeminiInterpreter struct {
	generator TextGenerator
	fallback  *KeywordInterpreter
	logger    *zap.Logger
}

func NewGeminiInterpreter(generator TextGenerator, fallback *KeywordInterpreter, logger *zap.Logger) *GeminiInterpreter {
	return &GeminiInterpreter{generator: generator, fallback: fallback, logger: logger}
}

func (g *GeminiInterpreter) Interpret(ctx context.Context, utterance string) (models.DraftPatch, error) {
	codes := make([]string, 0)
	for _, svc := range booking.ListServices() {
		codes = append(codes, svc.Code)
	}
	today := g.fallback.now().In(g.fallback.location).Format("2006-01-02 (Monday)")
	prompt := fmt.Sprintf(interpretPrompt, today, strings.Join(codes, ", "), utterance)

	raw, err := g.generator.GenerateContent(ctx, prompt)
	if err != nil {
		g.logger.Warn("Gemini interpretation failed, using keywords", zap.Error(err))
		return g.fallback.Interpret(ctx, utterance)
	}

	patch, err := decodePatch(raw)
	if err != nil {
		g.logger.Warn("Unusable Gemini answer, using keywords", zap.String("answer", raw), zap.Error(err))
		return g.fallback.Interpret(ctx, utterance)
	}
	return patch, nil
}

// decodePatch reads the model's JSON answer and drops fields that would
// not pass draft validation anyway.
func decodePatch(raw string) (models.DraftPatch, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var patch models.DraftPatch
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &patch); err != nil {
		return models.DraftPatch{}, fmt.Errorf("decode interpretation: %w", err)
	}
	if patch.ServiceCode != nil {
		if _, ok := booking.LookupService(*patch.ServiceCode); !ok {
			patch.ServiceCode = nil
		}
	}
	if patch.Date != nil {
		if _, err := time.Parse("2006-01-02", *patch.Date); err != nil {
			patch.Date = nil
		}
	}
	if patch.Time != nil {
		if _, err := time.Parse("15:04", *patch.Time); err != nil {
			patch.Time = nil
		}
	}
	return patch, nil
}
