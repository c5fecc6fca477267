package ai

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
)

var rome, _ = time.LoadLocation("Europe/Rome")

func newKeywords() *KeywordInterpreter {
	k := NewKeywordInterpreter(rome)
	k.now = func() time.Time { return time.Date(2025, time.March, 10, 8, 0, 0, 0, rome) }
	return k
}

func deref(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func TestKeywordInterpreter(t *testing.T) {
	cases := []struct {
		utterance string
		service   string
		date      string
		time      string
		name      string
	}{
		{"Vorrei un taglio domani alle 10:30", "haircut", "2025-03-11", "10:30", "<nil>"},
		{"Lavaggio e taglio oggi alle 15", "wash_and_cut", "2025-03-10", "15:00", "<nil>"},
		{"Mi chiamo Luca Bianchi, barba il 14/03 alle 9.15", "beard_trim", "2025-03-14", "09:15", "Luca Bianchi"},
		{"rasatura dopodomani", "shave", "2025-03-12", "<nil>", "<nil>"},
		{"styling il 05/01", "styling", "2026-01-05", "<nil>", "<nil>"},
		{"buongiorno", "<nil>", "<nil>", "<nil>", "<nil>"},
	}
	for _, tc := range cases {
		t.Run(tc.utterance, func(t *testing.T) {
			p, err := newKeywords().Interpret(context.Background(), tc.utterance)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := deref(p.ServiceCode); got != tc.service {
				t.Fatalf("service: expected %s, got %s", tc.service, got)
			}
			if got := deref(p.Date); got != tc.date {
				t.Fatalf("date: expected %s, got %s", tc.date, got)
			}
			if got := deref(p.Time); got != tc.time {
				t.Fatalf("time: expected %s, got %s", tc.time, got)
			}
			if got := deref(p.CustomerName); got != tc.name {
				t.Fatalf("name: expected %s, got %s", tc.name, got)
			}
		})
	}
}

func TestKeywordInterpreterRejectsImpossibleDate(t *testing.T) {
	p, _ := newKeywords().Interpret(context.Background(), "taglio il 31/02")
	if p.Date != nil {
		t.Fatalf("expected no date, got %s", *p.Date)
	}
}

type fakeGenerator struct {
	answer string
	err    error
}

func (f fakeGenerator) GenerateContent(context.Context, string) (string, error) {
	return f.answer, f.err
}

func TestGeminiInterpreter(t *testing.T) {
	g := NewGeminiInterpreter(fakeGenerator{
		answer: "```json\n{\"serviceCode\":\"beard_trim\",\"date\":\"2025-03-12\",\"time\":\"11:00\",\"customerName\":null}\n```",
	}, newKeywords(), zap.NewNop())

	p, err := g.Interpret(context.Background(), "barba mercoledì alle undici")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deref(p.ServiceCode) != "beard_trim" || deref(p.Date) != "2025-03-12" || deref(p.Time) != "11:00" {
		t.Fatalf("unexpected patch %s %s %s", deref(p.ServiceCode), deref(p.Date), deref(p.Time))
	}
	if p.CustomerName != nil {
		t.Fatalf("expected no name, got %s", *p.CustomerName)
	}
}

func TestGeminiInterpreterDropsUnknownValues(t *testing.T) {
	p, err := decodePatch(`{"serviceCode":"massage","date":"tomorrow","time":"25:00"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ServiceCode != nil || p.Date != nil || p.Time != nil {
		t.Fatalf("expected unusable fields dropped, got %+v", p)
	}
}

func TestGeminiInterpreterFallsBack(t *testing.T) {
	for name, gen := range map[string]fakeGenerator{
		"model error":   {err: errors.New("quota exceeded")},
		"garbage reply": {answer: "certo! ecco la prenotazione"},
	} {
		t.Run(name, func(t *testing.T) {
			g := NewGeminiInterpreter(gen, newKeywords(), zap.NewNop())
			p, err := g.Interpret(context.Background(), "taglio domani alle 10:00")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if deref(p.ServiceCode) != "haircut" || deref(p.Date) != "2025-03-11" {
				t.Fatalf("expected keyword result, got %s %s", deref(p.ServiceCode), deref(p.Date))
			}
		})
	}
}
