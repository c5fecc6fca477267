package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"metisconnect/models"
)

var ErrEmptyTranscript = errors.New("no speech recognized")

// VoiceResult is what one recorded utterance produced.
type VoiceResult struct {
	Transcript string            `json:"transcript"`
	Patch      models.DraftPatch `json:"patch"`
}

// VoiceAssistant transcribes audio and interprets the transcript.
type VoiceAssistant struct {
	transcriber Transcriber
	interpreter Interpreter
	language    string
}

func NewVoiceAssistant(t Transcriber, i Interpreter, language string) *VoiceAssistant {
	return &VoiceAssistant{transcriber: t, interpreter: i, language: language}
}

// Process runs transcription then interpretation. language overrides the
// default when non-empty.
func (v *VoiceAssistant) Process(ctx context.Context, audio []byte, language string) (*VoiceResult, error) {
	if language == "" {
		language = v.language
	}
	text, err := v.transcriber.Transcribe(ctx, audio, language)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyTranscript
	}

	patch, err := v.interpreter.Interpret(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("interpret %q: %w", text, err)
	}
	return &VoiceResult{Transcript: text, Patch: patch}, nil
}
