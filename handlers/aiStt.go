package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	ai "metisconnect/services/intelligence"
	"metisconnect/utils"

	"github.com/gin-gonic/gin"
)

const AllowedExtension = ".wav"

// VoiceTranscribe transcribes an uploaded WAV recording, interprets it and
// merges the extracted fields into the current draft.
func (hb *HandlerBundle) VoiceTranscribe(c *gin.Context) {
	if hb.Voice == nil {
		utils.JSONError(c, http.StatusNotImplemented, "Voice input is not available", "speech-to-text is not configured")
		return
	}

	language := c.PostForm("language")

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "audio file is required", err.Error())
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != AllowedExtension {
		utils.JSONError(c, http.StatusBadRequest, "invalid file type", fmt.Sprintf("expected %s, got %s", AllowedExtension, ext))
		return
	}
	if header.Size > ai.MaxAudioBytes {
		utils.JSONError(c, http.StatusRequestEntityTooLarge, "audio file too large", fmt.Sprintf("limit is %d bytes", ai.MaxAudioBytes))
		return
	}

	audio, err := io.ReadAll(io.LimitReader(file, ai.MaxAudioBytes))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "failed to read audio file", err.Error())
		return
	}

	result, err := hb.Voice.Process(c.Request.Context(), audio, language)
	switch {
	case errors.Is(err, ai.ErrUnsupportedAudio):
		utils.JSONError(c, http.StatusBadRequest, "unsupported audio", err.Error())
		return
	case errors.Is(err, ai.ErrEmptyTranscript):
		utils.JSONError(c, http.StatusUnprocessableEntity, "No speech recognized", "try speaking closer to the microphone")
		return
	case err != nil:
		utils.JSONError(c, http.StatusBadGateway, "speech recognition failed", err.Error())
		return
	}

	draft := hb.Flow.ApplyDraftPatch(result.Patch)
	c.JSON(http.StatusOK, gin.H{
		"transcription": result.Transcript,
		"patch":         result.Patch,
		"draft":         draft,
	})
}
