package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultWhisperURL   = "https://api.groq.com/openai/v1/audio/transcriptions"
	defaultWhisperModel = "whisper-large-v3-turbo"
	maxVoiceBytes       = 25 << 20
)

// VoiceConfig holds voice transcription settings. Any OpenAI-compatible
// transcription endpoint works.
type VoiceConfig struct {
	WhisperURL    string
	WhisperAPIKey string
	WhisperModel  string
	// FailedText is sent when a voice message cannot be transcribed.
	FailedText string
}

func (v *VoiceConfig) failedText() string {
	if v.FailedText != "" {
		return v.FailedText
	}
	return "Sorry, I couldn't transcribe that voice message. Please send your request as text."
}

// transcribeVoice downloads a voice or audio attachment and returns its text.
func (c *Connector) transcribeVoice(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	var fileID, name string
	switch {
	case msg.Voice != nil:
		fileID, name = msg.Voice.FileID, "voice.ogg"
	case msg.Audio != nil:
		fileID, name = msg.Audio.FileID, "audio"
		if msg.Audio.FileName != "" {
			name = msg.Audio.FileName
		}
	default:
		return "", errors.New("no voice or audio in message")
	}

	fileURL, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("get file URL: %w", err)
	}

	audio, err := downloadFile(ctx, fileURL)
	if err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}

	text, err := transcribeAudio(ctx, c.config.Voice, name, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return text, nil
}

func downloadFile(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxVoiceBytes))
}

// transcribeAudio uploads audio to a Whisper-compatible API.
func transcribeAudio(ctx context.Context, cfg *VoiceConfig, filename string, audio io.Reader) (string, error) {
	url := cfg.WhisperURL
	if url == "" {
		url = defaultWhisperURL
	}
	model := cfg.WhisperModel
	if model == "" {
		model = defaultWhisperModel
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return "", err
	}
	w.WriteField("model", model)
	w.WriteField("response_format", "json")
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+cfg.WhisperAPIKey)

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper API error (status %d): %s", resp.StatusCode, body)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse whisper response: %w", err)
	}
	return result.Text, nil
}
