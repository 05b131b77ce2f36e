// Package voice is the speech collaborator: raw audio in, transcribed text
// out, and response fragments back to an audio stream. The conversation core
// depends only on the text-in/fragments-out contract; everything here sits
// outside it.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"

	openrouterx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/pkg/openrouter"
)

type Config struct {
	APIKey          string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	BaseURL         string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	TranscribeModel string        `envconfig:"TRANSCRIBE_MODEL" split_words:"true" default:"whisper-1"`
	SpeechModel     string        `envconfig:"SPEECH_MODEL" split_words:"true" default:"tts-1"`
	Voice           string        `envconfig:"VOICE" split_words:"true" default:"alloy"`
	Timeout         time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
}

type Client struct {
	api *openaisdk.Client
	cfg Config
}

func NewClient(cfg Config) (*Client, error) {
	api := openrouterx.NewClient(openrouterx.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
	if api == nil {
		return nil, errors.New("voice: api key is required")
	}
	return &Client{api: api, cfg: cfg}, nil
}

// Transcribe converts one recorded utterance to text.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	resp, err := c.api.Audio.Transcriptions.New(ctx, openaisdk.AudioTranscriptionNewParams{
		File:  audio,
		Model: openaisdk.AudioModel(c.cfg.TranscribeModel),
	})
	if err != nil {
		return "", fmt.Errorf("voice: transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// Speak drains a fragment stream and synthesizes it as one audio stream. The
// fragment stream it receives has already passed the output gate, so draining
// it fully here leaks nothing.
func (c *Client) Speak(ctx context.Context, fragments *schema.StreamReader[string]) (io.ReadCloser, error) {
	defer fragments.Close()

	var b strings.Builder
	for {
		chunk, err := fragments.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("voice: read fragments: %w", err)
		}
		b.WriteString(chunk)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, errors.New("voice: nothing to speak")
	}

	resp, err := c.api.Audio.Speech.New(ctx, openaisdk.AudioSpeechNewParams{
		Input: text,
		Model: openaisdk.SpeechModel(c.cfg.SpeechModel),
		Voice: openaisdk.AudioSpeechNewParamsVoice(c.cfg.Voice),
	})
	if err != nil {
		return nil, fmt.Errorf("voice: synthesize: %w", err)
	}
	return resp.Body, nil
}
