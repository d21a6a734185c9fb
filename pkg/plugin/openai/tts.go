package openai

import (
	"context"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pitchpal/pitchpal-go/pkg/ai"
	"github.com/pitchpal/pitchpal-go/pkg/ai/tts"
)

// SampleWriter receives synthesized little-endian 16-bit PCM as it arrives.
// The WAV writer satisfies this; a live deployment would hand the samples
// to the platform audio output instead.
type SampleWriter interface {
	WriteSamples(data []byte) error
}

// Speaker voices prospect lines through the OpenAI speech API. Audio is
// requested as raw PCM (24kHz mono) and streamed to the sink; Speak blocks
// until the full utterance has been delivered.
type Speaker struct {
	client *openai.Client
	model  string
	voice  string
	sink   SampleWriter
}

// SpeakerConfig holds configuration for the OpenAI speaker.
type SpeakerConfig struct {
	APIKey string
	Model  string // Default: tts-1
	Voice  string // Default: alloy
	Sink   SampleWriter
}

// NewSpeaker creates an OpenAI-backed speaker.
func NewSpeaker(cfg SpeakerConfig) (*Speaker, error) {
	if cfg.APIKey == "" {
		return nil, ai.NewFatalError(nil, "OpenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.TTSModel1)
	}
	voice := cfg.Voice
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}

	return &Speaker{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
		voice:  voice,
		sink:   cfg.Sink,
	}, nil
}

// Speak synthesizes the text and streams it to the sink.
func (s *Speaker) Speak(ctx context.Context, text string, params tts.VoiceParams) error {
	voice := s.voice
	if params.Voice != "" {
		voice = params.Voice
	}

	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
	}
	if params.Rate > 0 {
		req.Speed = float64(params.Rate)
	}

	resp, err := s.client.CreateSpeech(ctx, req)
	if err != nil {
		return ai.NewRecoverableError(err, "speech synthesis request failed")
	}
	defer resp.Close()

	buffer := make([]byte, 4096)
	for {
		n, err := resp.Read(buffer)
		if n > 0 && s.sink != nil {
			if werr := s.sink.WriteSamples(buffer[:n]); werr != nil {
				return ai.NewFatalError(werr, "playback sink rejected samples")
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return ai.NewRecoverableError(err, "error reading synthesized audio")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
