// Package speech turns text into spoken audio via the Gemini TTS
// model and plays it through the speaker.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/mahir-live/mahir/pkg/audio"
	"github.com/mahir-live/mahir/pkg/playback"
)

const (
	// DefaultModel is the one-shot TTS model.
	DefaultModel = "gemini-2.5-flash-preview-tts"

	// DefaultVoice is the prebuilt voice for synthesis.
	DefaultVoice = "Kore"

	// SampleRate is the PCM rate the TTS model produces.
	SampleRate = 24000
)

// ErrNoAudio is returned when the model responds without audio data.
var ErrNoAudio = errors.New("no audio generated")

// Generator is the one-shot generation surface of the Gemini client.
// Satisfied by genai.Models.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Player renders a decoded buffer to completion. Play blocks until the
// audio has finished or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, buf audio.Buffer) error
}

// Speaker synthesizes and plays speech.
type Speaker struct {
	models Generator
	model  string
	voice  string
	player Player
}

// NewSpeaker builds a speaker authenticated with apiKey, playing
// through the system speaker.
func NewSpeaker(ctx context.Context, apiKey string) (*Speaker, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Speaker{models: gc.Models, model: DefaultModel, voice: DefaultVoice, player: otoPlayer{}}, nil
}

// NewSpeakerWith wires an existing generator and player, for embedding
// and tests.
func NewSpeakerWith(models Generator, player Player) *Speaker {
	return &Speaker{models: models, model: DefaultModel, voice: DefaultVoice, player: player}
}

// Speak synthesizes text and blocks until playback finishes. Blank
// input is a no-op. A response without audio is ErrNoAudio.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: s.voice},
			},
		},
	}

	resp, err := s.models.GenerateContent(ctx, s.model, genai.Text(text), cfg)
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}

	pcm := inlineAudio(resp)
	if len(pcm) == 0 {
		return ErrNoAudio
	}
	return s.player.Play(ctx, audio.FromPCM16(pcm, SampleRate))
}

// inlineAudio extracts the first inline audio payload from a response.
func inlineAudio(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}

// otoPlayer opens the speaker per utterance and drains before
// releasing it, so short clips never truncate.
type otoPlayer struct{}

func (otoPlayer) Play(ctx context.Context, buf audio.Buffer) error {
	sink, err := playback.NewOtoSink(buf.SampleRate)
	if err != nil {
		return err
	}
	sched := playback.NewScheduler(sink)
	defer func() { _ = sched.Stop() }()

	if _, err := sched.Schedule(buf); err != nil {
		return err
	}
	if err := sched.Drain(ctx); err != nil {
		return err
	}
	// Drain only covers the scheduled window; the sink may still hold
	// a buffered tail. Let the speaker empty before Stop closes it.
	return sink.WaitIdle(ctx)
}
