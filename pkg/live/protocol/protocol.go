// Package protocol defines the JSON wire format of the Gemini live
// bidirectional streaming endpoint. The client speaks base64 PCM over a
// websocket: one setup message, then realtime input frames; the server
// answers with setup acknowledgement, model audio, and turn control.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Endpoint is the live streaming websocket URL. The API key is passed
// as the "key" query parameter.
const Endpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

type DecodeError struct {
	Message string
	Field   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Field) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Field)
}

func badFrame(message, field string) *DecodeError {
	return &DecodeError{Message: message, Field: field}
}

// Blob carries inline binary data. Data is standard base64.
type Blob struct {
	MIMEType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Part is one piece of a content turn: text or inline data, not both.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Content is a sequence of parts attributed to a role.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName,omitempty"`
}

type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type SpeechConfig struct {
	VoiceConfig *VoiceConfig `json:"voiceConfig,omitempty"`
}

type GenerationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

// Setup is the first client message on a fresh connection.
type Setup struct {
	Model             string            `json:"model"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
}

// RealtimeInput streams captured audio toward the model.
type RealtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks,omitempty"`
}

// ClientMessage is the envelope for everything the client sends.
// Exactly one field is set per frame.
type ClientMessage struct {
	Setup         *Setup         `json:"setup,omitempty"`
	RealtimeInput *RealtimeInput `json:"realtimeInput,omitempty"`
}

// NewSetup builds the session-opening message for an audio-only
// conversation with the given voice and system instruction.
func NewSetup(model, voice, systemInstruction string) ClientMessage {
	setup := &Setup{
		Model: model,
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &SpeechConfig{
				VoiceConfig: &VoiceConfig{
					PrebuiltVoiceConfig: &PrebuiltVoiceConfig{VoiceName: voice},
				},
			},
		},
	}
	if strings.TrimSpace(systemInstruction) != "" {
		setup.SystemInstruction = &Content{Parts: []Part{{Text: systemInstruction}}}
	}
	return ClientMessage{Setup: setup}
}

// NewAudioChunk wraps one base64 PCM frame as a realtime input message.
func NewAudioChunk(sampleRate int, data string) ClientMessage {
	return ClientMessage{RealtimeInput: &RealtimeInput{
		MediaChunks: []Blob{{
			MIMEType: fmt.Sprintf("audio/pcm;rate=%d", sampleRate),
			Data:     data,
		}},
	}}
}

type SetupComplete struct{}

// ServerContent is incremental model output. Interrupted means the user
// spoke over the model and all queued playback must stop.
type ServerContent struct {
	ModelTurn    *Content `json:"modelTurn,omitempty"`
	TurnComplete bool     `json:"turnComplete,omitempty"`
	Interrupted  bool     `json:"interrupted,omitempty"`
}

// AudioData returns the base64 payloads of every inline-data part in
// the model turn, in order.
func (c *ServerContent) AudioData() []string {
	if c == nil || c.ModelTurn == nil {
		return nil
	}
	var out []string
	for _, part := range c.ModelTurn.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			out = append(out, part.InlineData.Data)
		}
	}
	return out
}

// GoAway warns that the server will drop the connection soon.
type GoAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

// ServerMessage is the envelope for everything the server sends.
type ServerMessage struct {
	SetupComplete *SetupComplete `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
	GoAway        *GoAway        `json:"goAway,omitempty"`
}

// DecodeServerMessage parses one inbound frame. Frames carrying none of
// the known fields decode to an empty message rather than an error so
// additions on the server side do not kill live sessions.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, badFrame("invalid json frame", "")
	}
	return msg, nil
}

// EncodeClientMessage serializes one outbound frame.
func EncodeClientMessage(msg ClientMessage) ([]byte, error) {
	if msg.Setup == nil && msg.RealtimeInput == nil {
		return nil, badFrame("empty client message", "")
	}
	if msg.Setup != nil && strings.TrimSpace(msg.Setup.Model) == "" {
		return nil, badFrame("setup.model is required", "setup.model")
	}
	return json.Marshal(msg)
}
