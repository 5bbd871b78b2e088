package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewSetupEncoding(t *testing.T) {
	msg := NewSetup("models/gemini-2.5-flash-native-audio-preview-09-2025", "Kore", "You are an interpreter.")
	data, err := EncodeClientMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	setup, ok := got["setup"].(map[string]any)
	if !ok {
		t.Fatalf("missing setup envelope: %s", data)
	}
	if setup["model"] != "models/gemini-2.5-flash-native-audio-preview-09-2025" {
		t.Errorf("model = %v", setup["model"])
	}
	raw := string(data)
	if !strings.Contains(raw, `"responseModalities":["AUDIO"]`) {
		t.Errorf("missing audio modality: %s", raw)
	}
	if !strings.Contains(raw, `"voiceName":"Kore"`) {
		t.Errorf("missing voice name: %s", raw)
	}
	if !strings.Contains(raw, "You are an interpreter.") {
		t.Errorf("missing system instruction: %s", raw)
	}
}

func TestNewSetupOmitsEmptySystemInstruction(t *testing.T) {
	msg := NewSetup("models/m", "Kore", "  ")
	if msg.Setup.SystemInstruction != nil {
		t.Error("blank system instruction should be omitted")
	}
}

func TestNewAudioChunk(t *testing.T) {
	msg := NewAudioChunk(16000, "AAAA")
	data, err := EncodeClientMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	raw := string(data)
	if !strings.Contains(raw, `"mimeType":"audio/pcm;rate=16000"`) {
		t.Errorf("wrong mime type: %s", raw)
	}
	if !strings.Contains(raw, `"data":"AAAA"`) {
		t.Errorf("missing payload: %s", raw)
	}
	if strings.Contains(raw, "setup") {
		t.Errorf("audio chunk must not carry setup: %s", raw)
	}
}

func TestEncodeClientMessageRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		msg  ClientMessage
	}{
		{"empty envelope", ClientMessage{}},
		{"setup without model", ClientMessage{Setup: &Setup{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeClientMessage(tt.msg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecodeServerMessage(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		check   func(t *testing.T, msg ServerMessage)
	}{
		{
			name: "setup complete",
			data: `{"setupComplete":{}}`,
			check: func(t *testing.T, msg ServerMessage) {
				if msg.SetupComplete == nil {
					t.Error("setupComplete not decoded")
				}
			},
		},
		{
			name: "model turn with audio",
			data: `{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"UklGRg=="}},{"text":"hi"},{"inlineData":{"data":"AAAA"}}]}}}`,
			check: func(t *testing.T, msg ServerMessage) {
				got := msg.ServerContent.AudioData()
				if len(got) != 2 || got[0] != "UklGRg==" || got[1] != "AAAA" {
					t.Errorf("audio data = %v", got)
				}
			},
		},
		{
			name: "interrupted",
			data: `{"serverContent":{"interrupted":true}}`,
			check: func(t *testing.T, msg ServerMessage) {
				if !msg.ServerContent.Interrupted {
					t.Error("interrupted not decoded")
				}
				if got := msg.ServerContent.AudioData(); got != nil {
					t.Errorf("unexpected audio data %v", got)
				}
			},
		},
		{
			name: "turn complete",
			data: `{"serverContent":{"turnComplete":true}}`,
			check: func(t *testing.T, msg ServerMessage) {
				if !msg.ServerContent.TurnComplete {
					t.Error("turnComplete not decoded")
				}
			},
		},
		{
			name: "go away",
			data: `{"goAway":{"timeLeft":"10s"}}`,
			check: func(t *testing.T, msg ServerMessage) {
				if msg.GoAway == nil || msg.GoAway.TimeLeft != "10s" {
					t.Errorf("goAway = %+v", msg.GoAway)
				}
			},
		},
		{
			name: "unknown fields ignored",
			data: `{"usageMetadata":{"totalTokenCount":12}}`,
			check: func(t *testing.T, msg ServerMessage) {
				if msg.SetupComplete != nil || msg.ServerContent != nil || msg.GoAway != nil {
					t.Errorf("unknown frame decoded as %+v", msg)
				}
			},
		},
		{
			name:    "invalid json",
			data:    `{"serverContent":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeServerMessage([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			tt.check(t, msg)
		})
	}
}
