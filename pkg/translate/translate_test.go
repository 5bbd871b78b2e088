package translate

import (
	"context"
	"errors"
	"iter"
	"testing"

	"google.golang.org/genai"
)

type fakeStreamer struct {
	chunks []string
	err    error

	calls    int
	gotModel string
	gotCfg   *genai.GenerateContentConfig
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func (f *fakeStreamer) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.calls++
	f.gotModel = model
	f.gotCfg = cfg
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, chunk := range f.chunks {
			if !yield(textResponse(chunk), nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func TestStreamAccumulatesChunks(t *testing.T) {
	f := &fakeStreamer{chunks: []string{"现在", "大家的钱", "都不够用。"}}
	c := NewClientWith(f, "")

	var seen []string
	got, err := c.Stream(context.Background(), "Situasi ekonomi semasa agak meruncing.", func(text string) {
		seen = append(seen, text)
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if want := "现在大家的钱都不够用。"; got != want {
		t.Errorf("result = %q, want %q", got, want)
	}

	want := []string{"现在", "现在大家的钱", "现在大家的钱都不够用。"}
	if len(seen) != len(want) {
		t.Fatalf("sink calls = %d, want %d: %q", len(seen), len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("sink call %d = %q, want %q", i, seen[i], want[i])
		}
	}

	if f.gotModel != DefaultModel {
		t.Errorf("model = %q, want %q", f.gotModel, DefaultModel)
	}
	if f.gotCfg == nil || f.gotCfg.Temperature == nil || *f.gotCfg.Temperature != 0.3 {
		t.Errorf("temperature not set to 0.3: %+v", f.gotCfg)
	}
	if f.gotCfg.SystemInstruction == nil {
		t.Error("system instruction not set")
	}
}

func TestStreamBlankInputMakesNoRequest(t *testing.T) {
	f := &fakeStreamer{chunks: []string{"x"}}
	c := NewClientWith(f, "")

	got, err := c.Stream(context.Background(), "   \n", func(string) {
		t.Error("sink called for blank input")
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got != "" {
		t.Errorf("result = %q, want empty", got)
	}
	if f.calls != 0 {
		t.Errorf("api calls = %d, want 0", f.calls)
	}
}

func TestStreamReturnsPartialOnError(t *testing.T) {
	cause := errors.New("quota exceeded")
	f := &fakeStreamer{chunks: []string{"部分"}, err: cause}
	c := NewClientWith(f, "")

	got, err := c.Stream(context.Background(), "hello", nil)
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
	if got != "部分" {
		t.Errorf("partial result = %q, want 部分", got)
	}
	if f.calls != 1 {
		t.Errorf("api calls = %d, want 1: no retry on failure", f.calls)
	}
}

func TestStreamNilSink(t *testing.T) {
	f := &fakeStreamer{chunks: []string{"a", "b"}}
	c := NewClientWith(f, "custom-model")

	got, err := c.Stream(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got != "ab" {
		t.Errorf("result = %q, want ab", got)
	}
	if f.gotModel != "custom-model" {
		t.Errorf("model = %q", f.gotModel)
	}
}
