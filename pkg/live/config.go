package live

const (
	// DefaultModel is the native-audio dialog model used for spoken
	// conversation.
	DefaultModel = "models/gemini-2.5-flash-native-audio-preview-09-2025"

	// DefaultVoice is the prebuilt voice for spoken replies.
	DefaultVoice = "Kore"

	// DefaultInputSampleRate is the microphone capture rate the live
	// endpoint expects.
	DefaultInputSampleRate = 16000

	// DefaultOutputSampleRate is the rate of model audio output.
	DefaultOutputSampleRate = 24000

	// DefaultFrameSamples is the per-frame sample count sent upstream.
	DefaultFrameSamples = 4096
)

// DefaultSystemInstruction makes the model behave as a two-way spoken
// interpreter rather than a conversational assistant.
const DefaultSystemInstruction = "You are a professional real-time interpreter between Malay and Mandarin Chinese. " +
	"When the user speaks Malay, respond with the Mandarin translation spoken aloud. " +
	"When the user speaks Mandarin, respond with the Malay translation spoken aloud. " +
	"You understand regional dialects, slang, and colloquialisms in both languages. " +
	"Speak only the translation. Do not add commentary, answer questions, or hold a conversation of your own."

// Config controls a live interpreter session. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	Model             string
	Voice             string
	SystemInstruction string

	InputSampleRate  int
	OutputSampleRate int
	FrameSamples     int
}

// DefaultConfig returns the standard Malay and Mandarin interpreter
// session settings.
func DefaultConfig() Config {
	return Config{
		Model:             DefaultModel,
		Voice:             DefaultVoice,
		SystemInstruction: DefaultSystemInstruction,
		InputSampleRate:   DefaultInputSampleRate,
		OutputSampleRate:  DefaultOutputSampleRate,
		FrameSamples:      DefaultFrameSamples,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.Voice == "" {
		c.Voice = d.Voice
	}
	if c.SystemInstruction == "" {
		c.SystemInstruction = d.SystemInstruction
	}
	if c.InputSampleRate <= 0 {
		c.InputSampleRate = d.InputSampleRate
	}
	if c.OutputSampleRate <= 0 {
		c.OutputSampleRate = d.OutputSampleRate
	}
	if c.FrameSamples <= 0 {
		c.FrameSamples = d.FrameSamples
	}
	return c
}
