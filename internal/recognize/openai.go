package recognize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"multi-transcriber/internal/config"
	"multi-transcriber/internal/domain"
	"multi-transcriber/internal/transcript"
)

// audioClient is the subset of the OpenAI client used for recognition.
type audioClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
	CreateTranslation(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// OpenAI sends audio to the hosted Whisper API. Every allow-listed model id
// maps to the hosted whisper-1 model; the device is ignored.
type OpenAI struct {
	client audioClient
	apiKey string
}

// NewOpenAI builds the hosted backend.
func NewOpenAI(cfg config.OpenAIConfig) *OpenAI {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		apiKey: cfg.APIKey,
	}
}

// Load checks that the backend is usable.
func (o *OpenAI) Load(ctx context.Context, modelID, device string) (Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(o.apiKey) == "" {
		return nil, &ModelLoadError{ModelID: modelID, Device: device, Err: errors.New("openai api key is not configured")}
	}
	return &openAIModel{client: o.client}, nil
}

type openAIModel struct {
	client audioClient
}

func (m *openAIModel) Transcribe(ctx context.Context, audioPath string, opts Options) ([]transcript.Segment, error) {
	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	if lang := strings.TrimSpace(opts.Language); !isAutoLanguage(lang) {
		req.Language = lang
	}

	var (
		resp openai.AudioResponse
		err  error
	)
	if opts.Mode == domain.ModeTranslate {
		resp, err = m.client.CreateTranslation(ctx, req)
	} else {
		resp, err = m.client.CreateTranscription(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("openai %s: %w", opts.Mode, err)
	}

	segments := make([]transcript.Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, transcript.Segment{Start: seg.Start, End: seg.End, Text: text})
	}
	if len(segments) == 0 && strings.TrimSpace(resp.Text) != "" {
		segments = append(segments, transcript.Segment{Start: 0, End: resp.Duration, Text: strings.TrimSpace(resp.Text)})
	}
	return segments, nil
}
