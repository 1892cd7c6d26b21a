package recognize

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"multi-transcriber/internal/command"
	"multi-transcriber/internal/config"
	"multi-transcriber/internal/domain"
	"multi-transcriber/internal/transcript"
)

// WhisperCPP runs the whisper.cpp command-line tool and reads its JSON output.
type WhisperCPP struct {
	argv     []string
	modelDir string
	threads  int
	runner   command.Runner
	onLog    func(command.Log)
	stat     func(name string) (os.FileInfo, error)
}

// NewWhisperCPP parses cfg.Command into argv and builds the backend.
func NewWhisperCPP(cfg config.RecognizerConfig) (*WhisperCPP, error) {
	parser := shellwords.NewParser()
	argv, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse recognizer command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("recognizer command is empty")
	}
	return &WhisperCPP{
		argv:     argv,
		modelDir: cfg.ModelDir,
		threads:  cfg.Threads,
		runner:   &command.ExecRunner{},
		stat:     os.Stat,
	}, nil
}

// Executable returns the program name used for recognition.
func (w *WhisperCPP) Executable() string {
	return w.argv[0]
}

// SetRunner replaces the process runner.
func (w *WhisperCPP) SetRunner(r command.Runner) {
	w.runner = r
}

// SetCommandLog registers a callback for every recognizer invocation.
func (w *WhisperCPP) SetCommandLog(cb func(command.Log)) {
	w.onLog = cb
}

// Load resolves modelID to a ggml file in the model directory.
func (w *WhisperCPP) Load(ctx context.Context, modelID, device string) (Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, ok := LookupModel(modelID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidModel, modelID)
	}

	path := filepath.Join(w.modelDir, entry.FileName)
	info, err := w.stat(path)
	if err != nil {
		return nil, &ModelLoadError{ModelID: modelID, Device: device, Err: fmt.Errorf("model file not available: %w", err)}
	}
	if info.IsDir() || info.Size() == 0 {
		return nil, &ModelLoadError{ModelID: modelID, Device: device, Err: fmt.Errorf("model file is empty or a directory: %s", path)}
	}

	return &whisperModel{backend: w, path: path, device: device}, nil
}

type whisperModel struct {
	backend *WhisperCPP
	path    string
	device  string
}

func (m *whisperModel) Transcribe(ctx context.Context, audioPath string, opts Options) ([]transcript.Segment, error) {
	outDir, err := os.MkdirTemp(opts.WorkDir, "whisper-out-*")
	if err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	outBase := filepath.Join(outDir, "result")
	name := m.backend.argv[0]
	args := append(append([]string{}, m.backend.argv[1:]...), buildWhisperArgs(m.path, audioPath, outBase, m.device, m.backend.threads, opts)...)

	res, runErr := m.backend.runner.Run(ctx, name, args...)
	log := command.NewLog(name, args, res)
	if m.backend.onLog != nil {
		m.backend.onLog(log)
	}
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("whisper.cpp transcription failed (exit=%d): %w: %s", res.ExitCode, runErr, strings.TrimSpace(res.Stderr))
	}

	data, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp completed but json output is missing: %w", err)
	}
	return parseWhisperJSON(data)
}

// buildWhisperArgs builds whisper.cpp args for JSON transcript export.
func buildWhisperArgs(modelPath, audioPath, outBase, device string, threads int, opts Options) []string {
	lang := strings.TrimSpace(opts.Language)
	if isAutoLanguage(lang) {
		lang = "auto"
	}

	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", outBase,
		"-oj",
		"-np",
		"-l", lang,
	}
	if opts.Mode == domain.ModeTranslate {
		args = append(args, "-tr")
	}
	if strings.EqualFold(device, "cpu") {
		args = append(args, "-ng")
	}
	if threads > 0 {
		args = append(args, "-t", strconv.Itoa(threads))
	}
	return args
}

type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseWhisperJSON converts whisper.cpp -oj output into segments. Offsets
// are milliseconds; blank segments are dropped.
func parseWhisperJSON(data []byte) ([]transcript.Segment, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode whisper.cpp json: %w", err)
	}

	segments := make([]transcript.Segment, 0, len(out.Transcription))
	for _, item := range out.Transcription {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		segments = append(segments, transcript.Segment{
			Start: float64(item.Offsets.From) / 1000,
			End:   float64(item.Offsets.To) / 1000,
			Text:  text,
		})
	}
	return segments, nil
}
