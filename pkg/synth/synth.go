// Package synth builds response bodies for every mock data type: fixed,
// random, and AI-assisted JSON and text, generated or file-backed images,
// file and binary downloads, redirects, and the SSE takeover sentinel.
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/getmocknode/mocknode/pkg/ai"
	"github.com/getmocknode/mocknode/pkg/assets"
	"github.com/getmocknode/mocknode/pkg/logging"
	"github.com/getmocknode/mocknode/pkg/mock"
	"github.com/getmocknode/mocknode/pkg/template"
	"github.com/getmocknode/mocknode/pkg/vars"
)

// aiTimeout bounds a single completion call during synthesis.
const aiTimeout = 20 * time.Second

// Result is a synthesized response ready to write. When TakeoverSSE is
// set, the transport is handed to the SSE session controller instead and
// the remaining fields are ignored.
type Result struct {
	Status  int
	Headers http.Header
	Body    []byte

	TakeoverSSE *mock.SSEConfig
}

// Synthesizer turns a selected response definition and a variable scope
// into a concrete response.
type Synthesizer struct {
	engine   *template.Engine
	resolver *assets.Resolver
	provider ai.Provider
	log      *slog.Logger
}

// Option customizes a Synthesizer.
type Option func(*Synthesizer)

// WithProvider sets the AI completion collaborator.
func WithProvider(p ai.Provider) Option {
	return func(s *Synthesizer) { s.provider = p }
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Synthesizer) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Synthesizer. The resolver locates file-backed sources.
func New(engine *template.Engine, resolver *assets.Resolver, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		engine:   engine,
		resolver: resolver,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize builds the response for def against scope. Errors are
// returned for the caller to map to HTTP 500; the serving loop itself
// never terminates on a synthesis failure.
func (s *Synthesizer) Synthesize(ctx context.Context, def *mock.ResponseDefinition, scope *vars.Scope) (*Result, error) {
	res := &Result{
		Status:  def.StatusCode,
		Headers: make(http.Header),
	}

	var err error
	switch def.DataType {
	case mock.DataTypeJSON:
		err = s.synthesizeJSON(ctx, def, scope, res)
	case mock.DataTypeText:
		err = s.synthesizeText(ctx, def, scope, res)
	case mock.DataTypeImage:
		err = s.synthesizeImage(def, res)
	case mock.DataTypeFile:
		err = s.synthesizeFile(def, res)
	case mock.DataTypeBinary:
		err = s.synthesizeBinary(def, res)
	case mock.DataTypeRedirect:
		err = s.synthesizeRedirect(def, scope, res)
	case mock.DataTypeSSE:
		// The transport is taken over by the SSE session controller;
		// declared headers still apply before the stream starts.
		res.TakeoverSSE = def.SSE
	default:
		err = fmt.Errorf("unknown data type %q", def.DataType)
	}
	if err != nil {
		return nil, err
	}

	s.applyDeclaredHeaders(def, scope, res)
	return res, nil
}

// applyDeclaredHeaders writes the mock's declared headers over the result.
// Declared headers always win: an auto-computed Content-Type or
// Content-Disposition survives only when the declared set has no
// case-insensitive entry for that name.
func (s *Synthesizer) applyDeclaredHeaders(def *mock.ResponseDefinition, scope *vars.Scope, res *Result) {
	for _, pair := range def.Headers.All() {
		value := template.Stringify(s.engine.Substitute(pair.Value, scope))
		res.Headers.Set(pair.Name, value)
	}
}

// setComputed applies an auto-computed header unless the definition
// declares its own.
func setComputed(def *mock.ResponseDefinition, res *Result, name, value string) {
	if !def.Headers.Has(name) {
		res.Headers.Set(name, value)
	}
}

func (s *Synthesizer) synthesizeJSON(ctx context.Context, def *mock.ResponseDefinition, scope *vars.Scope, res *Result) error {
	cfg := def.JSON
	if cfg == nil {
		return fmt.Errorf("json response missing jsonConfig")
	}

	var body string
	switch cfg.Mode {
	case mock.ModeFixed:
		substituted, err := s.engine.SubstituteJSON(cfg.Payload, scope)
		if err != nil {
			return err
		}
		body = substituted
	case mock.ModeRandom:
		data, err := json.Marshal(RandomJSON(cfg.Size))
		if err != nil {
			return err
		}
		body = string(data)
	case mock.ModeAIGenerated:
		body = s.aiJSON(ctx, cfg.Prompt)
	default:
		return fmt.Errorf("unknown json mode %q", cfg.Mode)
	}

	res.Body = []byte(body)
	setComputed(def, res, "Content-Type", "application/json; charset=utf-8")
	return nil
}

// aiJSON asks the provider for a JSON document. Any failure, including
// output that does not parse as JSON, yields a structured error object;
// it never propagates to the caller.
func (s *Synthesizer) aiJSON(ctx context.Context, prompt string) string {
	text, err := s.complete(ctx, prompt, "json")
	if err == nil {
		var probe any
		if json.Unmarshal([]byte(text), &probe) == nil {
			return text
		}
		err = ai.ErrInvalidResponse
	}

	s.log.Warn("ai json generation failed", "error", err)
	fallback, _ := json.Marshal(map[string]any{
		"error":   "ai_generation_failed",
		"message": err.Error(),
	})
	return string(fallback)
}

func (s *Synthesizer) synthesizeText(ctx context.Context, def *mock.ResponseDefinition, scope *vars.Scope, res *Result) error {
	cfg := def.Text
	if cfg == nil {
		return fmt.Errorf("text response missing textConfig")
	}

	textType := cfg.TextType
	if textType == "" {
		textType = mock.TextPlain
	}

	var body string
	switch cfg.Mode {
	case mock.ModeFixed:
		body = template.Stringify(s.engine.Substitute(cfg.Payload, scope))
	case mock.ModeRandom:
		body = RandomText(textType, cfg.Length)
	case mock.ModeAIGenerated:
		text, err := s.complete(ctx, cfg.Prompt, string(textType))
		if err != nil {
			// AI failures must never surface to the client: fall back to
			// the random generator of the same sub-type.
			s.log.Warn("ai text generation failed, using random fallback",
				"textType", textType, "error", err)
			text = RandomText(textType, cfg.Length)
		}
		body = text
	default:
		return fmt.Errorf("unknown text mode %q", cfg.Mode)
	}

	res.Body = []byte(body)
	setComputed(def, res, "Content-Type", textMIME(textType))
	return nil
}

func textMIME(t mock.TextType) string {
	switch t {
	case mock.TextHTML:
		return "text/html; charset=utf-8"
	case mock.TextXML:
		return "application/xml; charset=utf-8"
	case mock.TextYAML:
		return "application/yaml"
	case mock.TextCSV:
		return "text/csv; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

func (s *Synthesizer) complete(ctx context.Context, prompt, formatHint string) (string, error) {
	if s.provider == nil {
		return "", ai.ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, aiTimeout)
	defer cancel()
	resp, err := s.provider.Complete(ctx, &ai.CompletionRequest{
		Prompt:     prompt,
		FormatHint: formatHint,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (s *Synthesizer) synthesizeImage(def *mock.ResponseDefinition, res *Result) error {
	cfg := def.Image
	if cfg == nil {
		return fmt.Errorf("image response missing imageConfig")
	}

	switch cfg.Mode {
	case mock.ModeFixed:
		data, path, err := s.resolver.Read(cfg.Source)
		if err != nil {
			return err
		}
		res.Body = data
		setComputed(def, res, "Content-Type", assets.MIMEByExtension(path))
		return nil
	case mock.ModeRandom:
		data, mimeType, err := Placeholder(cfg)
		if err != nil {
			return err
		}
		res.Body = data
		setComputed(def, res, "Content-Type", mimeType)
		return nil
	default:
		return fmt.Errorf("unknown image mode %q", cfg.Mode)
	}
}

func (s *Synthesizer) synthesizeFile(def *mock.ResponseDefinition, res *Result) error {
	cfg := def.File
	if cfg == nil {
		return fmt.Errorf("file response missing fileConfig")
	}

	var data []byte
	var path string
	var err error
	if cfg.Source != "" {
		data, path, err = s.resolver.Read(cfg.Source)
	} else {
		data, path, err = s.resolver.Sample(cfg.Extension)
	}
	if err != nil {
		return err
	}

	filename := cfg.Filename
	if filename == "" {
		filename = filepath.Base(path)
	}

	res.Body = data
	setComputed(def, res, "Content-Type", assets.MIMEByExtension(path))
	setComputed(def, res, "Content-Disposition", assets.ContentDisposition(filename))
	return nil
}

func (s *Synthesizer) synthesizeBinary(def *mock.ResponseDefinition, res *Result) error {
	cfg := def.Binary
	if cfg == nil || cfg.Source == "" {
		return fmt.Errorf("binary response requires an explicit source path")
	}
	data, path, err := s.resolver.Read(cfg.Source)
	if err != nil {
		return err
	}
	res.Body = data
	setComputed(def, res, "Content-Type", assets.MIMEByExtension(path))
	return nil
}

func (s *Synthesizer) synthesizeRedirect(def *mock.ResponseDefinition, scope *vars.Scope, res *Result) error {
	cfg := def.Redirect
	if cfg == nil {
		return fmt.Errorf("redirect response missing redirectConfig")
	}
	location := template.Stringify(s.engine.Substitute(cfg.Location, scope))
	res.Status = cfg.StatusCode
	res.Headers.Set("Location", location)
	res.Body = nil
	return nil
}
