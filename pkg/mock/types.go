// Package mock defines the mock node definition types consumed by the
// serving engine. Definitions are authored by the host application and
// handed to the engine fully formed; the engine never persists them.
package mock

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DataType identifies the kind of body a response definition produces.
type DataType string

// Supported response data types.
const (
	DataTypeJSON     DataType = "json"
	DataTypeText     DataType = "text"
	DataTypeImage    DataType = "image"
	DataTypeFile     DataType = "file"
	DataTypeBinary   DataType = "binary"
	DataTypeSSE      DataType = "sse"
	DataTypeRedirect DataType = "redirect"
)

// GenerateMode selects how a json/text/image payload is produced.
type GenerateMode string

// Generation modes.
const (
	ModeFixed       GenerateMode = "fixed"
	ModeRandom      GenerateMode = "random"
	ModeAIGenerated GenerateMode = "aiGenerated"
)

// MethodAll is the wildcard entry in a request condition's method list.
const MethodAll = "ALL"

// HTTPDefinition describes one HTTP mock node: how requests are matched
// on its port and the ordered list of candidate responses.
type HTTPDefinition struct {
	ID        string `json:"id" yaml:"id"`
	ProjectID string `json:"projectId" yaml:"projectId"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`

	// RequestCondition declares the port, accepted methods, and URL pattern.
	RequestCondition RequestCondition `json:"requestCondition" yaml:"requestCondition"`

	// Config holds per-mock serving knobs.
	Config NodeConfig `json:"config" yaml:"config"`

	// Responses is the ordered candidate list. Order is significant:
	// the first response whose condition is satisfied wins.
	Responses []*ResponseDefinition `json:"responses" yaml:"responses"`
}

// RequestCondition declares what inbound traffic a mock answers.
type RequestCondition struct {
	Port int `json:"port" yaml:"port"`

	// Methods lists accepted HTTP methods; the literal "ALL" matches any.
	Methods []string `json:"methods" yaml:"methods"`

	// URLPattern supports literal segments, ":param" segments, and "*".
	URLPattern string `json:"urlPattern" yaml:"urlPattern"`
}

// MatchesMethod reports whether the condition accepts the given method.
func (rc *RequestCondition) MatchesMethod(method string) bool {
	for _, m := range rc.Methods {
		if m == MethodAll || strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// NodeConfig holds per-mock serving configuration.
type NodeConfig struct {
	// DelayMs delays every response by the given number of milliseconds.
	DelayMs int `json:"delayMs,omitempty" yaml:"delayMs,omitempty"`
}

// HeaderPair is one declared response header. Disabled pairs are kept in
// the definition (the editor round-trips them) but never written.
type HeaderPair struct {
	Name    string `json:"name" yaml:"name"`
	Value   string `json:"value" yaml:"value"`
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the pair should be written. Nil means enabled.
func (h *HeaderPair) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// HeaderSet groups the default and custom header pairs of a response.
type HeaderSet struct {
	Default []HeaderPair `json:"default,omitempty" yaml:"default,omitempty"`
	Custom  []HeaderPair `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// All returns every enabled pair, defaults first.
func (hs *HeaderSet) All() []HeaderPair {
	out := make([]HeaderPair, 0, len(hs.Default)+len(hs.Custom))
	for _, p := range hs.Default {
		if p.IsEnabled() {
			out = append(out, p)
		}
	}
	for _, p := range hs.Custom {
		if p.IsEnabled() {
			out = append(out, p)
		}
	}
	return out
}

// Has reports whether an enabled pair with the given name exists,
// compared case-insensitively.
func (hs *HeaderSet) Has(name string) bool {
	for _, p := range hs.All() {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// Condition gates a response definition behind a sandboxed script.
type Condition struct {
	// Enabled turns the gate on. A disabled condition always selects.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// ScriptCode is the expression evaluated against the variable scope.
	// Empty code is satisfied.
	ScriptCode string `json:"scriptCode,omitempty" yaml:"scriptCode,omitempty"`

	// Name labels the condition in diagnostics. A name starting with "@"
	// marks the script as do-not-evaluate.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ResponseDefinition is one candidate answer a mock may give.
type ResponseDefinition struct {
	StatusCode int       `json:"statusCode" yaml:"statusCode"`
	Headers    HeaderSet `json:"headers" yaml:"headers"`
	DataType   DataType  `json:"dataType" yaml:"dataType"`
	Conditions Condition `json:"conditions" yaml:"conditions"`

	// Exactly one of the following is populated, keyed by DataType.
	JSON     *JSONConfig     `json:"jsonConfig,omitempty" yaml:"jsonConfig,omitempty"`
	Text     *TextConfig     `json:"textConfig,omitempty" yaml:"textConfig,omitempty"`
	Image    *ImageConfig    `json:"imageConfig,omitempty" yaml:"imageConfig,omitempty"`
	File     *FileConfig     `json:"fileConfig,omitempty" yaml:"fileConfig,omitempty"`
	Binary   *BinaryConfig   `json:"binaryConfig,omitempty" yaml:"binaryConfig,omitempty"`
	SSE      *SSEConfig      `json:"sseConfig,omitempty" yaml:"sseConfig,omitempty"`
	Redirect *RedirectConfig `json:"redirectConfig,omitempty" yaml:"redirectConfig,omitempty"`
}

// JSONConfig configures a json response.
type JSONConfig struct {
	Mode GenerateMode `json:"mode" yaml:"mode"`

	// Payload is the literal JSON document for fixed mode. Template
	// tokens are substituted in values first, then in keys.
	Payload string `json:"payload,omitempty" yaml:"payload,omitempty"`

	// Size controls the top-level field count for random mode (1-9999).
	Size int `json:"size,omitempty" yaml:"size,omitempty"`

	// Prompt drives aiGenerated mode.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// TextType selects the random/AI text sub-format.
type TextType string

// Text sub-formats.
const (
	TextPlain TextType = "plain"
	TextHTML  TextType = "html"
	TextXML   TextType = "xml"
	TextYAML  TextType = "yaml"
	TextCSV   TextType = "csv"
)

// TextConfig configures a text response.
type TextConfig struct {
	Mode     GenerateMode `json:"mode" yaml:"mode"`
	TextType TextType     `json:"textType,omitempty" yaml:"textType,omitempty"`
	Payload  string       `json:"payload,omitempty" yaml:"payload,omitempty"`

	// Length sizes random generation (paragraphs, rows, or elements,
	// depending on TextType).
	Length int `json:"length,omitempty" yaml:"length,omitempty"`

	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// ImageConfig configures an image response.
type ImageConfig struct {
	Mode GenerateMode `json:"mode" yaml:"mode"`

	// Source is the file path for fixed mode.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Width/Height size the generated placeholder for random mode.
	Width  int `json:"width,omitempty" yaml:"width,omitempty"`
	Height int `json:"height,omitempty" yaml:"height,omitempty"`

	// Format is svg, png, jpeg, or webp.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// TargetSizeKB pads the byte stream up to the requested size.
	// The stream is never truncated.
	TargetSizeKB int `json:"targetSizeKB,omitempty" yaml:"targetSizeKB,omitempty"`
}

// FileConfig configures a file download response. An empty Source resolves
// a bundled sample by Extension.
type FileConfig struct {
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
	Extension string `json:"extension,omitempty" yaml:"extension,omitempty"`

	// Filename overrides the download name in Content-Disposition.
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
}

// BinaryConfig configures an arbitrary binary response. Source is required.
type BinaryConfig struct {
	Source string `json:"source" yaml:"source"`
}

// SSEIDPolicy selects how SSE event ids are computed.
type SSEIDPolicy string

// SSE id policies.
const (
	SSEIDIncrement SSEIDPolicy = "increment"
	SSEIDRandom    SSEIDPolicy = "random"
	SSEIDTimestamp SSEIDPolicy = "timestamp"
)

// SSEConfig configures a Server-Sent-Events streaming response.
type SSEConfig struct {
	// IntervalMs is the gap between events. Floor 100.
	IntervalMs int `json:"intervalMs" yaml:"intervalMs"`

	// MaxEvents caps the stream. Floor 1.
	MaxEvents int `json:"maxEvents" yaml:"maxEvents"`

	// ID configures the optional id: field.
	IDEnabled bool        `json:"idEnabled,omitempty" yaml:"idEnabled,omitempty"`
	IDPolicy  SSEIDPolicy `json:"idPolicy,omitempty" yaml:"idPolicy,omitempty"`

	// Event configures the optional event: field.
	EventEnabled bool   `json:"eventEnabled,omitempty" yaml:"eventEnabled,omitempty"`
	EventName    string `json:"eventName,omitempty" yaml:"eventName,omitempty"`

	// Retry configures the optional retry: field, in milliseconds.
	RetryEnabled bool `json:"retryEnabled,omitempty" yaml:"retryEnabled,omitempty"`
	RetryMs      int  `json:"retryMs,omitempty" yaml:"retryMs,omitempty"`

	// Data is the event payload: a literal string, or a JSON document
	// re-serialized compactly when DataIsJSON is set.
	Data       string `json:"data" yaml:"data"`
	DataIsJSON bool   `json:"dataIsJson,omitempty" yaml:"dataIsJson,omitempty"`
}

// RedirectConfig configures an HTTP redirect response.
type RedirectConfig struct {
	// StatusCode is the redirect status (301, 302, 307, 308).
	StatusCode int `json:"statusCode" yaml:"statusCode"`

	// Location is the target URL; template tokens are substituted.
	Location string `json:"location" yaml:"location"`
}

// WSDefinition describes one WebSocket mock node. Multiple definitions
// may share a port but must declare distinct paths.
type WSDefinition struct {
	ID        string `json:"id" yaml:"id"`
	ProjectID string `json:"projectId" yaml:"projectId"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`

	Port int    `json:"port" yaml:"port"`
	Path string `json:"path" yaml:"path"`

	// Welcome is sent once after DelayMs, if enabled and the socket is
	// still open at fire time.
	Welcome *WSMessage `json:"welcome,omitempty" yaml:"welcome,omitempty"`

	// Reply is sent after DelayMs in answer to every inbound message.
	Reply *WSMessage `json:"reply,omitempty" yaml:"reply,omitempty"`

	// DelayMs applies to both welcome and reply sends.
	DelayMs int `json:"delayMs,omitempty" yaml:"delayMs,omitempty"`
}

// WSMessage is a frame the mock pushes to a connected client.
type WSMessage struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Payload string `json:"payload" yaml:"payload"`
}

// Collection is a set of definitions loaded from a file by the CLI.
type Collection struct {
	Name      string            `json:"name,omitempty" yaml:"name,omitempty"`
	Variables map[string]any    `json:"variables,omitempty" yaml:"variables,omitempty"`
	HTTP      []*HTTPDefinition `json:"http,omitempty" yaml:"http,omitempty"`
	WebSocket []*WSDefinition   `json:"websocket,omitempty" yaml:"websocket,omitempty"`
}

// ParseCollection decodes a YAML or JSON collection document.
func ParseCollection(data []byte) (*Collection, error) {
	var c Collection
	trimmed := strings.TrimLeft(string(data), " \t\r\n")
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse collection: %w", err)
		}
		return &c, nil
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse collection: %w", err)
	}
	return &c, nil
}

// Clone returns a deep copy of the definition. The engine holds copies so
// later edits by the caller cannot race the serving path.
func (d *HTTPDefinition) Clone() *HTTPDefinition {
	if d == nil {
		return nil
	}
	out := *d
	out.RequestCondition.Methods = append([]string(nil), d.RequestCondition.Methods...)
	out.Responses = make([]*ResponseDefinition, len(d.Responses))
	for i, r := range d.Responses {
		cp := *r
		cp.Headers.Default = append([]HeaderPair(nil), r.Headers.Default...)
		cp.Headers.Custom = append([]HeaderPair(nil), r.Headers.Custom...)
		out.Responses[i] = &cp
	}
	return &out
}

// Clone returns a copy of the WebSocket definition.
func (d *WSDefinition) Clone() *WSDefinition {
	if d == nil {
		return nil
	}
	out := *d
	if d.Welcome != nil {
		w := *d.Welcome
		out.Welcome = &w
	}
	if d.Reply != nil {
		r := *d.Reply
		out.Reply = &r
	}
	return &out
}
