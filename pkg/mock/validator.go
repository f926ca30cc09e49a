package mock

import (
	"fmt"
	"strings"
)

// ValidationError describes a single invalid field in a definition.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates all problems found in one definition.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (errs ValidationErrors) add(field, format string, args ...any) ValidationErrors {
	return append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true, MethodAll: true,
}

// ValidateHTTP checks the structural invariants the engine depends on.
// It returns nil or a ValidationErrors listing every problem.
func ValidateHTTP(d *HTTPDefinition) error {
	var errs ValidationErrors

	if d == nil {
		return ValidationErrors{{Field: "definition", Message: "is nil"}}
	}
	if d.ID == "" {
		errs = errs.add("id", "is required")
	}
	if d.RequestCondition.Port < 1 || d.RequestCondition.Port > 65535 {
		errs = errs.add("requestCondition.port", "must be 1-65535, got %d", d.RequestCondition.Port)
	}
	if len(d.RequestCondition.Methods) == 0 {
		errs = errs.add("requestCondition.methods", "must not be empty")
	}
	for i, m := range d.RequestCondition.Methods {
		if !knownMethods[strings.ToUpper(m)] {
			errs = errs.add(fmt.Sprintf("requestCondition.methods[%d]", i), "unknown method %q", m)
		}
	}
	if !strings.HasPrefix(d.RequestCondition.URLPattern, "/") {
		errs = errs.add("requestCondition.urlPattern", "must start with /")
	}
	if len(d.Responses) == 0 {
		errs = errs.add("responses", "must not be empty")
	}
	for i, r := range d.Responses {
		errs = append(errs, validateResponse(fmt.Sprintf("responses[%d]", i), r)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateResponse(field string, r *ResponseDefinition) ValidationErrors {
	var errs ValidationErrors

	if r == nil {
		return errs.add(field, "is nil")
	}
	if r.DataType != DataTypeRedirect && (r.StatusCode < 100 || r.StatusCode > 599) {
		errs = errs.add(field+".statusCode", "must be 100-599, got %d", r.StatusCode)
	}

	switch r.DataType {
	case DataTypeJSON:
		if r.JSON == nil {
			errs = errs.add(field+".jsonConfig", "required for dataType json")
		}
	case DataTypeText:
		if r.Text == nil {
			errs = errs.add(field+".textConfig", "required for dataType text")
		}
	case DataTypeImage:
		if r.Image == nil {
			errs = errs.add(field+".imageConfig", "required for dataType image")
		} else if r.Image.Mode == ModeFixed && r.Image.Source == "" {
			errs = errs.add(field+".imageConfig.source", "required for fixed mode")
		}
	case DataTypeFile:
		if r.File == nil {
			errs = errs.add(field+".fileConfig", "required for dataType file")
		}
	case DataTypeBinary:
		if r.Binary == nil || r.Binary.Source == "" {
			errs = errs.add(field+".binaryConfig.source", "required for dataType binary")
		}
	case DataTypeSSE:
		if r.SSE == nil {
			errs = errs.add(field+".sseConfig", "required for dataType sse")
		}
	case DataTypeRedirect:
		if r.Redirect == nil {
			errs = errs.add(field+".redirectConfig", "required for dataType redirect")
		} else {
			if r.Redirect.Location == "" {
				errs = errs.add(field+".redirectConfig.location", "is required")
			}
			switch r.Redirect.StatusCode {
			case 301, 302, 303, 307, 308:
			default:
				errs = errs.add(field+".redirectConfig.statusCode", "must be a redirect status, got %d", r.Redirect.StatusCode)
			}
		}
	default:
		errs = errs.add(field+".dataType", "unknown data type %q", r.DataType)
	}

	return errs
}

// ValidateWS checks the structural invariants of a WebSocket definition.
func ValidateWS(d *WSDefinition) error {
	var errs ValidationErrors

	if d == nil {
		return ValidationErrors{{Field: "definition", Message: "is nil"}}
	}
	if d.ID == "" {
		errs = errs.add("id", "is required")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = errs.add("port", "must be 1-65535, got %d", d.Port)
	}
	if !strings.HasPrefix(d.Path, "/") {
		errs = errs.add("path", "must start with /")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
