package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/getmocknode/mocknode/internal/matching"
	"github.com/getmocknode/mocknode/pkg/diag"
	"github.com/getmocknode/mocknode/pkg/mock"
)

// maxBodyBytes caps how much of a request body is read into the scope.
const maxBodyBytes = 10 << 20

// candidate pairs a matched mock with its captured path parameters.
type candidate struct {
	def    *mock.HTTPDefinition
	params map[string]string
	score  int
}

// serveHTTP handles one request on a shared port: read the body, match
// the most specific mock, select a response, synthesize, and write.
func (r *Registry) serveHTTP(binding *portBinding, w http.ResponseWriter, req *http.Request) {
	body := r.readBody(w, req)

	match, ok := r.match(binding, req)
	if !ok {
		r.log.Debug("no mock matched", "port", binding.port, "method", req.Method, "path", req.URL.Path)
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":  "no_mock_matched",
			"method": req.Method,
			"path":   req.URL.Path,
			"port":   binding.port,
		})
		return
	}
	def := match.def

	if def.Config.DelayMs > 0 {
		select {
		case <-time.After(time.Duration(def.Config.DelayMs) * time.Millisecond):
		case <-req.Context().Done():
			return
		}
	}

	scope := r.store.Scope(def.ProjectID).
		WithRequest(req, body).
		WithParams(match.params)

	resp, err := selectResponse(r.engine, def.Responses, scope)
	if err != nil {
		r.serveSelectionError(binding, w, req, def, err)
		return
	}

	result, err := r.synthesizer.Synthesize(req.Context(), resp, scope)
	if err != nil {
		r.log.Error("response synthesis failed", "id", def.ID, "error", err)
		r.diag.PushNew(diag.EventError, def.ID, def.ProjectID, err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "synthesis_failed",
			"message": err.Error(),
		})
		return
	}

	r.diag.PushNew(diag.EventRequest, def.ID, def.ProjectID, map[string]any{
		"method": req.Method,
		"path":   req.URL.Path,
		"status": statusOrDefault(result.Status),
	})

	header := w.Header()
	for name, values := range result.Headers {
		header[name] = values
	}

	if result.TakeoverSSE != nil {
		r.streams.Start(w, req, result.TakeoverSSE, scope)
		return
	}

	w.WriteHeader(statusOrDefault(result.Status))
	if len(result.Body) > 0 {
		w.Write(result.Body)
	}
}

// readBody drains the request body up to the cap and, for form content
// types, parses it into req.Form so form fields reach the scope. The
// body is restored afterward.
func (r *Registry) readBody(w http.ResponseWriter, req *http.Request) []byte {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		return nil
	}
	req.Body = io.NopCloser(bytes.NewReader(body))

	ct, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	switch {
	case ct == "application/x-www-form-urlencoded":
		req.ParseForm()
	case strings.HasPrefix(ct, "multipart/"):
		req.ParseMultipartForm(maxBodyBytes)
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	return body
}

// match finds the most specific mock on the binding accepting the
// request's method and path. Ties in specificity resolve to the earliest
// registered candidate encountered.
func (r *Registry) match(binding *portBinding, req *http.Request) (*candidate, bool) {
	r.mu.Lock()
	defs := make([]*mock.HTTPDefinition, 0, len(binding.mocks))
	for _, id := range binding.order {
		defs = append(defs, binding.mocks[id])
	}
	r.mu.Unlock()

	var candidates []*candidate
	for _, def := range defs {
		if !def.RequestCondition.MatchesMethod(req.Method) {
			continue
		}
		ok, params := matching.MatchPath(def.RequestCondition.URLPattern, req.URL.Path)
		if !ok {
			continue
		}
		candidates = append(candidates, &candidate{
			def:    def,
			params: params,
			score:  matching.Score(def.RequestCondition.URLPattern),
		})
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score < candidates[j].score
	})
	return candidates[0], true
}

// serveSelectionError maps selection failures to a 500 with a structured
// body and pushes an error event.
func (r *Registry) serveSelectionError(binding *portBinding, w http.ResponseWriter, req *http.Request, def *mock.HTTPDefinition, err error) {
	r.log.Warn("response selection failed", "id", def.ID, "path", req.URL.Path, "error", err)
	r.diag.PushNew(diag.EventError, def.ID, def.ProjectID, err.Error())

	var scriptErr *ConditionScriptError
	if errors.As(err, &scriptErr) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "condition_script_failed",
			"name":    scriptErr.Name,
			"script":  scriptErr.Script,
			"message": scriptErr.Err.Error(),
		})
		return
	}

	var unsatisfied *ConditionsUnsatisfiedError
	if errors.As(err, &unsatisfied) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "no_condition_satisfied",
			"scripts": unsatisfied.Scripts,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error":   "selection_failed",
		"message": err.Error(),
	})
}

func statusOrDefault(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}
