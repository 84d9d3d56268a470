// Package middleware exposes the encoder at HTTP boundaries: a JSON or YAML
// request body is mapped onto a message model and rendered as EDI.
//
// The net/http Handler answers with the EDI text directly. The gin and echo
// adapters in the nested modules store the Encoded result in the request
// context for the next handler instead.
package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	j "github.com/goccy/go-json"

	goedi "github.com/reoring/goedi"
	"github.com/reoring/goedi/mapping"
	"github.com/reoring/goedi/source/gojson"
	"github.com/reoring/goedi/source/yaml"
)

// DefaultMaxBodyBytes bounds request bodies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 1 << 20

// Options configures the encode middleware.
type Options struct {
	Model      *mapping.Model
	Delimiters goedi.Delimiters
	Encode     goedi.EncodeOpt
	// MaxBodyBytes caps the request body (zero means DefaultMaxBodyBytes,
	// negative disables the cap).
	MaxBodyBytes int64
	// ContentType is sent with encoded responses (default text/plain).
	ContentType string
}

// Encoded is the EDI rendition of a request body.
type Encoded struct {
	Body        []byte
	ContentType string
}

type ctxKeyEncoded struct{}

// ContextWithEncoded attaches an Encoded result to the context.
func ContextWithEncoded(ctx context.Context, e Encoded) context.Context {
	return context.WithValue(ctx, ctxKeyEncoded{}, e)
}

// EncodedFromContext retrieves an Encoded result from context.
func EncodedFromContext(ctx context.Context) (Encoded, bool) {
	v, ok := ctx.Value(ctxKeyEncoded{}).(Encoded)
	return v, ok
}

// SourceFor picks the event source for a request content type. YAML media
// types use the YAML driver, everything else is read as JSON.
func SourceFor(contentType string, body io.Reader) goedi.EventSource {
	mt, _, err := mime.ParseMediaType(contentType)
	if err == nil && (strings.HasSuffix(mt, "/yaml") || strings.HasSuffix(mt, "/x-yaml") || strings.HasSuffix(mt, "+yaml")) {
		return yaml.NewReader(body)
	}
	return gojson.NewReader(body)
}

// Encode renders body as EDI according to o.
func Encode(ctx context.Context, body io.Reader, contentType string, o Options) (Encoded, error) {
	if limit := o.maxBody(); limit > 0 {
		b, err := io.ReadAll(io.LimitReader(body, limit+1))
		if err != nil {
			return Encoded{}, err
		}
		if int64(len(b)) > limit {
			return Encoded{}, ErrBodyTooLarge
		}
		body = bytes.NewReader(b)
	}
	var out bytes.Buffer
	if err := goedi.EncodeFrom(ctx, &out, o.Model, o.Delimiters, SourceFor(contentType, body), o.Encode); err != nil {
		return Encoded{}, err
	}
	ct := o.ContentType
	if ct == "" {
		ct = "text/plain; charset=utf-8"
	}
	return Encoded{Body: out.Bytes(), ContentType: ct}, nil
}

// Handler encodes each request body and writes the EDI text as the response.
// Failures are answered with ErrorPayload and the code from Status.
func Handler(o Options) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			w.Header().Set("Allow", "POST, PUT")
			WriteError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		enc, err := Encode(r.Context(), r.Body, r.Header.Get("Content-Type"), o)
		if err != nil {
			WriteError(w, Status(err), err)
			return
		}
		w.Header().Set("Content-Type", enc.ContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(enc.Body)
	})
}

// Status maps an Encode error to an HTTP status code.
func Status(err error) int {
	if errors.Is(err, ErrBodyTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	iss, ok := goedi.AsIssues(err)
	if !ok {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}
	for _, is := range iss {
		if is.Code == goedi.CodeParseError || is.Code == goedi.CodeTruncated {
			return http.StatusBadRequest
		}
	}
	return http.StatusUnprocessableEntity
}

// ErrorPayload shapes an error for JSON responses. Issues keep their code,
// path, message and parameters.
func ErrorPayload(err error) map[string]any {
	iss, ok := goedi.AsIssues(err)
	if !ok {
		return map[string]any{"error": err.Error()}
	}
	out := make([]map[string]any, 0, len(iss))
	for _, is := range iss {
		m := map[string]any{"code": is.Code, "message": is.Message}
		if is.Path != "" {
			m["path"] = is.Path
		}
		if is.Offset >= 0 {
			m["offset"] = is.Offset
		}
		if is.Segment > 0 {
			m["segment"] = is.Segment
		}
		if len(is.Params) > 0 {
			m["params"] = is.Params
		}
		out = append(out, m)
	}
	return map[string]any{"issues": out}
}

// WriteError writes ErrorPayload(err) as JSON with the given status.
func WriteError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = j.NewEncoder(w).Encode(ErrorPayload(err))
}

// ErrBodyTooLarge is returned when a request body exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.New("middleware: request body too large")

func (o Options) maxBody() int64 {
	if o.MaxBodyBytes == 0 {
		return DefaultMaxBodyBytes
	}
	return o.MaxBodyBytes
}
