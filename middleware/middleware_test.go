package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	j "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goedi "github.com/reoring/goedi"
	"github.com/reoring/goedi/mapping"
	"github.com/reoring/goedi/middleware"
)

func options() middleware.Options {
	return middleware.Options{
		Model: &mapping.Model{Root: mapping.Group("Order",
			mapping.Segment("UNH", "header", mapping.Leaf("ref"), mapping.Composite("type", mapping.Comp("id"), mapping.Comp("version"))).Truncate(),
			mapping.Segment("NAD", "party", mapping.Leaf("qualifier"), mapping.Leaf("id")).Truncate().Occurs(0, mapping.Unbounded),
		)},
		Delimiters: goedi.EDIFACTDelimiters(),
		Encode:     goedi.EncodeOpt{TerminateSegments: true},
	}
}

func post(h http.Handler, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_EncodesJSON(t *testing.T) {
	rec := post(middleware.Handler(options()), "application/json",
		`{"Order":{"header":{"ref":"1","type":{"id":"ORDERS","version":"D"}},"party":[{"qualifier":"BY"},{"qualifier":"SU","id":"9"}]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "UNH+1+ORDERS:D'NAD+BY'NAD+SU+9'", rec.Body.String())
}

func TestHandler_EncodesYAML(t *testing.T) {
	body := "Order:\n  header:\n    ref: 7\n  party:\n    - qualifier: BY\n"
	rec := post(middleware.Handler(options()), "application/yaml; charset=utf-8", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UNH+7'NAD+BY'", rec.Body.String())
}

func TestHandler_Errors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"schema mismatch", `{"Order":{"header":{"bogus":"x"}}}`, http.StatusUnprocessableEntity, goedi.CodeSchemaMismatch},
		{"malformed", `{"Order":{"header":`, http.StatusBadRequest, ""},
		{"root not object", `["Order"]`, http.StatusBadRequest, goedi.CodeParseError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(middleware.Handler(options()), "application/json", tc.body)
			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var payload struct {
				Issues []struct {
					Code string `json:"code"`
					Path string `json:"path"`
				} `json:"issues"`
			}
			require.NoError(t, j.Unmarshal(rec.Body.Bytes(), &payload))
			require.NotEmpty(t, payload.Issues)
			if tc.code != "" {
				assert.Equal(t, tc.code, payload.Issues[0].Code)
			}
		})
	}
}

func TestHandler_BodyLimitAndMethod(t *testing.T) {
	o := options()
	o.MaxBodyBytes = 8
	rec := post(middleware.Handler(o), "application/json", `{"Order":{"header":{"ref":"1"}}}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "too large")

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec = httptest.NewRecorder()
	middleware.Handler(options()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST, PUT", rec.Header().Get("Allow"))
}

func TestEncode_ContextRoundTrip(t *testing.T) {
	enc, err := middleware.Encode(context.Background(), strings.NewReader(`{"Order":{"header":{"ref":"1"}}}`), "", options())
	require.NoError(t, err)

	ctx := middleware.ContextWithEncoded(context.Background(), enc)
	got, ok := middleware.EncodedFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "UNH+1'", string(got.Body))

	_, ok = middleware.EncodedFromContext(context.Background())
	assert.False(t, ok)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, middleware.Status(context.Canceled))
	assert.Equal(t, http.StatusInternalServerError, middleware.Status(assert.AnError))
	assert.Equal(t, http.StatusRequestEntityTooLarge, middleware.Status(middleware.ErrBodyTooLarge))
}
