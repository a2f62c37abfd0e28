package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	audit "civicdesk/pkg/platform/audit"
	"civicdesk/pkg/requestcontext"
)

const (
	maxBodySnapshot     = 4 << 10
	maxResponseSnapshot = 16 << 10
)

var redactedFields = []string{"password", "token", "secret"}

// Recorder accepts audit entries without blocking the caller.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// DescribeFunc builds the human readable description of a request.
type DescribeFunc func(r *http.Request) string

// Middleware records one entry per successful request. Requests without an
// authenticated actor or with a non-2xx status produce nothing.
func Middleware(rec Recorder, action audit.Action, resourceType audit.ResourceType, describe DescribeFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := snapshotBody(r)
			cw := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)

			ctx := r.Context()
			actor := requestcontext.UserID(ctx)
			if actor.IsNil() || cw.status() < 200 || cw.status() > 299 {
				return
			}

			params := routeParams(r)
			entry := audit.Entry{
				UserID:       actor,
				Action:       action,
				ResourceType: resourceType,
				ResourceID:   resourceID(cw.body.Bytes(), params),
				Metadata: map[string]any{
					"method": r.Method,
					"path":   r.URL.Path,
					"params": params,
				},
			}
			if body != nil {
				entry.Metadata["body"] = body
			}
			if describe != nil {
				entry.Description = describe(r)
			}
			rec.Record(ctx, entry)
		})
	}
}

type captureWriter struct {
	http.ResponseWriter
	code int
	body bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	if c.code == 0 {
		c.code = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.code == 0 {
		c.code = http.StatusOK
	}
	if room := maxResponseSnapshot - c.body.Len(); room > 0 {
		c.body.Write(b[:min(len(b), room)])
	}
	return c.ResponseWriter.Write(b)
}

func (c *captureWriter) Unwrap() http.ResponseWriter { return c.ResponseWriter }

func (c *captureWriter) status() int {
	if c.code == 0 {
		return http.StatusOK
	}
	return c.code
}

// snapshotBody reads at most maxBodySnapshot bytes and restores the body for
// the downstream handler.
func snapshotBody(r *http.Request) any {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, maxBodySnapshot))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	if err != nil || len(head) == 0 {
		return nil
	}

	var decoded map[string]any
	if json.Unmarshal(head, &decoded) == nil {
		redact(decoded)
		return decoded
	}
	return string(head)
}

func redact(m map[string]any) {
	for k, v := range m {
		lower := strings.ToLower(k)
		for _, field := range redactedFields {
			if strings.Contains(lower, field) {
				m[k] = "[redacted]"
			}
		}
		if nested, ok := v.(map[string]any); ok {
			redact(nested)
		}
	}
}

func routeParams(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return map[string]string{}
	}
	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if key == "*" {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}
	return params
}

// resourceID prefers the id of the returned document, then the {id} route param.
func resourceID(response []byte, params map[string]string) string {
	var doc struct {
		ID   string `json:"id"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if json.Unmarshal(response, &doc) == nil {
		if doc.ID != "" {
			return doc.ID
		}
		if doc.Data.ID != "" {
			return doc.Data.ID
		}
	}
	return params["id"]
}
