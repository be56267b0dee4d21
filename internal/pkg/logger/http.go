package logger

import (
	"bytes"
	"io"
	log "log/slog"
	"net/http"
	"time"
)

const bodyLogLimit = 1000

// HTTPTransport 记录第三方接口的请求与响应，超过 SlowThreshold 记为慢请求
type HTTPTransport struct {
	Name          string
	Transport     http.RoundTripper
	SlowThreshold time.Duration
}

func NewHTTPTransport(name string) *HTTPTransport {
	return &HTTPTransport{
		Name:          name,
		Transport:     http.DefaultTransport,
		SlowThreshold: 500 * time.Millisecond,
	}
}

func (t *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	var reqBody []byte
	if req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(reqBody))
	}

	next := t.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(req)
	elapsed := time.Since(start)

	// query 里可能带 access_token，只记 path
	fields := []any{
		log.String("remote", t.Name),
		log.String("method", req.Method),
		log.String("host", req.URL.Host),
		log.String("path", req.URL.Path),
		log.Duration("latency", elapsed),
		log.String("req_body", truncate(reqBody)),
	}

	if err != nil {
		log.ErrorContext(req.Context(), "HTTP_CALL_ERROR", append(fields, log.Any("err", err))...)
		return nil, err
	}

	var resBody []byte
	if resp.Body != nil {
		resBody, _ = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewBuffer(resBody))
	}
	fields = append(fields, log.Int("status", resp.StatusCode), log.String("res_body", truncate(resBody)))

	if t.SlowThreshold > 0 && elapsed > t.SlowThreshold {
		log.WarnContext(req.Context(), "HTTP_CALL_SLOW", fields...)
	} else {
		log.DebugContext(req.Context(), "HTTP_CALL", fields...)
	}

	return resp, nil
}

func truncate(body []byte) string {
	if len(body) > bodyLogLimit {
		return string(body[:bodyLogLimit]) + "...[truncated]"
	}
	return string(body)
}
