package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder запоминает код ответа и число записанных байт
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.written += int64(n)
	return n, err
}

// requestFields заполняются внутренними middleware после аутентификации пира.
// Запись лога происходит снаружи, поэтому в контекст кладется указатель.
type requestFields struct {
	peerID        string
	collaboration string
}

type requestFieldsKey struct{}

// annotate сохраняет пира и коллаборацию из токена для записи в лог запроса
func annotate(ctx context.Context, peerID, collaboration string) {
	if fields, ok := ctx.Value(requestFieldsKey{}).(*requestFields); ok {
		fields.peerID = peerID
		fields.collaboration = collaboration
	}
}

// levelFor выбирает уровень записи по коду ответа
func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// LoggingMiddleware пишет по одной записи на запрос: метод, путь, статус,
// длительность, размер ответа и, если пир аутентифицирован, его peer_id.
// Заголовки и тела не логируются: в них токены и хеши ключей.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			fields := &requestFields{}

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestFieldsKey{}, fields)))

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("status", rec.status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.Int64("bytes_written", rec.written),
			}
			if fields.peerID != "" {
				attrs = append(attrs,
					slog.String("peer_id", fields.peerID),
					slog.String("collaboration", fields.collaboration))
			}

			logger.LogAttrs(r.Context(), levelFor(rec.status), "HTTP request", attrs...)
		})
	}
}

// LoggingWithSkip как LoggingMiddleware, но не логирует частые служебные пути
// (health, metrics)
func LoggingWithSkip(logger *slog.Logger, skipPaths []string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		logged := LoggingMiddleware(logger)(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			logged.ServeHTTP(w, r)
		})
	}
}
