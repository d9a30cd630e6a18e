package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/resumekit/internal/metrics"
)

// requestLogInfo は内側のミドルウェアがアクセスログに追記する値を保持する。
// Sessionミドルウェアは内側のコンテキストにしか値を積めないため、ポインタ経由で受け渡す。
type requestLogInfo struct {
	userID string
}

var logInfoContextKey = contextKey("request_log_info")

// setLoggedUserID はアクセスログに出力するユーザーIDを設定する。
// ロギングミドルウェアの外側から呼ばれた場合は何もしない。
func setLoggedUserID(ctx context.Context, userID string) {
	if info, ok := ctx.Value(logInfoContextKey).(*requestLogInfo); ok {
		info.userID = userID
	}
}

// requestAttrs はリクエストを識別するログ属性を返す。
// chiのRequestIDミドルウェアが採番していればrequest_idを含める。
func requestAttrs(r *http.Request) []any {
	attrs := []any{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	return attrs
}

// NewLoggingMiddleware はリクエストごとにhttp_requestのJSON構造化ログを出力するミドルウェアを返す。
// 5xxはError、4xxはWarn、それ以外はInfoで出力する。
// collectorがnilでなければステータスコードとレイテンシも記録する。
func NewLoggingMiddleware(logger *slog.Logger, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			info := &requestLogInfo{}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), logInfoContextKey, info)))

			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				// 何も書き込まれなかった場合はnet/httpが200を返す
				status = http.StatusOK
			}

			if collector != nil {
				collector.RecordHTTPStatus(status)
				collector.RecordRequestLatency(elapsed)
			}

			attrs := append(requestAttrs(r),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Float64("duration_ms", float64(elapsed.Microseconds())/1000),
			)

			userID := info.userID
			if userID == "" {
				userID, _ = UserIDFromContext(r.Context())
			}
			if userID != "" {
				attrs = append(attrs, slog.String("user_id", userID))
			}

			logger.Log(r.Context(), levelForStatus(status), "http_request", attrs...)
		})
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
