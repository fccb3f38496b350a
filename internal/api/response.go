package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	xerrors "taskdeck/internal/errors"
)

const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

var errBadRequestBody = xerrors.New(xerrors.CodeInvalidArgument, "リクエストの形式が正しくありません")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeError 根据错误码归属映射 HTTP 状态码，并按错误严重程度记录日志。
// 5xx 响应附带错误码，可重试的错误附带 Retry-After。
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := http.StatusText(status)
	if e, ok := xerrors.From(err); ok && e.Message() != "" {
		message = e.Message()
	}

	attrs := []any{
		slog.String("path", r.URL.Path),
		slog.String("request_id", RequestIDFromContext(r.Context())),
		slog.String("code", string(xerrors.CodeOf(err))),
		slog.Int("status", status),
		slog.Bool("retryable", xerrors.RetryableError(err)),
		slog.Any("error", err),
	}
	if e, ok := xerrors.From(err); ok {
		for k, v := range e.Metadata() {
			attrs = append(attrs, slog.String(k, v))
		}
	}
	s.log.Log(r.Context(), severityLevel(xerrors.SeverityOf(err)), "请求处理失败", attrs...)

	if status < http.StatusInternalServerError {
		writeMessage(w, status, message)
		return
	}
	if xerrors.RetryableError(err) {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorResponse{Message: message, Code: string(xerrors.CodeOf(err))})
}

func severityLevel(sev xerrors.Severity) slog.Level {
	switch sev {
	case xerrors.SeverityCritical:
		return slog.LevelError
	case xerrors.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func statusFor(err error) int {
	switch xerrors.KindOfError(err) {
	case xerrors.CodeNotFound:
		return http.StatusNotFound
	case xerrors.CodeInvalidArgument:
		return http.StatusBadRequest
	case xerrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case xerrors.CodeConflict:
		return http.StatusConflict
	case xerrors.CodeInitializationFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON 解析请求体；空请求体按空对象处理。
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, errBadRequestBody.Message())
	}
	return nil
}

// pathID 读取路由中的数字 ID，路由约束保证其为数字。
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "ID が正しくありません")
	}
	return id, nil
}
