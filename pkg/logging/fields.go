package logging

import "log/slog"

// Chat identifiers share these keys across engine, handlers and workers.
const (
	KeyUser    = "user_id"
	KeyRoom    = "room_id"
	KeyConn    = "conn_id"
	KeyMessage = "message_id"
)

func User(id int64) slog.Attr    { return slog.Int64(KeyUser, id) }
func Room(id int64) slog.Attr    { return slog.Int64(KeyRoom, id) }
func Conn(id string) slog.Attr   { return slog.String(KeyConn, id) }
func Message(id int64) slog.Attr { return slog.Int64(KeyMessage, id) }

// Trace correlates a log line with its otel span.
func Trace(traceID, spanID string) slog.Attr {
	return slog.Group("trace", slog.String("trace_id", traceID), slog.String("span_id", spanID))
}

// Err renders err as a string attr; a nil error yields an empty value.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("err", "")
	}
	return slog.String("err", err.Error())
}
