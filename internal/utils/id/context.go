package id

import "context"

type fieldsKey struct{}

// Fields are the identifiers that follow a request or chat turn through logs
// and spans.
type Fields struct {
	LogID     string
	SessionID string
}

// Attrs renders the non-empty fields as slog key/value pairs.
func (f Fields) Attrs() []any {
	var attrs []any
	if f.LogID != "" {
		attrs = append(attrs, "log_id", f.LogID)
	}
	if f.SessionID != "" {
		attrs = append(attrs, "session_id", f.SessionID)
	}
	return attrs
}

// IsZero reports whether no identifier is set.
func (f Fields) IsZero() bool {
	return f == Fields{}
}

// FromContext returns the identifiers stored on ctx.
func FromContext(ctx context.Context) Fields {
	if ctx == nil {
		return Fields{}
	}
	f, _ := ctx.Value(fieldsKey{}).(Fields)
	return f
}

// merge overlays the non-empty values of f onto what ctx already carries.
func merge(ctx context.Context, f Fields) context.Context {
	cur := FromContext(ctx)
	if f.LogID != "" {
		cur.LogID = f.LogID
	}
	if f.SessionID != "" {
		cur.SessionID = f.SessionID
	}
	return context.WithValue(ctx, fieldsKey{}, cur)
}

// WithSessionID tags ctx with a chat session. Empty ids leave ctx unchanged.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return merge(ctx, Fields{SessionID: sessionID})
}

func SessionIDFromContext(ctx context.Context) string {
	return FromContext(ctx).SessionID
}

// WithLogID tags ctx with a request log id. Empty ids leave ctx unchanged.
func WithLogID(ctx context.Context, logID string) context.Context {
	if logID == "" {
		return ctx
	}
	return merge(ctx, Fields{LogID: logID})
}

func LogIDFromContext(ctx context.Context) string {
	return FromContext(ctx).LogID
}
