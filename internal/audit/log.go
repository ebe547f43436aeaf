package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"digytal.com/control/internal/auth"
	"digytal.com/control/internal/obs"
)

type ctxKey string

const (
	requestIDKey ctxKey = "audit_request_id"
	orgIDKey     ctxKey = "audit_organization_id"
)

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithOrganizationID records the organization the request acts on.
func WithOrganizationID(ctx context.Context, orgID string) context.Context {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ctx
	}
	return context.WithValue(ctx, orgIDKey, orgID)
}

func stringFromContext(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with request, user and organization context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := logrus.Fields{
		"type":  "audit",
		"event": event,
	}
	if rid := stringFromContext(ctx, requestIDKey); rid != "" {
		entry["request_id"] = rid
	}
	if orgID := stringFromContext(ctx, orgIDKey); orgID != "" {
		entry["organization_id"] = orgID
	}
	if userID, ok := auth.UserIDFromContext(ctx); ok {
		entry["user_id"] = userID
	}
	copyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copyFields[k] = v
	}
	entry["fields"] = copyFields

	obs.Logger().WithFields(entry).Info("audit")
	return nil
}
