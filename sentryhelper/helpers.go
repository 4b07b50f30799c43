// Package sentryhelper provides utilities for Sentry transaction and scope management.
// It keeps breadcrumbs and context isolated per API request.
package sentryhelper

import (
	"context"
	"fmt"

	sentry "github.com/getsentry/sentry-go"
)

// contextKey is used to store the cloned hub in context
type contextKey string

const hubContextKey contextKey = "sentry_hub"

// StartRequestTransaction creates a transaction with a cloned hub for one API request.
// The cloned hub ensures breadcrumbs added while resolving stay with this request only.
func StartRequestTransaction(ctx context.Context, route string, tags map[string]string) (context.Context, *sentry.Span) {
	hub := HubFromContext(ctx).Clone()
	ctx = context.WithValue(ctx, hubContextKey, hub)

	transaction := sentry.StartTransaction(ctx, fmt.Sprintf("api.%s", route),
		sentry.WithOpName("http.server"),
		sentry.WithTransactionSource(sentry.SourceRoute),
	)
	for k, v := range tags {
		transaction.SetTag(k, v)
	}

	hub.Scope().SetSpan(transaction)

	return transaction.Context(), transaction
}

// HubFromContext retrieves the cloned hub from context, falling back to the
// gin middleware hub and finally CurrentHub.
func HubFromContext(ctx context.Context) *sentry.Hub {
	if ctx == nil {
		return sentry.CurrentHub()
	}
	if hub, ok := ctx.Value(hubContextKey).(*sentry.Hub); ok && hub != nil {
		return hub
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// AddBreadcrumb adds a breadcrumb to the hub in context.
func AddBreadcrumb(ctx context.Context, breadcrumb *sentry.Breadcrumb) {
	HubFromContext(ctx).AddBreadcrumb(breadcrumb, nil)
}

// CaptureException captures an exception on the hub in context.
func CaptureException(ctx context.Context, err error) *sentry.EventID {
	return HubFromContext(ctx).CaptureException(err)
}
