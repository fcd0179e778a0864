// Package service implements business logic, validation, and orchestration
// between HTTP handlers, the repository layer and the payment provider.
package service

import (
	"context"
	"strings"
	"time"
)

// Timeouts bound every call the services make to their collaborators.
type Timeouts struct {
	Store    time.Duration
	Provider time.Duration
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// isValidEmail does a basic structural check.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}

// appendQuery adds a raw query fragment to rawURL without escaping it, so
// provider placeholders such as {CHECKOUT_SESSION_ID} survive intact.
func appendQuery(rawURL, fragment string) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + fragment
}
