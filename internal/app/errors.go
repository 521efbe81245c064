package app

import (
	"context"
	"errors"
	"fmt"

	"meal-planner/internal/draft"
	"meal-planner/internal/grocery"
	"meal-planner/internal/ocr"
	"meal-planner/internal/scraper"
)

// Kind classifies failures by how the front-ends react to them.
type Kind string

const (
	// KindValidation failures are silent no-ops: the input is ignored.
	KindValidation Kind = "validation"
	// KindPermission means image access was denied or no image was provided.
	KindPermission Kind = "permission"
	// KindRemote covers network errors and malformed or empty remote responses.
	KindRemote Kind = "remote"
	// KindNotFound is a lookup miss.
	KindNotFound Kind = "not_found"
	// KindStale means a capture result arrived after its draft was closed or replaced.
	KindStale Kind = "stale"
	KindInternal Kind = "internal"
)

var (
	ErrPermissionDenied = errors.New("image access denied")
	ErrKitchenDisabled  = errors.New("curated recipes are not configured")
	ErrRecipeNotFound   = errors.New("recipe not found")
)

// Error is a classified failure of an application operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	switch {
	case errors.Is(err, grocery.ErrEmptyName), errors.Is(err, draft.ErrEmptyTitle):
		return KindValidation
	case errors.Is(err, ErrPermissionDenied):
		return KindPermission
	case errors.Is(err, draft.ErrStale), errors.Is(err, context.Canceled):
		return KindStale
	case errors.Is(err, ErrRecipeNotFound):
		return KindNotFound
	case errors.Is(err, ocr.ErrNoText), errors.Is(err, scraper.ErrNoRecipe),
		errors.Is(err, ErrKitchenDisabled), errors.Is(err, context.DeadlineExceeded):
		return KindRemote
	default:
		return KindInternal
	}
}

// UserMessage is the generic text shown for a failure.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindValidation:
		return "Please fill in the required field."
	case KindPermission:
		return "Image permission is required."
	case KindNotFound:
		return "Not found."
	case KindStale:
		return ""
	case KindRemote:
		switch {
		case errors.Is(err, ocr.ErrNoText):
			return "No text found in image."
		case errors.Is(err, scraper.ErrNoRecipe):
			return "No valid recipe found on this page."
		case errors.Is(err, ErrKitchenDisabled):
			return "Curated recipes are not available."
		}
		return "Could not reach the service. Please try again."
	default:
		return "Something went wrong."
	}
}

// Reporter is the failure-reporting boundary.
type Reporter interface {
	Report(ctx context.Context, kind, operation string, err error)
}

// fail classifies err under op and reports permission and remote failures.
func (a *App) fail(ctx context.Context, op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	if kind == "" {
		kind = KindOf(err)
	}
	if a.reporter != nil && (kind == KindPermission || kind == KindRemote) {
		a.reporter.Report(ctx, string(kind), op, err)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
