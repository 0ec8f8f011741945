package api

import (
	"errors"
	"fmt"
)

// Common API errors that can be checked with errors.Is.
var (
	// ErrUnauthorized indicates the session token is missing, invalid
	// or expired, or the submitted credentials were rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller is not a member of the target org.
	ErrForbidden = errors.New("not a member of this organization")
	// ErrOrgKeyNotFound indicates no wrapped org key exists for the caller.
	ErrOrgKeyNotFound = errors.New("org key not found")
	// ErrPublicKeyNotFound indicates the target user has no public key.
	ErrPublicKeyNotFound = errors.New("public key not found")
	// ErrItemNotFound indicates the requested item does not exist.
	ErrItemNotFound = errors.New("item not found")
	// ErrUserNotFound indicates the target user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidToken indicates an invite or reset token is invalid or expired.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ResourceType indicates which type of resource an error relates to.
type ResourceType string

const (
	// ResourceUnknown indicates the resource type is not specified.
	ResourceUnknown ResourceType = ""
	// ResourceOrgKey indicates the error relates to a wrapped org key.
	ResourceOrgKey ResourceType = "org_key"
	// ResourcePublicKey indicates the error relates to a user public key.
	ResourcePublicKey ResourceType = "public_key"
	// ResourceItem indicates the error relates to an item.
	ResourceItem ResourceType = "item"
	// ResourceUser indicates the error relates to a user.
	ResourceUser ResourceType = "user"
	// ResourceToken indicates the error relates to an invite or reset token.
	ResourceToken ResourceType = "token"
)

// APIError represents an HTTP error from the OrgVault service.
type APIError struct {
	StatusCode   int
	Detail       string
	RequestID    string
	ResourceType ResourceType
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		if e.Detail != "" {
			return fmt.Sprintf("API error %d: %s (request_id: %s)", e.StatusCode, e.Detail, e.RequestID)
		}
		return fmt.Sprintf("API error %d (request_id: %s)", e.StatusCode, e.RequestID)
	}
	if e.Detail != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 400:
		return target == ErrInvalidToken && e.ResourceType == ResourceToken
	case 401:
		return target == ErrUnauthorized
	case 403:
		return target == ErrForbidden
	case 404:
		switch e.ResourceType {
		case ResourceOrgKey:
			return target == ErrOrgKeyNotFound
		case ResourcePublicKey:
			return target == ErrPublicKeyNotFound
		case ResourceItem:
			return target == ErrItemNotFound
		case ResourceUser:
			return target == ErrUserNotFound
		case ResourceToken:
			return target == ErrInvalidToken
		default:
			return false
		}
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// WithResourceType returns a copy of the error with the resource type set.
// If the error is not an *APIError, it is returned unchanged.
func WithResourceType(err error, rt ResourceType) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode:   apiErr.StatusCode,
			Detail:       apiErr.Detail,
			RequestID:    apiErr.RequestID,
			ResourceType: rt,
		}
	}
	return err
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
