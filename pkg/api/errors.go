// Copyright (c) The gleich-tech-switch Authors.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

var (
	// ErrPreconditionFailed matches any *PreconditionFailedError.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrZoneNotFound matches any *ZoneNotFoundError.
	ErrZoneNotFound = errors.New("zone not found")
	// ErrRemoteCallFailed matches any *RemoteCallError.
	ErrRemoteCallFailed = errors.New("remote call failed")
	// ErrCredentialUnavailable matches any *CredentialUnavailableError.
	ErrCredentialUnavailable = errors.New("credential unavailable")
)

// PreconditionReason describes which existence requirement was violated.
type PreconditionReason string

const (
	// AlreadyExists is reported when an operation requires an absent resource.
	AlreadyExists PreconditionReason = "AlreadyExists"
	// NotFound is reported when an operation requires an existing resource.
	NotFound PreconditionReason = "NotFound"
)

// PreconditionFailedError is returned when a guarded operation is refused
// because the resource existence does not match the operation requirement.
type PreconditionFailedError struct {
	Resource  string
	Operation string
	Reason    PreconditionReason
	Remedy    string
}

func (e *PreconditionFailedError) Error() string {
	msg := fmt.Sprintf("cannot %s %s: %s", e.Operation, e.Resource, e.Reason)
	if e.Remedy != "" {
		msg += " (" + e.Remedy + ")"
	}
	return msg
}

// Is matches ErrPreconditionFailed.
func (e *PreconditionFailedError) Is(target error) bool {
	return target == ErrPreconditionFailed
}

// ZoneNotFoundError is returned when no edge zone matches a domain name.
type ZoneNotFoundError struct {
	Zone    string
	Account string
}

func (e *ZoneNotFoundError) Error() string {
	if e.Account == "" {
		return fmt.Sprintf("zone '%s' not found", e.Zone)
	}
	return fmt.Sprintf("zone '%s' not found in account '%s'", e.Zone, e.Account)
}

// Is matches ErrZoneNotFound.
func (e *ZoneNotFoundError) Is(target error) bool {
	return target == ErrZoneNotFound
}

// RemoteCallError is returned when a provider call fails, either in transport
// or by returning a non-success status.
type RemoteCallError struct {
	// Provider that was called (e.g., run, monitoring, cloudflare).
	Provider string
	// Operation that failed.
	Operation string
	// Status is the HTTP status code, zero if no response was received.
	Status int
	// Code classifies the failure.
	Code codes.Code
	// Message returned by the provider.
	Message string
	// Err is the underlying transport error, if any.
	Err error
}

func (e *RemoteCallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s failed: %v", e.Provider, e.Operation, e.Err)
	}
	return fmt.Sprintf("%s: %s failed (%d %s): %s", e.Provider, e.Operation, e.Status, e.Code, e.Message)
}

// Unwrap returns the underlying transport error.
func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// Is matches ErrRemoteCallFailed.
func (e *RemoteCallError) Is(target error) bool {
	return target == ErrRemoteCallFailed
}

// CredentialUnavailableError is returned when a secret cannot be retrieved.
type CredentialUnavailableError struct {
	Secret string
	Err    error
}

func (e *CredentialUnavailableError) Error() string {
	return fmt.Sprintf("credential '%s' unavailable: %v", e.Secret, e.Err)
}

// Unwrap returns the underlying error.
func (e *CredentialUnavailableError) Unwrap() error {
	return e.Err
}

// Is matches ErrCredentialUnavailable.
func (e *CredentialUnavailableError) Is(target error) bool {
	return target == ErrCredentialUnavailable
}

// IsRemoteCode returns true if err is a remote call failure classified with the given code.
func IsRemoteCode(err error, code codes.Code) bool {
	var remoteErr *RemoteCallError
	return errors.As(err, &remoteErr) && remoteErr.Code == code
}

// HTTPStatusCode maps an HTTP status of a failed call to an error code,
// for providers that do not report one.
func HTTPStatusCode(status int) codes.Code {
	switch {
	case status == 400:
		return codes.InvalidArgument
	case status == 401:
		return codes.Unauthenticated
	case status == 403:
		return codes.PermissionDenied
	case status == 404:
		return codes.NotFound
	case status == 409:
		return codes.AlreadyExists
	case status == 412:
		return codes.FailedPrecondition
	case status == 429:
		return codes.ResourceExhausted
	case status == 501:
		return codes.Unimplemented
	case status == 503:
		return codes.Unavailable
	case status == 504:
		return codes.DeadlineExceeded
	case status >= 500:
		return codes.Internal
	}
	return codes.Unknown
}
