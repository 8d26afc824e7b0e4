package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusErrors lists every error that crosses the wire with its code. The
// status message is the error text, which FromStatus matches on. The first
// match wins, so an error wrapping a more specific cause is listed first.
var statusErrors = []struct {
	err  error
	code codes.Code
}{
	{common.ErrMalformedCiphertext, codes.InvalidArgument},
	{common.ErrInvalidEmail, codes.InvalidArgument},
	{common.ErrInvalidLogin, codes.InvalidArgument},
	{common.ErrNonceMismatch, codes.InvalidArgument},
	{common.ErrInvalidRequest, codes.InvalidArgument},

	{common.ErrLoginTaken, codes.AlreadyExists},
	{common.ErrEmailTaken, codes.AlreadyExists},
	{common.ErrAlreadyVerified, codes.AlreadyExists},
	{common.ErrNotVerified, codes.FailedPrecondition},

	{common.ErrOwnerMismatch, codes.PermissionDenied},
	{common.ErrSignatureInvalid, codes.PermissionDenied},

	{common.ErrNoMatch, codes.Unauthenticated},
	{common.ErrNonceReused, codes.Unauthenticated},
	{common.ErrInvalidToken, codes.Unauthenticated},
	{common.ErrTokenExpired, codes.Unauthenticated},
	{common.ErrUnknownToken, codes.NotFound},
	{common.ErrCodeExpiredOrUnknown, codes.NotFound},
	{common.ErrAmbiguousCode, codes.FailedPrecondition},
	{common.ErrorNotFound, codes.NotFound},

	{common.ErrNotificationFailed, codes.Unavailable},
}

// ToStatus converts a service error to a gRPC status error. Unknown errors
// become codes.Internal without detail.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, se := range statusErrors {
		if errors.Is(err, se.err) {
			msg := se.err.Error()
			if se.err == common.ErrInvalidRequest {
				msg = err.Error()
			}
			return status.Error(se.code, msg)
		}
	}
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}

// FromStatus converts a status error received by a client back to the
// matching service error. Errors that match none are returned unchanged.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return err
	}
	for _, se := range statusErrors {
		if st.Code() != se.code {
			continue
		}
		if st.Message() == se.err.Error() {
			return se.err
		}
		if se.err == common.ErrInvalidRequest {
			if detail, ok := strings.CutPrefix(st.Message(), se.err.Error()); ok {
				return fmt.Errorf("%w%s", se.err, detail)
			}
		}
	}
	if st.Code() == codes.Internal {
		return common.ErrorInternal
	}
	return err
}
