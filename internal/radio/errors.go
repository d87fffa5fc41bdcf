package radio

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/strefethen/fsapi-hub-go/internal/apperrors"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// deviceError maps client errors onto API errors.
func deviceError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var argErr *fsapi.InvalidArgumentError
	if errors.As(err, &argErr) {
		return apperrors.NewValidationError(argErr.Reason, map[string]any{
			"operation": string(argErr.Operation),
		})
	}

	// Checked before AuthenticationError, which wraps handshake transport failures.
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewAppError(apperrors.ErrorCodeDeviceTimeout, "Device did not answer in time", http.StatusGatewayTimeout, nil)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apperrors.NewAppError(apperrors.ErrorCodeDeviceTimeout, "Device did not answer in time", http.StatusGatewayTimeout, nil)
		}
		return apperrors.NewAppError(apperrors.ErrorCodeDeviceUnreachable, "Device is unreachable", http.StatusBadGateway, nil)
	}

	var authErr *fsapi.AuthenticationError
	if errors.As(err, &authErr) {
		return apperrors.NewAppError(apperrors.ErrorCodeDeviceAuthFailed, "Device rejected the PIN or session", http.StatusUnauthorized, map[string]any{
			"reason": authErr.Reason,
		})
	}

	var statusErr *fsapi.StatusError
	if errors.As(err, &statusErr) {
		details := map[string]any{
			"node":   statusErr.Node,
			"status": string(statusErr.Status),
		}
		switch statusErr.Status {
		case wire.StatusNodeDoesNotExist:
			return apperrors.NewAppError(apperrors.ErrorCodeNodeNotImplemented, "Device does not implement this node", http.StatusNotFound, details)
		case wire.StatusNodeBlocked:
			return apperrors.NewAppError(apperrors.ErrorCodeNodeBlocked, "Device is not in the correct mode", http.StatusConflict, details)
		case wire.StatusFail:
			return apperrors.NewAppError(apperrors.ErrorCodeDeviceRejected, "Device rejected the command", http.StatusConflict, details)
		}
		return apperrors.NewAppError(apperrors.ErrorCodeDeviceProtocol, statusErr.Error(), http.StatusBadGateway, details)
	}

	var unexpected *fsapi.UnexpectedResponseError
	if errors.As(err, &unexpected) {
		return apperrors.NewAppError(apperrors.ErrorCodeDeviceUnexpected, unexpected.Error(), http.StatusBadGateway, map[string]any{
			"node": unexpected.Node,
		})
	}

	var protoErr *fsapi.ProtocolError
	if errors.As(err, &protoErr) {
		return apperrors.NewAppError(apperrors.ErrorCodeDeviceProtocol, protoErr.Error(), http.StatusBadGateway, nil)
	}

	return apperrors.NewAppError(apperrors.ErrorCodeDeviceUnreachable, err.Error(), http.StatusBadGateway, nil)
}
