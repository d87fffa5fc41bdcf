package radio

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strefethen/fsapi-hub-go/internal/apperrors"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

func TestDeviceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode apperrors.ErrorCode
		wantHTTP int
	}{
		{"invalid argument", &fsapi.InvalidArgumentError{Operation: fsapi.OpVolume, Reason: "too loud"}, apperrors.ErrorCodeValidationError, http.StatusBadRequest},
		{"authentication", &fsapi.AuthenticationError{Op: wire.OpCreateSession, Reason: "wrong PIN"}, apperrors.ErrorCodeDeviceAuthFailed, http.StatusUnauthorized},
		{"not implemented", &fsapi.StatusError{Op: wire.OpGet, Node: "n", Status: wire.StatusNodeDoesNotExist}, apperrors.ErrorCodeNodeNotImplemented, http.StatusNotFound},
		{"blocked", &fsapi.StatusError{Op: wire.OpSet, Node: "n", Status: wire.StatusNodeBlocked}, apperrors.ErrorCodeNodeBlocked, http.StatusConflict},
		{"packet bad", &fsapi.StatusError{Op: wire.OpSet, Node: "n", Status: wire.StatusPacketBad}, apperrors.ErrorCodeDeviceProtocol, http.StatusBadGateway},
		{"unexpected", &fsapi.UnexpectedResponseError{Operation: fsapi.OpMode, Node: "n", Reason: "bad"}, apperrors.ErrorCodeDeviceUnexpected, http.StatusBadGateway},
		{"protocol", &fsapi.ProtocolError{Reason: "garbage"}, apperrors.ErrorCodeDeviceProtocol, http.StatusBadGateway},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), apperrors.ErrorCodeDeviceTimeout, http.StatusGatewayTimeout},
		{"unreachable", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, apperrors.ErrorCodeDeviceUnreachable, http.StatusBadGateway},
		{"handshake transport", &fsapi.AuthenticationError{Op: wire.OpCreateSession, Reason: "transport", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route")}}, apperrors.ErrorCodeDeviceUnreachable, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var appErr *apperrors.AppError
			require.ErrorAs(t, deviceError(tt.err), &appErr)
			require.Equal(t, tt.wantCode, appErr.Code)
			require.Equal(t, tt.wantHTTP, appErr.StatusCode)
		})
	}

	require.NoError(t, deviceError(nil))
}
