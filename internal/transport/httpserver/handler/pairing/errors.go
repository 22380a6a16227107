package pairing

import (
	"errors"
	"net/http"

	pairingdomain "dondog-go/internal/domain/pairing"
	userdomain "dondog-go/internal/domain/user"
	commonhandler "dondog-go/internal/transport/httpserver/handler/common"
	"dondog-go/pkg/logger"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{pairingdomain.ErrInvalidCode, "invalid_code"},
	{pairingdomain.ErrCodeExpired, "code_expired"},
	{pairingdomain.ErrCorruptInviteData, "corrupt_invite_data"},
	{pairingdomain.ErrInviterNotFound, "inviter_not_found"},
	{pairingdomain.ErrProfileRequired, "profile_required"},
	{pairingdomain.ErrSelfInvite, "self_invite"},
	{pairingdomain.ErrAlreadyInRoom, "already_in_room"},
	{pairingdomain.ErrRoomFull, "room_full"},
	{pairingdomain.ErrRoomNotFound, "room_not_found"},
	{pairingdomain.ErrNotPaired, "not_paired"},
	{pairingdomain.ErrGenerationExhausted, "generation_exhausted"},
	{pairingdomain.ErrPermissionDenied, "permission_denied"},
	{userdomain.ErrDeletionPending, "deletion_pending"},
}

func errorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal_error"
}

func statusOf(category pairingdomain.Category) int {
	switch category {
	case pairingdomain.CategoryNotFound:
		return http.StatusNotFound
	case pairingdomain.CategoryValidation:
		return http.StatusConflict
	case pairingdomain.CategoryPermission:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writePairingError reports a pairing failure with the category and the
// user-facing message the client shows under the code field.
func writePairingError(w http.ResponseWriter, log logger.Logger, op string, err error, args ...any) {
	category := pairingdomain.CategoryOf(err)
	if category == pairingdomain.CategoryNetwork {
		log.InternalError(op+": failed", err, args...)
	} else {
		log.BusinessError(op+": rejected", err, append(args, "category", category)...)
	}
	commonhandler.WriteErrorWith(w, statusOf(category), errorCode(err), pairingdomain.Message(err), map[string]any{
		"category": category,
	})
}
