package session

import (
	"errors"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
)

// ErrSessionExpired is returned once a refresh is impossible or rejected.
// By the time a caller sees it the stored session has been cleared.
var ErrSessionExpired = errors.New("session: expired")

// MsgSessionExpired is shown when the user has to sign in again.
const MsgSessionExpired = "Session expirée. Veuillez vous reconnecter."

// UserMessage maps err to a localized message.
func UserMessage(err error) string {
	if errors.Is(err, ErrSessionExpired) {
		return MsgSessionExpired
	}
	return authclient.UserMessage(err)
}
