package domain

// Operation represents a policy decision for a support action.
type Operation int

const (
	// OperationViewProgress allows viewing a user's progress log.
	OperationViewProgress Operation = iota + 1
	// OperationSendHint allows sending a hint to a user.
	OperationSendHint
	// OperationListOwnHints allows listing hints for a target user.
	OperationListOwnHints
	// OperationMarkViewed allows marking a hint as viewed.
	OperationMarkViewed
)

// Allow reports whether the actor may perform the operation against the
// requested target user. It is a pure decision over the request shape:
//
//   - ViewProgress and SendHint require support staff (specialist or admin)
//     regardless of target.
//   - ListOwnHints is open to support staff for any target; a plain user is
//     always self-scoped, so any requested target is irrelevant to the
//     decision.
//   - MarkViewed needs the hint record to be loaded before ownership can be
//     checked, so here only the role gate applies; the Service re-validates
//     ownership after the fetch.
func Allow(actor Actor, op Operation, targetUserID string) bool {
	switch op {
	case OperationViewProgress, OperationSendHint:
		return actor.isSupportStaff()
	case OperationListOwnHints:
		if actor.isSupportStaff() {
			return true
		}
		return actor.Role == RoleUser
	case OperationMarkViewed:
		return actor.Role == RoleAdmin || actor.Role == RoleUser
	default:
		return false
	}
}
