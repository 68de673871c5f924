// Package policy decides whether an actor may mutate a resource.
//
// Every function is pure: it looks only at the actor and the resource it is
// given, so decisions can be tested without a store or an HTTP request.
package policy

import (
	"github.com/gamedb-api/internal/models"
)

// Deny reasons
const (
	ReasonUnauthenticated = "authentication required"
	ReasonNotOwner        = "only the owner or staff may modify this game"
	ReasonNotCommenter    = "only the author, the game owner or staff may modify this comment"
	ReasonNotStaff        = "staff access required"
	ReasonNotSelf         = "only the user or a superuser may delete this account"
)

// Decision is the outcome of a policy check
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow grants the action
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny refuses the action with a reason
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Unauthenticated reports whether the denial is due to a missing identity
func (d Decision) Unauthenticated() bool {
	return !d.Allowed && d.Reason == ReasonUnauthenticated
}

// RequireAuthenticated allows any authenticated actor
func RequireAuthenticated(actor models.Actor) Decision {
	if !actor.Authenticated {
		return Deny(ReasonUnauthenticated)
	}
	return Allow()
}

// CanModifyGame allows the owner, staff and superusers
func CanModifyGame(actor models.Actor, game *models.Game) Decision {
	if !actor.Authenticated {
		return Deny(ReasonUnauthenticated)
	}
	if actor.IsStaff || actor.IsSuperuser {
		return Allow()
	}
	if game != nil && game.IsOwnedBy(actor.ID) {
		return Allow()
	}
	return Deny(ReasonNotOwner)
}

// CanModifyComment allows the comment author, the owner of the commented
// game, staff and superusers. game may be nil if it has no owner lookup.
func CanModifyComment(actor models.Actor, comment *models.Comment, game *models.Game) Decision {
	if !actor.Authenticated {
		return Deny(ReasonUnauthenticated)
	}
	if actor.IsStaff || actor.IsSuperuser {
		return Allow()
	}
	if comment != nil && comment.AuthorID == actor.ID {
		return Allow()
	}
	if game != nil && comment != nil && game.ID == comment.GameID && game.IsOwnedBy(actor.ID) {
		return Allow()
	}
	return Deny(ReasonNotCommenter)
}

// CanModerateComment allows staff and superusers to change comment visibility
func CanModerateComment(actor models.Actor) Decision {
	return requirePrivileged(actor)
}

// CanImport allows staff and superusers to bulk import games
func CanImport(actor models.Actor) Decision {
	return requirePrivileged(actor)
}

// CanDeleteUser allows a user to delete themselves, or a superuser anyone
func CanDeleteUser(actor models.Actor, userID string) Decision {
	if !actor.Authenticated {
		return Deny(ReasonUnauthenticated)
	}
	if actor.IsSuperuser || actor.ID == userID {
		return Allow()
	}
	return Deny(ReasonNotSelf)
}

func requirePrivileged(actor models.Actor) Decision {
	if !actor.Authenticated {
		return Deny(ReasonUnauthenticated)
	}
	if actor.IsStaff || actor.IsSuperuser {
		return Allow()
	}
	return Deny(ReasonNotStaff)
}
