// Package authz implements the authorization policy as a pure decision
// function over a principal, an action and the acted-on resource. It holds no
// state and performs no I/O; callers load the resource and interpret the
// decision.
package authz

import "photostream/internal/models"

// Principal is the verified identity attached to a request: the subject user
// ID and the role carried by the identity token.
type Principal struct {
	UserID uint
	Role   models.Role
}

// Action names an operation a principal may attempt on a resource.
type Action string

const (
	ActionCreatePost    Action = "createPost"
	ActionReadFeed      Action = "readFeed"
	ActionLikeOrComment Action = "likeOrComment"
	ActionEditPost      Action = "editPost"
	ActionDeletePost    Action = "deletePost"
	ActionDownloadAsset Action = "downloadAsset"
)

// DenyReason classifies why a decision denied the action.
type DenyReason string

const (
	ReasonUnauthenticated DenyReason = "unauthenticated"
	ReasonForbidden       DenyReason = "forbidden"
)

// Resource carries the attributes of the acted-on resource that the policy
// consults. Only ownership matters today.
type Resource struct {
	OwnerID uint
}

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// Decide evaluates whether the principal may perform action on resource.
// principal may be nil (unauthenticated request); resource may be nil for
// actions that are not about a specific post.
//
// ActionDownloadAsset is allowed without any principal. This asymmetry is
// deliberate: post images are publicly fetchable while every other action
// requires a verified identity.
func Decide(principal *Principal, action Action, resource *Resource) Decision {
	if action == ActionDownloadAsset {
		return allow()
	}
	if principal == nil {
		return deny(ReasonUnauthenticated)
	}

	switch action {
	case ActionCreatePost:
		if principal.Role != models.RoleCreator {
			return deny(ReasonForbidden)
		}
		return allow()

	case ActionReadFeed, ActionLikeOrComment:
		return allow()

	case ActionEditPost, ActionDeletePost:
		if principal.Role != models.RoleCreator {
			return deny(ReasonForbidden)
		}
		if resource == nil || resource.OwnerID != principal.UserID {
			return deny(ReasonForbidden)
		}
		return allow()
	}

	return deny(ReasonForbidden)
}

// FeedOwnerScope returns the user ID the feed must be restricted to for this
// principal, or 0 for an unscoped feed. Creators only ever see their own posts.
func FeedOwnerScope(principal *Principal) uint {
	if principal != nil && principal.Role == models.RoleCreator {
		return principal.UserID
	}
	return 0
}
