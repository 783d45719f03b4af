package authz

import (
	"testing"

	"photostream/internal/models"

	"github.com/stretchr/testify/assert"
)

func creator(id uint) *Principal {
	return &Principal{UserID: id, Role: models.RoleCreator}
}

func viewer(id uint) *Principal {
	return &Principal{UserID: id, Role: models.RoleViewer}
}

func TestDecide_CreatePost(t *testing.T) {
	t.Parallel()

	assert.True(t, Decide(creator(1), ActionCreatePost, nil).Allowed)

	d := Decide(viewer(1), ActionCreatePost, nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonForbidden, d.Reason)

	d = Decide(nil, ActionCreatePost, nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnauthenticated, d.Reason)
}

func TestDecide_EditAndDeleteRequireOwnership(t *testing.T) {
	t.Parallel()

	owned := &Resource{OwnerID: 7}

	for _, action := range []Action{ActionEditPost, ActionDeletePost} {
		assert.True(t, Decide(creator(7), action, owned).Allowed, "owner creator on %s", action)

		// Another creator is not the owner.
		d := Decide(creator(8), action, owned)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonForbidden, d.Reason)

		// A viewer can never edit or delete, even "their own" hypothetical resource.
		d = Decide(viewer(7), action, owned)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonForbidden, d.Reason)

		// Missing resource denies rather than allows.
		assert.False(t, Decide(creator(7), action, nil).Allowed)
	}
}

func TestDecide_FeedAndEngagement(t *testing.T) {
	t.Parallel()

	for _, action := range []Action{ActionReadFeed, ActionLikeOrComment} {
		assert.True(t, Decide(creator(1), action, nil).Allowed)
		assert.True(t, Decide(viewer(2), action, nil).Allowed)

		d := Decide(nil, action, nil)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonUnauthenticated, d.Reason)
	}

	// Liking someone else's post needs no ownership.
	assert.True(t, Decide(viewer(2), ActionLikeOrComment, &Resource{OwnerID: 1}).Allowed)
}

func TestDecide_DownloadIsPublic(t *testing.T) {
	t.Parallel()

	assert.True(t, Decide(nil, ActionDownloadAsset, nil).Allowed)
	assert.True(t, Decide(nil, ActionDownloadAsset, &Resource{OwnerID: 3}).Allowed)
	assert.True(t, Decide(viewer(2), ActionDownloadAsset, &Resource{OwnerID: 3}).Allowed)
}

func TestDecide_UnknownActionDenied(t *testing.T) {
	t.Parallel()

	d := Decide(creator(1), Action("dropTables"), nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonForbidden, d.Reason)
}

func TestFeedOwnerScope(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint(5), FeedOwnerScope(creator(5)))
	assert.Equal(t, uint(0), FeedOwnerScope(viewer(5)))
	assert.Equal(t, uint(0), FeedOwnerScope(nil))
}
