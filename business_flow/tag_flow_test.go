// Package businessflow contains the core business logic and use cases for the messaging dashboard
package businessflow

import (
	"context"
	"testing"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/models"
	"github.com/princecjqlara/Tokkobeta/repository"
	testingutil "github.com/princecjqlara/Tokkobeta/testing"
	"github.com/princecjqlara/Tokkobeta/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTagFlowForTest(testDB *testingutil.TestDB) TagFlow {
	return NewTagFlow(
		repository.NewTagRepository(testDB.DB),
		repository.NewPageRepository(testDB.DB),
		repository.NewBusinessRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
	)
}

func TestTagFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTagFlowForTest(testDB)

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		page, err := fixtures.CreateTestPage(user.ID)
		require.NoError(t, err)

		metadata := &ClientMetadata{IPAddress: "127.0.0.1", UserAgent: "Test User Agent"}

		t.Run("CreateUserTagDefaultsOwner", func(t *testing.T) {
			tag, err := flow.CreateTag(context.Background(), user.ID, &dto.CreateTagRequest{
				Name:      "vip",
				Color:     utils.ToPtr("#28a745"),
				OwnerType: "user",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "user", tag.OwnerType)
			assert.Equal(t, user.ID, tag.OwnerID)
		})

		t.Run("CreatePageTagRequiresAccess", func(t *testing.T) {
			tag, err := flow.CreateTag(context.Background(), user.ID, &dto.CreateTagRequest{
				Name:      "regulars",
				OwnerType: "page",
				OwnerID:   page.ID,
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "page", tag.OwnerType)

			stranger, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = flow.CreateTag(context.Background(), stranger.ID, &dto.CreateTagRequest{
				Name:      "intruder",
				OwnerType: "page",
				OwnerID:   page.ID,
			}, metadata)
			require.Error(t, err)
		})

		t.Run("CreateTagRejectsBogusOwnerType", func(t *testing.T) {
			_, err := flow.CreateTag(context.Background(), user.ID, &dto.CreateTagRequest{
				Name:      "weird",
				OwnerType: "galaxy",
			}, metadata)
			require.Error(t, err)
			assert.True(t, IsInvalidTagOwner(err))
		})

		t.Run("ListTagsScopesVisibility", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			ownPage, err := fixtures.CreateTestPage(owner.ID)
			require.NoError(t, err)

			_, err = fixtures.CreateTestTag(models.TagOwnerUser, owner.ID, owner.ID)
			require.NoError(t, err)
			_, err = fixtures.CreateTestTag(models.TagOwnerPage, ownPage.ID, owner.ID)
			require.NoError(t, err)

			// Another operator's private tag must stay invisible
			other, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			_, err = fixtures.CreateTestTag(models.TagOwnerUser, other.ID, other.ID)
			require.NoError(t, err)

			all, err := flow.ListTags(context.Background(), owner.ID, &dto.ListTagsRequest{})
			require.NoError(t, err)
			assert.Len(t, all.Tags, 2)

			userOnly, err := flow.ListTags(context.Background(), owner.ID, &dto.ListTagsRequest{Scope: "user"})
			require.NoError(t, err)
			require.Len(t, userOnly.Tags, 1)
			assert.Equal(t, "user", userOnly.Tags[0].OwnerType)
		})

		t.Run("UpdateTagRenames", func(t *testing.T) {
			tag, err := fixtures.CreateTestTag(models.TagOwnerUser, user.ID, user.ID)
			require.NoError(t, err)

			updated, err := flow.UpdateTag(context.Background(), user.ID, tag.ID, &dto.UpdateTagRequest{
				Name: utils.ToPtr("renamed"),
			})
			require.NoError(t, err)
			assert.Equal(t, "renamed", updated.Name)
		})

		t.Run("UpdateTagRejectsForeignOwner", func(t *testing.T) {
			other, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			tag, err := fixtures.CreateTestTag(models.TagOwnerUser, other.ID, other.ID)
			require.NoError(t, err)

			_, err = flow.UpdateTag(context.Background(), user.ID, tag.ID, &dto.UpdateTagRequest{
				Name: utils.ToPtr("hijacked"),
			})
			require.Error(t, err)
			assert.True(t, IsTagAccessDenied(err))
		})

		t.Run("DeleteTagRemovesLinks", func(t *testing.T) {
			tag, err := fixtures.CreateTestTag(models.TagOwnerUser, user.ID, user.ID)
			require.NoError(t, err)
			contact, err := fixtures.CreateTestContact(page.ID, "Tagged Contact")
			require.NoError(t, err)

			tagRepo := repository.NewTagRepository(testDB.DB)
			require.NoError(t, tagRepo.AddContactTags(context.Background(), []uint{contact.ID}, []uint{tag.ID}))

			require.NoError(t, flow.DeleteTag(context.Background(), user.ID, tag.ID, metadata))

			var linkCount int64
			require.NoError(t, testDB.DB.Model(&models.ContactTag{}).
				Where("tag_id = ?", tag.ID).Count(&linkCount).Error)
			assert.Equal(t, int64(0), linkCount)

			err = flow.DeleteTag(context.Background(), user.ID, tag.ID, metadata)
			require.Error(t, err)
			assert.True(t, IsTagNotFound(err))
		})

		t.Run("BulkDeleteSkipsInaccessible", func(t *testing.T) {
			mine, err := fixtures.CreateTestTag(models.TagOwnerUser, user.ID, user.ID)
			require.NoError(t, err)

			other, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			theirs, err := fixtures.CreateTestTag(models.TagOwnerUser, other.ID, other.ID)
			require.NoError(t, err)

			result, err := flow.BulkDeleteTags(context.Background(), user.ID, &dto.BulkDeleteTagsRequest{
				TagIDs: []uint{mine.ID, theirs.ID, 999999},
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Deleted)
			assert.Equal(t, 2, result.Skipped)
		})

		return nil
	})
	require.NoError(t, err)
}
