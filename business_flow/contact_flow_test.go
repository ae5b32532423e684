// Package businessflow contains the core business logic and use cases for the messaging dashboard
package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/models"
	"github.com/princecjqlara/Tokkobeta/repository"
	testingutil "github.com/princecjqlara/Tokkobeta/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newContactFlowForTest(testDB *testingutil.TestDB) ContactFlow {
	return NewContactFlow(
		repository.NewContactRepository(testDB.DB),
		repository.NewTagRepository(testDB.DB),
		repository.NewPageRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
	)
}

func TestContactFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newContactFlowForTest(testDB)

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		page, err := fixtures.CreateTestPage(user.ID)
		require.NoError(t, err)

		metadata := &ClientMetadata{IPAddress: "127.0.0.1", UserAgent: "Test User Agent"}

		t.Run("ListContactsPaginates", func(t *testing.T) {
			_, err := fixtures.CreateTestContacts(page.ID, 5)
			require.NoError(t, err)

			first, err := flow.ListContacts(context.Background(), user.ID, page.ID,
				&dto.ListContactsRequest{Page: 1, PageSize: 3})
			require.NoError(t, err)
			assert.Equal(t, int64(5), first.Total)
			assert.Len(t, first.Contacts, 3)

			second, err := flow.ListContacts(context.Background(), user.ID, page.ID,
				&dto.ListContactsRequest{Page: 2, PageSize: 3})
			require.NoError(t, err)
			assert.Len(t, second.Contacts, 2)

			// Defaults apply when the request leaves paging empty
			defaulted, err := flow.ListContacts(context.Background(), user.ID, page.ID,
				&dto.ListContactsRequest{})
			require.NoError(t, err)
			assert.Equal(t, 1, defaulted.Page)
			assert.Equal(t, 50, defaulted.PageSize)
		})

		t.Run("ListContactsSearchesByName", func(t *testing.T) {
			searchPage, err := fixtures.CreateTestPage(user.ID)
			require.NoError(t, err)
			_, err = fixtures.CreateTestContact(searchPage.ID, "Alice Wonder")
			require.NoError(t, err)
			_, err = fixtures.CreateTestContact(searchPage.ID, "Bob Builder")
			require.NoError(t, err)

			found, err := flow.ListContacts(context.Background(), user.ID, searchPage.ID,
				&dto.ListContactsRequest{Search: "alice"})
			require.NoError(t, err)
			require.Len(t, found.Contacts, 1)
			assert.Equal(t, "Alice Wonder", *found.Contacts[0].Name)
		})

		t.Run("ListContactsRejectsStranger", func(t *testing.T) {
			stranger, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = flow.ListContacts(context.Background(), stranger.ID, page.ID,
				&dto.ListContactsRequest{})
			require.Error(t, err)
			assert.True(t, IsPageAccessDenied(err))
		})

		t.Run("BulkAddAndRemoveTags", func(t *testing.T) {
			tagPage, err := fixtures.CreateTestPage(user.ID)
			require.NoError(t, err)
			contacts, err := fixtures.CreateTestContacts(tagPage.ID, 2)
			require.NoError(t, err)
			tag, err := fixtures.CreateTestTag(models.TagOwnerUser, user.ID, user.ID)
			require.NoError(t, err)

			request := &dto.BulkTagRequest{
				ContactIDs: []uint{contacts[0].ID, contacts[1].ID},
				TagIDs:     []uint{tag.ID},
			}

			result, err := flow.BulkAddTags(context.Background(), user.ID, tagPage.ID, request)
			require.NoError(t, err)
			assert.Equal(t, 2, result.Contacts)
			assert.Equal(t, 1, result.Tags)

			// Tagging the same pair twice must not duplicate links
			_, err = flow.BulkAddTags(context.Background(), user.ID, tagPage.ID, request)
			require.NoError(t, err)

			var linkCount int64
			require.NoError(t, testDB.DB.Model(&models.ContactTag{}).
				Where("tag_id = ?", tag.ID).Count(&linkCount).Error)
			assert.Equal(t, int64(2), linkCount)

			tagged, err := flow.ListContacts(context.Background(), user.ID, tagPage.ID,
				&dto.ListContactsRequest{TagID: tag.ID})
			require.NoError(t, err)
			assert.Len(t, tagged.Contacts, 2)

			_, err = flow.BulkRemoveTags(context.Background(), user.ID, tagPage.ID, request)
			require.NoError(t, err)

			require.NoError(t, testDB.DB.Model(&models.ContactTag{}).
				Where("tag_id = ?", tag.ID).Count(&linkCount).Error)
			assert.Equal(t, int64(0), linkCount)
		})

		t.Run("BulkAddTagsRejectsForeignTag", func(t *testing.T) {
			contacts, err := fixtures.CreateTestContacts(page.ID, 1)
			require.NoError(t, err)

			other, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			foreignTag, err := fixtures.CreateTestTag(models.TagOwnerUser, other.ID, other.ID)
			require.NoError(t, err)

			_, err = flow.BulkAddTags(context.Background(), user.ID, page.ID, &dto.BulkTagRequest{
				ContactIDs: []uint{contacts[0].ID},
				TagIDs:     []uint{foreignTag.ID},
			})
			require.Error(t, err)
			assert.True(t, IsTagAccessDenied(err))
		})

		t.Run("BulkAddTagsRejectsForeignContacts", func(t *testing.T) {
			otherUser, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			otherPage, err := fixtures.CreateTestPage(otherUser.ID)
			require.NoError(t, err)
			foreign, err := fixtures.CreateTestContact(otherPage.ID, "Elsewhere")
			require.NoError(t, err)
			tag, err := fixtures.CreateTestTag(models.TagOwnerUser, user.ID, user.ID)
			require.NoError(t, err)

			_, err = flow.BulkAddTags(context.Background(), user.ID, page.ID, &dto.BulkTagRequest{
				ContactIDs: []uint{foreign.ID},
				TagIDs:     []uint{tag.ID},
			})
			require.Error(t, err)
			assert.True(t, IsNoContactsOnPage(err))
		})

		t.Run("BulkDeleteContacts", func(t *testing.T) {
			deletePage, err := fixtures.CreateTestPage(user.ID)
			require.NoError(t, err)
			contacts, err := fixtures.CreateTestContacts(deletePage.ID, 3)
			require.NoError(t, err)

			result, err := flow.BulkDeleteContacts(context.Background(), user.ID, deletePage.ID,
				&dto.BulkDeleteContactsRequest{ContactIDs: []uint{contacts[0].ID, contacts[1].ID}}, metadata)
			require.NoError(t, err)
			assert.Equal(t, int64(2), result.Deleted)

			remaining, err := flow.ListContacts(context.Background(), user.ID, deletePage.ID,
				&dto.ListContactsRequest{})
			require.NoError(t, err)
			assert.Len(t, remaining.Contacts, 1)
		})

		t.Run("ExportContactsProducesWorkbook", func(t *testing.T) {
			exportPage, err := fixtures.CreateTestPage(user.ID)
			require.NoError(t, err)
			_, err = fixtures.CreateTestContacts(exportPage.ID, 2)
			require.NoError(t, err)

			filename, data, err := flow.ExportContacts(context.Background(), user.ID, exportPage.ID,
				&dto.ListContactsRequest{}, metadata)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("contacts_page_%d.xlsx", exportPage.ID), filename)
			require.NotEmpty(t, data)

			// The bytes must open as a real workbook with a header plus one
			// row per contact
			xl, err := excelize.OpenReader(bytes.NewReader(data))
			require.NoError(t, err)
			defer xl.Close()

			rows, err := xl.GetRows("Contacts")
			require.NoError(t, err)
			require.Len(t, rows, 3)
			assert.Equal(t, "psid", rows[0][1])
		})

		return nil
	})
	require.NoError(t, err)
}
