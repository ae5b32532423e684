// Package testing provides test utilities and database setup for testing the messaging dashboard
package testing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mathrand "math/rand"
	"time"

	"github.com/princecjqlara/Tokkobeta/models"
	"github.com/princecjqlara/Tokkobeta/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates an active test user with a known password
func (tf *TestFixtures) CreateTestUser() (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	randomDigits := fmt.Sprintf("%09d", mathrand.Intn(900000000)+100000000)

	user := &models.User{
		UUID:         uuid.New(),
		Email:        fmt.Sprintf("operator.%s@example.com", randomDigits),
		Name:         utils.ToPtr("Test Operator"),
		PasswordHash: string(hashedPassword),
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	return user, nil
}

// GenerateSecureToken creates a random token string for session fixtures
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// CreateTestSession creates an active session for the given user
func (tf *TestFixtures) CreateTestSession(userID uint) (*models.UserSession, error) {
	sessionToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	refreshToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session := &models.UserSession{
		CorrelationID:  uuid.New(),
		UserID:         userID,
		SessionToken:   sessionToken,
		RefreshToken:   &refreshToken,
		IsActive:       utils.ToPtr(true),
		LastAccessedAt: time.Now().UTC(),
		ExpiresAt:      time.Now().UTC().Add(24 * time.Hour),
	}

	if err := tf.DB.DB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create test session: %w", err)
	}

	return session, nil
}

// CreateTestPage creates a connected page and grants the user access to it
func (tf *TestFixtures) CreateTestPage(userID uint) (*models.Page, error) {
	page := &models.Page{
		FBPageID:    fmt.Sprintf("%d%04d", time.Now().UnixNano(), mathrand.Intn(10000)),
		Name:        "Test Page",
		Category:    utils.ToPtr("Local Business"),
		AccessToken: "test-page-access-token",
		IsActive:    utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(page).Error; err != nil {
		return nil, fmt.Errorf("failed to create test page: %w", err)
	}

	membership := &models.UserPage{
		UserID: userID,
		PageID: page.ID,
		Role:   "admin",
	}
	if err := tf.DB.DB.Create(membership).Error; err != nil {
		return nil, fmt.Errorf("failed to create test page membership: %w", err)
	}

	return page, nil
}

// CreateTestContact creates a contact on the given page
func (tf *TestFixtures) CreateTestContact(pageID uint, name string) (*models.Contact, error) {
	now := time.Now().UTC()
	contact := &models.Contact{
		PageID:          pageID,
		PSID:            fmt.Sprintf("psid-%d-%04d", time.Now().UnixNano(), mathrand.Intn(10000)),
		Name:            &name,
		LastInteraction: &now,
	}

	if err := tf.DB.DB.Create(contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create test contact: %w", err)
	}

	return contact, nil
}

// CreateTestContacts creates n contacts on the given page
func (tf *TestFixtures) CreateTestContacts(pageID uint, n int) ([]*models.Contact, error) {
	contacts := make([]*models.Contact, 0, n)
	for i := 0; i < n; i++ {
		contact, err := tf.CreateTestContact(pageID, fmt.Sprintf("Contact %d", i+1))
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, nil
}

// CreateTestTag creates a tag with the given owner scope
func (tf *TestFixtures) CreateTestTag(ownerType models.TagOwnerType, ownerID, createdBy uint) (*models.Tag, error) {
	tag := &models.Tag{
		Name:      fmt.Sprintf("tag-%04d", mathrand.Intn(10000)),
		Color:     utils.ToPtr("#3366FF"),
		OwnerType: ownerType,
		OwnerID:   ownerID,
		CreatedBy: createdBy,
	}

	if err := tf.DB.DB.Create(tag).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tag: %w", err)
	}

	return tag, nil
}

// CreateTestCampaign creates a draft campaign with pending recipients for the given contacts
func (tf *TestFixtures) CreateTestCampaign(pageID, createdBy uint, contactIDs []uint) (*models.Campaign, error) {
	campaign := &models.Campaign{
		UUID:            uuid.New(),
		PageID:          pageID,
		CreatedBy:       createdBy,
		Name:            "Test Campaign",
		Message:         "Hello from the test campaign",
		Status:          models.CampaignStatusDraft,
		TotalRecipients: len(contactIDs),
	}

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}

	for _, contactID := range contactIDs {
		recipient := &models.CampaignRecipient{
			CampaignID: campaign.ID,
			ContactID:  contactID,
			Status:     models.RecipientStatusPending,
		}
		if err := tf.DB.DB.Create(recipient).Error; err != nil {
			return nil, fmt.Errorf("failed to create test recipient: %w", err)
		}
	}

	return campaign, nil
}
