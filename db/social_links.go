// ABOUTME: Social link database operations
// ABOUTME: Stores per-contact links keyed by URL, ignoring duplicates
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/networkgpt/networkgpt/models"
)

// ListSocialLinks returns the contact's links in insertion order.
func (s *Store) ListSocialLinks(ctx context.Context, contactID uuid.UUID) ([]models.SocialLink, error) {
	var links []models.SocialLink
	err := s.db.SelectContext(ctx, &links, s.rebind(`
		SELECT id, contact_id, platform, url, created_at
		FROM social_links
		WHERE contact_id = ?
		ORDER BY created_at, id
	`), contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to list social links: %w", err)
	}
	return links, nil
}

// AddSocialLink attaches a link to the contact. A URL the contact already has is ignored.
func (s *Store) AddSocialLink(ctx context.Context, contactID uuid.UUID, platform, url string) error {
	if platform == "" {
		platform = models.DefaultPlatform
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO social_links (id, contact_id, platform, url, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (contact_id, url) DO NOTHING
	`), uuid.New(), contactID, platform, url, s.stamp())
	if err != nil {
		return fmt.Errorf("failed to add social link: %w", err)
	}

	return nil
}
