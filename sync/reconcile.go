// ABOUTME: Contact reconciliation engine
// ABOUTME: Diffs normalized remote contacts against the local store and applies minimal creates and updates
package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/networkgpt/networkgpt/models"
	"github.com/rs/zerolog"
)

// ContactStore is the local contact store the engine reads from and writes to.
// FindByExternalID returns (nil, nil) when no contact matches.
type ContactStore interface {
	FindByExternalID(ctx context.Context, accountID int64, externalID string) (*models.Contact, error)
	ListForAccount(ctx context.Context, accountID int64) ([]models.Contact, error)
	Create(ctx context.Context, accountID int64, attrs models.ContactAttrs) (*models.Contact, error)
	Update(ctx context.Context, contactID uuid.UUID, changes models.ContactChanges) error
	ListSocialLinks(ctx context.Context, contactID uuid.UUID) ([]models.SocialLink, error)
	AddSocialLink(ctx context.Context, contactID uuid.UUID, platform, url string) error
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeAdded
	outcomeUpdated
)

// Reconciler applies remote contacts to the local store one record at a time.
type Reconciler struct {
	store  ContactStore
	logger zerolog.Logger
}

// NewReconciler creates a reconciler backed by store.
func NewReconciler(store ContactStore, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger,
	}
}

// Reconcile classifies every contact as added, updated, skipped, or failed.
// Failures of a single record are counted and logged; only a failed snapshot
// load or cancellation is returned as an error.
func (r *Reconciler) Reconcile(ctx context.Context, accountID int64, contacts []models.NormalizedContact) (models.SyncStats, error) {
	stats := models.SyncStats{Total: len(contacts)}

	// Load all existing contacts once, not per record
	existing, err := r.store.ListForAccount(ctx, accountID)
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrSnapshot, err)
	}

	byExternalID := make(map[string]*models.Contact, len(existing))
	for i := range existing {
		if existing[i].ExternalID != nil && *existing[i].ExternalID != "" {
			byExternalID[*existing[i].ExternalID] = &existing[i]
		}
	}

	log := r.logger.With().Int64("account_id", accountID).Logger()

	for i := range contacts {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("%w after %d of %d contacts: %w", ErrCanceled, i, len(contacts), err)
		}

		nc := &contacts[i]
		result, err := r.reconcileOne(ctx, accountID, nc, byExternalID)
		if err != nil {
			stats.Failed++
			log.Warn().Err(err).
				Str("external_id", nc.ExternalID).
				Str("name", nc.Name).
				Msg("failed to reconcile contact")
			continue
		}

		switch result {
		case outcomeAdded:
			stats.Added++
		case outcomeUpdated:
			stats.Updated++
		default:
			stats.Skipped++
		}
	}

	return stats, nil
}

// reconcileOne processes a single record. A panic while handling malformed data
// is turned into an error so it only fails this record.
func (r *Reconciler) reconcileOne(ctx context.Context, accountID int64, nc *models.NormalizedContact, byExternalID map[string]*models.Contact) (result outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while reconciling contact: %v", p)
		}
	}()

	externalID := strings.TrimSpace(nc.ExternalID)
	if externalID == "" {
		r.logger.Debug().Int64("account_id", accountID).Str("name", nc.Name).Msg("skipping contact without external id")
		return outcomeSkipped, nil
	}

	existing, found := byExternalID[externalID]
	if !found {
		created, err := r.create(ctx, accountID, externalID, nc)
		if created != nil {
			// Later records with the same id in this batch update instead of duplicating
			byExternalID[externalID] = created
		}
		if err != nil {
			return outcomeSkipped, err
		}
		return outcomeAdded, nil
	}

	changed, err := r.update(ctx, existing, nc)
	if err != nil {
		return outcomeSkipped, err
	}
	if changed {
		return outcomeUpdated, nil
	}
	return outcomeSkipped, nil
}

// create inserts the contact and attaches its links. The contact is returned
// whenever the row exists, even if a link write failed.
func (r *Reconciler) create(ctx context.Context, accountID int64, externalID string, nc *models.NormalizedContact) (*models.Contact, error) {
	attrs := nc.Attrs()
	attrs.ExternalID = externalID

	contact, err := r.store.Create(ctx, accountID, attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	if _, err := r.appendLinks(ctx, contact.ID, nc.SocialLinks, nil); err != nil {
		return contact, err
	}

	return contact, nil
}

// update applies the fill-or-replace diff and appends unseen social links.
// It reports whether anything was written.
func (r *Reconciler) update(ctx context.Context, existing *models.Contact, nc *models.NormalizedContact) (bool, error) {
	changes := DiffContact(existing, nc)
	if !changes.IsEmpty() {
		if err := r.store.Update(ctx, existing.ID, changes); err != nil {
			return false, fmt.Errorf("failed to update contact: %w", err)
		}
		r.logger.Debug().
			Str("contact_id", existing.ID.String()).
			Strs("fields", changes.Fields()).
			Msg("contact updated")
		changes.Apply(existing)
	}

	links, err := r.store.ListSocialLinks(ctx, existing.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load social links: %w", err)
	}

	stored := make(map[string]bool, len(links))
	for _, link := range links {
		stored[link.URL] = true
	}

	added, err := r.appendLinks(ctx, existing.ID, nc.SocialLinks, stored)
	if err != nil {
		return false, err
	}

	return !changes.IsEmpty() || added > 0, nil
}

// appendLinks attaches links whose URL is not in seen, in order, and returns how
// many were written. Blank URLs are ignored.
func (r *Reconciler) appendLinks(ctx context.Context, contactID uuid.UUID, links []models.SocialLinkInput, seen map[string]bool) (int, error) {
	if seen == nil {
		seen = make(map[string]bool, len(links))
	}

	added := 0
	for _, link := range links {
		url := strings.TrimSpace(link.URL)
		if url == "" || seen[url] {
			continue
		}

		platform := link.Platform
		if platform == "" {
			platform = models.DefaultPlatform
		}

		if err := r.store.AddSocialLink(ctx, contactID, platform, url); err != nil {
			return added, fmt.Errorf("failed to add social link %q: %w", url, err)
		}
		seen[url] = true
		added++
	}

	return added, nil
}

// DiffContact returns the scalar fields of nc that should overwrite existing.
// A field changes only when the incoming value is non-empty and differs; empty
// incoming values never erase stored data.
func DiffContact(existing *models.Contact, nc *models.NormalizedContact) models.ContactChanges {
	var changes models.ContactChanges

	pick := func(stored, incoming string) *string {
		if incoming == "" || incoming == stored {
			return nil
		}
		v := incoming
		return &v
	}

	changes.Name = pick(existing.Name, nc.Name)
	changes.Email = pick(existing.Email, nc.Email)
	changes.Phone = pick(existing.Phone, nc.Phone)
	changes.Company = pick(existing.Company, nc.Company)
	changes.Position = pick(existing.Position, nc.Position)
	changes.Notes = pick(existing.Notes, nc.Notes)

	return changes
}
