// ABOUTME: Field extraction from Google People API records
// ABOUTME: Maps one Person to a NormalizedContact using the primary-else-first selection rule
package sync

import (
	"strings"

	"github.com/networkgpt/networkgpt/models"
	"google.golang.org/api/people/v1"
)

const resourcePrefix = "people/"

// selectEntry returns the first entry flagged primary, otherwise the first entry.
// The bool is false only when entries is empty.
func selectEntry[T any](entries []T, isPrimary func(T) bool) (T, bool) {
	var zero T
	if len(entries) == 0 {
		return zero, false
	}
	for _, entry := range entries {
		if isPrimary(entry) {
			return entry, true
		}
	}
	return entries[0], true
}

func primary(metadata *people.FieldMetadata) bool {
	return metadata != nil && metadata.Primary
}

// ExternalID returns the stable identifier of a person: its resource name without
// the "people/" prefix.
func ExternalID(person *people.Person) string {
	if person == nil {
		return ""
	}
	return strings.TrimPrefix(person.ResourceName, resourcePrefix)
}

// Extract converts a People API person into a NormalizedContact. It never fails;
// missing fields become empty strings.
func Extract(person *people.Person) models.NormalizedContact {
	if person == nil {
		return models.NormalizedContact{}
	}

	nc := models.NormalizedContact{
		ExternalID: ExternalID(person),
	}

	if name, ok := selectEntry(person.Names, func(n *people.Name) bool { return n != nil && primary(n.Metadata) }); ok && name != nil {
		nc.Name = name.DisplayName
	}

	if email, ok := selectEntry(person.EmailAddresses, func(e *people.EmailAddress) bool { return e != nil && primary(e.Metadata) }); ok && email != nil {
		nc.Email = email.Value
	}

	if phone, ok := selectEntry(person.PhoneNumbers, func(p *people.PhoneNumber) bool { return p != nil && primary(p.Metadata) }); ok && phone != nil {
		nc.Phone = phone.Value
	}

	if org, ok := selectEntry(person.Organizations, func(o *people.Organization) bool { return o != nil && primary(o.Metadata) }); ok && org != nil {
		nc.Company = org.Name
		nc.Position = org.Title
	}

	if bio, ok := selectEntry(person.Biographies, func(b *people.Biography) bool { return b != nil && primary(b.Metadata) }); ok && bio != nil {
		nc.Notes = bio.Value
	}

	for _, u := range person.Urls {
		if u == nil {
			continue
		}
		platform := u.Type
		if platform == "" {
			platform = models.DefaultPlatform
		}
		nc.SocialLinks = append(nc.SocialLinks, models.SocialLinkInput{
			Platform: platform,
			URL:      u.Value,
		})
	}

	return nc
}

// ExtractAll normalizes a batch of people, preserving order.
func ExtractAll(persons []*people.Person) []models.NormalizedContact {
	contacts := make([]models.NormalizedContact, 0, len(persons))
	for _, person := range persons {
		contacts = append(contacts, Extract(person))
	}
	return contacts
}
