// ABOUTME: Google People API client for contacts sync
// ABOUTME: Pages through the authenticated user's connections and returns the raw person records
package sync

import (
	"context"
	"fmt"

	"github.com/networkgpt/networkgpt/models"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
)

const (
	// PersonFields is the field mask requested for every connection.
	PersonFields = "names,emailAddresses,phoneNumbers,organizations,biographies,urls"

	DefaultPageSize = 100
	maxPageSize     = 1000
)

// ContactSource yields every remote contact of an account.
type ContactSource interface {
	FetchAll(ctx context.Context, account *models.Account) ([]*people.Person, error)
}

// PeopleSource fetches connections from the Google People API.
type PeopleSource struct {
	oauth    *OAuth
	pageSize int64
	options  []option.ClientOption
}

// NewPeopleSource creates a source that authenticates through oauth. When oauth
// is nil the caller must supply authentication in opts.
func NewPeopleSource(oauth *OAuth, pageSize int, opts ...option.ClientOption) *PeopleSource {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = DefaultPageSize
	}
	return &PeopleSource{
		oauth:    oauth,
		pageSize: int64(pageSize),
		options:  opts,
	}
}

func (s *PeopleSource) service(ctx context.Context, account *models.Account) (*people.Service, error) {
	opts := make([]option.ClientOption, 0, len(s.options)+1)
	if s.oauth != nil {
		opts = append(opts, option.WithTokenSource(s.oauth.TokenSource(ctx, account)))
	}
	opts = append(opts, s.options...)

	service, err := people.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create People service: %w", err)
	}
	return service, nil
}

// FetchAll follows page tokens until the listing is exhausted.
func (s *PeopleSource) FetchAll(ctx context.Context, account *models.Account) ([]*people.Person, error) {
	if !account.Authorized() {
		return nil, ErrNotAuthorized
	}

	service, err := s.service(ctx, account)
	if err != nil {
		return nil, err
	}

	var persons []*people.Person
	pageToken := ""

	for {
		call := service.People.Connections.List("people/me").
			PageSize(s.pageSize).
			PersonFields(PersonFields).
			Context(ctx)

		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		response, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch contacts: %w", err)
		}

		if response == nil {
			break
		}
		persons = append(persons, response.Connections...)

		pageToken = response.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return persons, nil
}
