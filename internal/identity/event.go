package identity

import "encoding/json"

// Event types that change the local user table.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event is the webhook envelope.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EmailAddress is one address on a provider user.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// UserData is the user payload of user.* events.
type UserData struct {
	ID                    string         `json:"id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	ImageURL              *string        `json:"image_url"`
}

// PrimaryEmail returns the primary address, else the first one, else nil.
func (u UserData) PrimaryEmail() *string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			addr := e.EmailAddress
			return &addr
		}
	}
	if len(u.EmailAddresses) > 0 {
		addr := u.EmailAddresses[0].EmailAddress
		return &addr
	}
	return nil
}

// User is the local identity record written by ingestion.
type User struct {
	ClerkUserID string
	Email       *string
	FirstName   *string
	LastName    *string
	ImageURL    *string
}

func (u UserData) user() User {
	return User{
		ClerkUserID: u.ID,
		Email:       u.PrimaryEmail(),
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		ImageURL:    u.ImageURL,
	}
}
