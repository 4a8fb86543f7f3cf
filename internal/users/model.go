package users

import "time"

type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	GivenName  string    `json:"givenName"`
	FamilyName string    `json:"familyName"`
	PictureURL string    `json:"pictureUrl"`
	FamilyID   string    `json:"familyId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// DisplayName is the name other family members see, used on the family
// page and in the retrieval vocabulary.
func (u User) DisplayName() string {
	if u.GivenName != "" {
		return u.GivenName
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
