package model

// User is the account as returned by the user service.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Country  string `json:"country"`
	City     string `json:"city"`
	Phone    string `json:"phone,omitempty"`
	Img      string `json:"img,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
}

// ProfileFields is the editable part of a user profile.
// It has no credential fields so a password is never sent with a profile update.
type ProfileFields struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Country  string `json:"country"`
	City     string `json:"city"`
	Phone    string `json:"phone,omitempty"`
	Img      string `json:"img,omitempty"`
}

// Profile extracts the editable fields.
func (u User) Profile() ProfileFields {
	return ProfileFields{
		Username: u.Username,
		Email:    u.Email,
		Country:  u.Country,
		City:     u.City,
		Phone:    u.Phone,
		Img:      u.Img,
	}
}

// WithProfile returns a copy of u with the profile fields applied.
func (u User) WithProfile(p ProfileFields) User {
	u.Username = p.Username
	u.Email = p.Email
	u.Country = p.Country
	u.City = p.City
	u.Phone = p.Phone
	u.Img = p.Img
	return u
}
