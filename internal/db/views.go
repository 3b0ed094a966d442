package db

// PublicUser is what other users see in lists and search results.
type PublicUser struct {
	ID               string  `json:"id"`
	Username         string  `json:"username"`
	Bio              string  `json:"bio"`
	AvatarURL        string  `json:"avatar_url"`
	IsDrinkingToday  bool    `json:"is_drinking_today"`
	LastDrinkingDate *string `json:"last_drinking_date"`
}

// Contact is revealed to both users of a match.
type Contact struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// Profile is the owner's own view: everything but the credential.
type Profile struct {
	PublicUser
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	IsActive bool   `json:"is_active"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:               u.ID,
		Username:         u.Username,
		Bio:              u.Bio,
		AvatarURL:        u.AvatarURL,
		IsDrinkingToday:  u.IsDrinkingToday,
		LastDrinkingDate: u.LastDrinkingDate,
	}
}

func (u User) Contact() Contact {
	return Contact{
		UserID:    u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		Email:     u.Email,
		Phone:     u.Phone,
	}
}

func (u User) Profile() Profile {
	return Profile{
		PublicUser: u.Public(),
		Email:      u.Email,
		Phone:      u.Phone,
		IsActive:   u.IsActive,
	}
}

// DrinkingOn reports whether the user's status is set for the given date.
func (u User) DrinkingOn(date string) bool {
	return u.IsDrinkingToday && u.LastDrinkingDate != nil && *u.LastDrinkingDate == date
}

// StaleOn reports whether the stored status belongs to a day other than date.
func (u User) StaleOn(date string) bool {
	return u.IsDrinkingToday && (u.LastDrinkingDate == nil || *u.LastDrinkingDate != date)
}
