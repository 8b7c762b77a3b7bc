package model

// User is an account record. Users are created outside this service; the
// password is stored and compared as plain text.
type User struct {
	UserID    string   `json:"user_id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Password  string   `json:"-"`
	Favorite  []string `json:"favorite,omitempty"`
}

// FullName returns the first and last name joined by a single space.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
