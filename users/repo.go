package users

// UserRepo stores backend accounts. Usernames and emails are unique.
type UserRepo interface {
	Create(user *User) error
	GetByID(id int64) (*User, error)
	GetByUsername(username string) (*User, error)
	GetByEmail(email string) (*User, error)
	SetLastLogin(id int64) error
}
