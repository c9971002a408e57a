package entity

type UserRole string

const (
	RolePatient UserRole = "patient"
	RoleDoctor  UserRole = "doctor"
	RoleAdmin   UserRole = "admin"
)

// Valid reports whether r is one of the fixed roles.
func (r UserRole) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

type UserStatus string

const (
	StatusPending  UserStatus = "pending"
	StatusVerified UserStatus = "verified"
)

type User struct {
	Base
	FullName     string     `db:"full_name"`
	Email        string     `db:"email"`
	Phone        *string    `db:"phone"`
	PasswordHash string     `db:"password_hash"`
	Role         UserRole   `db:"role"`
	Status       UserStatus `db:"status"`
}

func (u *User) IsVerified() bool {
	return u.Status == StatusVerified
}
