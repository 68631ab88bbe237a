package domain

// Credentials is the username/password pair used to log in to the platform.
type Credentials struct {
	Username string
	Password string
}

// String never includes the password.
func (c Credentials) String() string {
	if c.Password == "" {
		return c.Username + ":<empty>"
	}
	return c.Username + ":<redacted>"
}

// Complete reports whether both fields are set.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}
