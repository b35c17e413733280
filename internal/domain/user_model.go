package domain

import "time"

// User is the identity carried by the session / Identité portée par la session
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// SessionStatus is the session lifecycle state / État du cycle de vie de la session
type SessionStatus int

const (
	StatusAnonymous      SessionStatus = iota // No identity / Aucune identité
	StatusAuthenticating                      // Login or restore in flight / Connexion en cours
	StatusAuthenticated                       // Identity present / Identité présente
)

// String returns status name / Retourne le nom de l'état
func (s SessionStatus) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// AuthState is a snapshot of the session / Instantané de la session
type AuthState struct {
	User            *User         `json:"user"`
	IsAuthenticated bool          `json:"isAuthenticated"`
	IsLoading       bool          `json:"isLoading"`
	Error           string        `json:"error,omitempty"`
	Status          SessionStatus `json:"-"`
}

// PersistedSession is the identity saved across restarts / Identité sauvegardée entre redémarrages
type PersistedSession struct {
	User     User
	LoggedIn time.Time
}

// SessionRecord is the stored, signed form of a PersistedSession / Forme stockée et signée
type SessionRecord struct {
	BaseModel
	Token string
}
