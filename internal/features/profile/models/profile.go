package models

import (
	"fmt"
	"strings"
	"time"
)

// Extension is the suffix the install script gives every issued profile.
const Extension = ".ovpn"

// Profile описывает выданный VPN-профиль на диске
type Profile struct {
	// Name is the file name including the extension.
	Name string `json:"name"`
	// Path is the absolute location under the artifact directory.
	Path string `json:"path"`
	// CreatedAt comes from filesystem metadata. The timestamp embedded in
	// the name is a human-debuggable hint only.
	CreatedAt time.Time `json:"created_at"`
}

// Identifier returns the client identifier the install script knows the
// profile by, the file name without its extension.
func (p Profile) Identifier() string {
	return strings.TrimSuffix(p.Name, Extension)
}

// Caller is the chat identity a profile is issued to. ID is the stable
// key; the name parts are mutable and only decorate the identifier.
type Caller struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// OwnerPrefix is the token profile names carry to be looked up by owner.
func OwnerPrefix(ownerID int64) string {
	return fmt.Sprintf("id%d_", ownerID)
}
