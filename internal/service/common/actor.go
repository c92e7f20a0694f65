//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	"github.com/oshokin/fanctl/internal/domain/thermal"
)

// rootUsername is the only account allowed to send raw IPMI commands locally.
const rootUsername = "root"

// Actor identifies the host and account fanctl runs as.
type Actor struct {
	Hostname string
	Username string
	UID      int
}

// DetectActor gathers host and user information.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
		UID:      os.Geteuid(),
	}, nil
}

// IsPrivileged reports whether the actor may talk to the BMC.
func (a *Actor) IsPrivileged() bool {
	return a != nil && (a.UID == 0 || a.Username == rootUsername)
}

// VerifyPrivilege fails with thermal.ErrStartupPrivilege unless the process runs as root.
func VerifyPrivilege() (*Actor, error) {
	actor, err := DetectActor()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", thermal.ErrStartupPrivilege, err)
	}

	if !actor.IsPrivileged() {
		return actor, fmt.Errorf("%w: running as user %q", thermal.ErrStartupPrivilege, actor.Username)
	}

	return actor, nil
}
