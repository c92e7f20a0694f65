//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/fanctl/internal/domain/thermal"
)

// TestDetectActor ensures hostname and username are detected and non-empty.
func TestDetectActor(t *testing.T) {
	t.Parallel()

	a, err := DetectActor()
	require.NoError(t, err)
	require.NotEmpty(t, a.Hostname)
	require.NotEmpty(t, a.Username)
}

// TestActor_IsPrivileged accepts uid 0 or the root account only.
func TestActor_IsPrivileged(t *testing.T) {
	t.Parallel()

	require.False(t, (*Actor)(nil).IsPrivileged())
	require.True(t, (&Actor{UID: 0, Username: "toor"}).IsPrivileged())
	require.True(t, (&Actor{UID: 1000, Username: "root"}).IsPrivileged())
	require.False(t, (&Actor{UID: 1000, Username: "o.shokin"}).IsPrivileged())
}

// TestVerifyPrivilege matches the current account.
func TestVerifyPrivilege(t *testing.T) {
	t.Parallel()

	actor, err := VerifyPrivilege()
	require.NotNil(t, actor)

	if actor.IsPrivileged() {
		require.NoError(t, err)

		return
	}

	require.True(t, errors.Is(err, thermal.ErrStartupPrivilege))
}
