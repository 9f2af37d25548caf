package dig_container

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/feeportal/apps/api/echo"
	"github.com/trezcool/feeportal/core/fee"
)

func TestNew(t *testing.T) {
	require.NoError(t, os.Setenv("ENV", "TEST"))
	require.NoError(t, os.Setenv("TEST_FEES_STORAGE", "memory"))
	require.NoError(t, os.Setenv("TEST_FEES_SEED", "true"))
	defer func() {
		_ = os.Unsetenv("TEST_FEES_STORAGE")
		_ = os.Unsetenv("TEST_FEES_SEED")
	}()

	c := New()
	err := c.Invoke(func(store Store, repo fee.Repository, svc *fee.Service, server *echoapi.Server) {
		assert.Nil(t, store.DB)
		assert.Equal(t, store.Repo, repo)
		assert.NotNil(t, svc)
		assert.NotNil(t, server)

		ids, err := svc.SortedStudentIDs(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"UDS-S-001", "UDS-S-002", "UDS-S-003"}, ids)
	})
	require.NoError(t, err)
}
