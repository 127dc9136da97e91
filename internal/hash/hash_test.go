package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	t.Parallel()

	digest, err := HashPassword("s3cret!")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	assert.NotEqual(t, "s3cret!", digest)

	assert.True(t, CheckPassword(digest, "s3cret!"))
	assert.False(t, CheckPassword(digest, "wrong"))
}

func TestCheckPassword_MalformedDigest(t *testing.T) {
	t.Parallel()

	assert.False(t, CheckPassword("not-a-bcrypt-digest", "anything"))
}
