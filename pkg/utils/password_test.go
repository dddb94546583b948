package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("correct horse battery staple")
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))
	req.NotContains(hash, "correct horse")

	ok, err := VerifyPassword("correct horse battery staple", hash)
	req.NoError(err)
	req.True(ok)

	ok, err = VerifyPassword("wrong password", hash)
	req.NoError(err)
	req.False(ok)
}

func TestHashPasswordSaltsEveryCall(t *testing.T) {
	req := require.New(t)

	h1, err := HashPassword("same password")
	req.NoError(err)
	h2, err := HashPassword("same password")
	req.NoError(err)
	req.NotEqual(h1, h2)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	req := require.New(t)

	_, err := VerifyPassword("anything", "not-a-hash")
	req.Error(err)

	_, err = VerifyPassword("anything", "$bcrypt$whatever$x$y$z")
	req.Error(err)
}
