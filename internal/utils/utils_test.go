package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIDs(t *testing.T) {
	userRe := regexp.MustCompile(`^USR_[0-9A-F]{12}$`)
	productRe := regexp.MustCompile(`^PRD_[0-9A-F]{12}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		u := GenerateUserID()
		p := GenerateProductID()
		assert.Regexp(t, userRe, u)
		assert.Regexp(t, productRe, p)
		assert.False(t, seen[p], "duplicate id %s", p)
		seen[p] = true
	}
}

func TestHashBytes(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashBytes(nil))
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		HashBytes([]byte("abc")))
}

func TestJWTRoundTrip(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateJWT("USR_ABCDEF123456", "alice@example.com", 1)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "USR_ABCDEF123456", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)

	SetJWTSecret("other-secret")
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestJWTExpired(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateJWT("USR_ABCDEF123456", "alice@example.com", -1)
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

type registerInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(registerInput{Email: "alice@example.com", Password: "secret123"}))

	err := ValidateStruct(registerInput{Email: "nope", Password: "abc"})
	require.Error(t, err)

	details := GetValidationErrors(err)
	require.Len(t, details, 2)
	assert.Equal(t, "email", details[0].Field)
	assert.Equal(t, "Invalid email format", details[0].Message)
	assert.Equal(t, "password", details[1].Field)
	assert.Equal(t, "min", details[1].Tag)
}

func TestNormalizePagination(t *testing.T) {
	p := NormalizePagination(0, 500)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.Limit)

	p = NormalizePagination(3, 10)
	assert.Equal(t, 20, p.Offset())

	result := CreatePaginationResult([]int{1}, 21, p)
	assert.Equal(t, 3, result.TotalPages)
}
