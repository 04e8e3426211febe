package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoginInput_Validate(t *testing.T) {
	assert.NoError(t, LoginInput{Email: "a@b.com", Password: "x"}.Validate())
	assert.Error(t, LoginInput{Email: "not-an-email", Password: "x"}.Validate())
	assert.Error(t, LoginInput{Email: "a@b.com"}.Validate())
	assert.Error(t, LoginInput{}.Validate())
}

func TestRegisterInput_NormalizeDefaultsRole(t *testing.T) {
	in := RegisterInput{Username: "  bob ", Email: " bob@example.com", Password: "pw"}.Normalize()
	assert.Equal(t, "bob", in.Username)
	assert.Equal(t, "bob@example.com", in.Email)
	assert.Equal(t, RoleApplicant, in.Role)
	assert.NoError(t, in.Validate())
}

func TestRegisterInput_RejectsAdminRole(t *testing.T) {
	in := RegisterInput{Username: "eve", Email: "eve@example.com", Password: "pw", Role: RoleAdmin}
	assert.Error(t, in.Validate())

	in.Role = RoleEmployer
	assert.NoError(t, in.Validate())
}

func TestRegisterInput_RejectsMalformedEmail(t *testing.T) {
	for _, email := range []string{"bob", "bob@", "@example.com", "bob example.com"} {
		in := RegisterInput{Username: "bob", Email: email, Password: "pw"}.Normalize()
		assert.Error(t, in.Validate(), email)
	}
}
