package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/turtlelab/labtrack/models"
)

type UserServiceTestSuite struct {
	suite.Suite
	env *testEnv
	ctx context.Context
}

func (s *UserServiceTestSuite) SetupTest() {
	s.env = newTestEnv(s.T())
	s.ctx = context.Background()

	_, err := s.env.services.Roles.Create(s.ctx, "admin", &models.RoleForm{
		Role: "operator", Permissions: []string{"sa_r", "sa_w"},
	})
	s.Require().NoError(err)
}

func (s *UserServiceTestSuite) TestCreateGeneratesUsername() {
	user, err := s.env.services.Users.Create(s.ctx, "admin", &models.UserForm{
		FirstName: "Jane", LastName: "Doe", Role: "operator", IsActive: true,
		Password: "secret-password",
	})
	s.Require().NoError(err)
	s.Equal("doej", user.Username)
	s.True(user.InitialPassword, "fresh accounts must force a password change")
	s.True(user.Verified)

	// Same name again grows the first name prefix.
	second, err := s.env.services.Users.Create(s.ctx, "admin", &models.UserForm{
		FirstName: "Jane", LastName: "Doe", Role: "operator", IsActive: true,
		Password: "secret-password",
	})
	s.Require().NoError(err)
	s.Equal("doeja", second.Username)
}

func (s *UserServiceTestSuite) TestCreateHashesPasswordWithSlowProfile() {
	user, err := s.env.services.Users.Create(s.ctx, "admin", &models.UserForm{
		FirstName: "Jane", LastName: "Doe", Role: "operator", IsActive: true,
		Password: "secret-password",
	})
	s.Require().NoError(err)

	fetched, err := s.env.services.Users.Get(s.ctx, user.Username)
	s.Require().NoError(err)
	s.NotEqual("secret-password", fetched.Password)
	s.Contains(fetched.Password, "$argon2id$")
	s.True(s.env.engine.VerifyCredential("secret-password", fetched.Password))
	s.False(s.env.engine.VerifyCredential("wrong", fetched.Password))
}

func (s *UserServiceTestSuite) TestCreateRequiresPassword() {
	_, err := s.env.services.Users.Create(s.ctx, "admin", &models.UserForm{
		FirstName: "Jane", LastName: "Doe", Role: "operator", IsActive: true,
	})
	var verr *ValidationError
	s.ErrorAs(err, &verr)
}

func (s *UserServiceTestSuite) TestAuditTrailExcludesPassword() {
	user, err := s.env.services.Users.Create(s.ctx, "admin", &models.UserForm{
		FirstName: "Jane", LastName: "Doe", Role: "operator", IsActive: true,
		Password: "secret-password",
	})
	s.Require().NoError(err)

	trail, err := s.env.services.Users.AuditTrail(s.ctx, user.Username)
	s.Require().NoError(err)
	s.Require().Len(trail, 1)
	s.NotContains(trail[0].Fields, "password")
	s.True(trail[0].Verified)
}

func (s *UserServiceTestSuite) TestUpdateKeepsCredentialHash() {
	user, err := s.env.services.Users.Create(s.ctx, "admin", &models.UserForm{
		FirstName: "Jane", LastName: "Doe", Role: "operator", IsActive: true,
		Password: "secret-password",
	})
	s.Require().NoError(err)

	updated, err := s.env.services.Users.Update(s.ctx, "admin", user.Username, &models.UserForm{
		Username: user.Username, FirstName: "Janet", LastName: "Doe",
		Role: "operator", IsActive: true,
	})
	s.Require().NoError(err)
	s.Equal("Janet", updated.FirstName)
	s.Equal(2, updated.Version)
	s.True(updated.Verified)
	s.True(s.env.engine.VerifyCredential("secret-password", updated.Password))
}

func (s *UserServiceTestSuite) TestSetPassword() {
	user, err := s.env.services.Users.Create(s.ctx, "admin", &models.UserForm{
		FirstName: "Jane", LastName: "Doe", Role: "operator", IsActive: true,
		Password: "secret-password",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.env.services.Users.SetPassword(s.ctx, user.Username, user.Username, "new-password", false))

	fetched, err := s.env.services.Users.Get(s.ctx, user.Username)
	s.Require().NoError(err)
	s.True(s.env.engine.VerifyCredential("new-password", fetched.Password))
	s.False(fetched.InitialPassword)
	s.True(fetched.Verified)
}

func (s *UserServiceTestSuite) TestSetActiveIsAudited() {
	user, err := s.env.services.Users.Create(s.ctx, "admin", &models.UserForm{
		FirstName: "Jane", LastName: "Doe", Role: "operator", IsActive: true,
		Password: "secret-password",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.env.services.Users.SetActive(s.ctx, "admin", user.Username, false))

	fetched, err := s.env.services.Users.Get(s.ctx, user.Username)
	s.Require().NoError(err)
	s.False(fetched.IsActive)

	trail, err := s.env.services.Users.AuditTrail(s.ctx, user.Username)
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal(models.ActionUpdate, trail[0].Action)
	s.Equal(false, trail[0].Fields["is_active"])
}

func (s *UserServiceTestSuite) TestHasPermission() {
	user, err := s.env.services.Users.Create(s.ctx, "admin", &models.UserForm{
		FirstName: "Jane", LastName: "Doe", Role: "operator", IsActive: true,
		Password: "secret-password",
	})
	s.Require().NoError(err)

	granted, err := s.env.services.Users.HasPermission(s.ctx, user.Username, "sa_w")
	s.Require().NoError(err)
	s.True(granted)

	granted, err = s.env.services.Users.HasPermission(s.ctx, user.Username, "sa_d")
	s.Require().NoError(err)
	s.False(granted)
}

func (s *UserServiceTestSuite) TestWildcardRoleGrantsEverything() {
	user, err := s.env.services.Users.Create(s.ctx, "admin", &models.UserForm{
		FirstName: "Root", LastName: "Admin", Role: models.RoleAll, IsActive: true,
		Password: "secret-password",
	})
	s.Require().NoError(err)

	granted, err := s.env.services.Users.HasPermission(s.ctx, user.Username, "us_w")
	s.Require().NoError(err)
	s.True(granted)
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
