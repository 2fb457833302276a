package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

// AuthLogin signs in and stores the session cookies.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.connect()
	if err != nil {
		return err
	}

	creds := models.Credentials{Email: cmd.String("email"), Password: cmd.String("password")}
	if creds.Password == "" {
		return fmt.Errorf("%w: --password or STUDYFLOW_PASSWORD is required", shared.ErrMissingArgument)
	}

	r.logger.Info("signing in", "email", creds.Email)
	user, err := svc.Auth.Login(ctx, creds)
	if err != nil {
		return err
	}

	return r.writePlain("✓ Signed in as %s (%s)\n", user.DisplayName(), user.Email)
}

// AuthLogout ends the session. The local session is cleared even if the API call fails.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.connect()
	if err != nil {
		return err
	}

	if err := svc.Auth.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthRegister creates an account.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.connect()
	if err != nil {
		return err
	}

	user, err := svc.Auth.Register(ctx, models.RegisterInput{
		Email:    cmd.String("email"),
		Username: cmd.String("username"),
		Password: cmd.String("password"),
		FullName: cmd.String("name"),
	})
	if err != nil {
		return err
	}

	r.writePlain("✓ Registered %s\n", user.Username)
	return r.writePlain("Run 'sf auth login --email %s' to sign in\n", user.Email)
}

// AuthMe prints the signed-in user.
func (r *Runner) AuthMe(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.connect()
	if err != nil {
		return err
	}

	user, err := svc.Auth.CurrentUser(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}
	return r.writeUser(user)
}

// AuthStatus reports the stored session without contacting the API.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.connect(); err != nil {
		return err
	}

	baseURL := r.config.API.BaseURL
	loggedIn, err := r.sessions.LoggedIn(baseURL)
	if err != nil {
		return err
	}

	r.writePlainHeader("Session")
	r.writePlain("API: %s\n", baseURL)
	if loggedIn {
		r.writePlain("Status: ✓ Signed in\n")
	} else {
		r.writePlain("Status: ✗ Signed out\n")
	}
	return r.writePlain("Cookies: %d stored\n", len(r.jar.Stored()))
}

// AuthUpdate changes profile fields given as flags.
func (r *Runner) AuthUpdate(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.connect()
	if err != nil {
		return err
	}

	var in models.ProfileUpdate
	set := func(flag string) *string {
		if !cmd.IsSet(flag) {
			return nil
		}
		v := cmd.String(flag)
		return &v
	}
	in.Username = set("username")
	in.FullName = set("name")
	in.Bio = set("bio")
	in.AvatarURL = set("avatar")

	if in.Username == nil && in.FullName == nil && in.Bio == nil && in.AvatarURL == nil {
		return fmt.Errorf("%w: nothing to update", shared.ErrMissingArgument)
	}

	user, err := svc.Auth.UpdateProfile(ctx, in)
	if err != nil {
		return err
	}
	r.writePlain("✓ Profile updated\n")
	return r.writeUser(user)
}

// AuthResetRequest asks the API to email a reset code.
func (r *Runner) AuthResetRequest(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.connect()
	if err != nil {
		return err
	}

	if err := svc.Auth.RequestPasswordReset(ctx, cmd.String("email")); err != nil {
		return err
	}
	return r.writePlain("✓ If the account exists, a reset code is on its way\n")
}

// AuthResetVerify checks a reset code.
func (r *Runner) AuthResetVerify(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.connect()
	if err != nil {
		return err
	}

	in := models.PasswordResetVerify{Email: cmd.String("email"), Code: cmd.String("code")}
	if err := svc.Auth.VerifyResetCode(ctx, in); err != nil {
		return err
	}
	return r.writePlain("✓ Code is valid\n")
}

// AuthReset sets a new password with a reset code.
func (r *Runner) AuthReset(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.connect()
	if err != nil {
		return err
	}

	in := models.PasswordReset{
		Email:       cmd.String("email"),
		Code:        cmd.String("code"),
		NewPassword: cmd.String("password"),
	}
	if err := svc.Auth.ResetPassword(ctx, in); err != nil {
		return err
	}
	return r.writePlain("✓ Password reset, sign in with the new password\n")
}

// AuthChangePassword changes the signed-in user's password.
func (r *Runner) AuthChangePassword(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.connect()
	if err != nil {
		return err
	}

	in := models.PasswordChange{CurrentPassword: cmd.String("current"), NewPassword: cmd.String("new")}
	if err := svc.Auth.ChangePassword(ctx, in); err != nil {
		return err
	}
	return r.writePlain("✓ Password changed\n")
}

func (r *Runner) writeUser(user *models.User) error {
	r.writePlainHeader(user.DisplayName())
	r.writePlain("ID: %s\n", user.ID)
	r.writePlain("Username: %s\n", user.Username)
	r.writePlain("Email: %s\n", user.Email)
	if user.Bio != "" {
		r.writePlain("Bio: %s\n", user.Bio)
	}
	if !user.CreatedAt.IsZero() {
		r.writePlain("Joined: %s\n", user.CreatedAt.Format("2006-01-02"))
	}
	return nil
}
