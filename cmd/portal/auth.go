package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hugh/tarviz/internal/api/dto"
	"github.com/hugh/tarviz/internal/authflow"
	"github.com/hugh/tarviz/internal/session"
	"github.com/spf13/cobra"
)

func registerAuthCommands(root *cobra.Command) {
	loginCmd.Flags().String("email", "", "account email")
	signupCmd.Flags().Bool("guest", false, "continue as a guest without an account (demo mode only)")

	root.AddCommand(loginCmd, signupCmd, forgotCmd, logoutCmd, whoamiCmd, profileCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the client portal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flow := app.newFlow()

		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			var err error
			if email, err = app.in.AskRequired("Email"); err != nil {
				return err
			}
		}

		// The demo admin address needs no password.
		var password string
		if !app.cfg.Portal.DemoMode || email != app.cfg.Portal.AdminSentinel {
			var err error
			if password, err = app.in.Secret("Password"); err != nil {
				return err
			}
		}

		if err := flow.EditLogin(func(v *authflow.LoginView) {
			v.Email = email
			v.Password = password
		}); err != nil {
			return err
		}

		role, err := flow.SignIn(ctx)
		if err != nil {
			return statusError(flow, err)
		}

		if role == authflow.RoleAdmin {
			fmt.Fprintln(app.out, warnStyle.Render("Signed in as admin (demo mode, not verified by the server)."))
			return nil
		}
		fmt.Fprintln(app.out, successStyle.Render("Welcome back! You are signed in."))

		applied, err := applyPendingProfile(ctx, app.store, app.api, email)
		switch {
		case err != nil:
			fmt.Fprintln(app.out, warnStyle.Render("Could not save the details from signup: "+err.Error()))
			fmt.Fprintln(app.out, mutedStyle.Render("Run `portal profile` to enter them."))
		case applied:
			fmt.Fprintln(app.out, mutedStyle.Render("Saved the business details from your signup."))
		}
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a client account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flow := app.newFlow()
		if err := flow.GoToSignup(); err != nil {
			return err
		}

		if guest, _ := cmd.Flags().GetBool("guest"); guest {
			if _, err := flow.GuestBypass(); err != nil {
				if errors.Is(err, authflow.ErrBypassDisabled) {
					return errors.New("guest access is only available in demo mode")
				}
				return err
			}
			fmt.Fprintln(app.out, warnStyle.Render("Continuing as guest (demo mode)."))
			return nil
		}

		profile, err := askSignupProfile()
		if err != nil {
			return err
		}
		if err := flow.EditSignup(func(p *authflow.SignupProfile) { *p = profile }); err != nil {
			return err
		}

		if err := flow.RequestSignupOTP(ctx); err != nil {
			return statusError(flow, err)
		}
		fmt.Fprintln(app.out, renderStatus(flow.State()))

		for {
			code, err := app.in.AskRequired("Enter the 6-digit code (r = resend, c = change email)")
			if err != nil {
				return err
			}

			switch strings.ToLower(code) {
			case "r":
				_ = flow.ResendOTP(ctx)
				fmt.Fprintln(app.out, renderStatus(flow.State()))
				continue
			case "c":
				if err := changeSignupEmail(ctx, flow); err != nil {
					return err
				}
				continue
			}

			if !flow.PasteOTP(code) {
				fmt.Fprintln(app.out, errorStyle.Render("The code is six digits."))
				continue
			}

			// The profile as submitted, including any changed email.
			if ov, ok := flow.State().View.(authflow.OTPSignupView); ok {
				profile = ov.Profile
			}
			if err := flow.VerifySignupOTP(ctx); err != nil {
				fmt.Fprintln(app.out, renderStatus(flow.State()))
				continue
			}

			fmt.Fprintln(app.out, renderStatus(flow.State()))
			if err := savePendingProfile(ctx, app.store, profile); err != nil {
				app.logger.Warn("failed to keep signup details", "error", err)
				fmt.Fprintln(app.out, mutedStyle.Render("Run `portal login` to sign in, then `portal profile` to save your business details."))
				return nil
			}
			fmt.Fprintln(app.out, mutedStyle.Render("Run `portal login` to sign in. Your business details are saved on the first sign-in."))
			return nil
		}
	},
}

func changeSignupEmail(ctx context.Context, flow *authflow.Flow) error {
	if err := flow.ChangeEmail(); err != nil {
		return err
	}
	email, err := app.in.AskRequired("Email")
	if err != nil {
		return err
	}
	if err := flow.EditSignup(func(p *authflow.SignupProfile) { p.ContactPerson.Email = email }); err != nil {
		return err
	}
	if err := flow.RequestSignupOTP(ctx); err != nil {
		return statusError(flow, err)
	}
	fmt.Fprintln(app.out, renderStatus(flow.State()))
	return nil
}

func askSignupProfile() (authflow.SignupProfile, error) {
	p := authflow.NewSignupProfile()
	in := app.in

	fmt.Fprintln(app.out, titleStyle.Render("Business details"))
	var err error
	ask := func(dst *string, label string, required bool) {
		if err != nil {
			return
		}
		if required {
			*dst, err = in.AskRequired(label)
			return
		}
		*dst, err = in.Ask(label, *dst)
	}
	confirm := func(dst *bool, label string) {
		if err != nil {
			return
		}
		*dst, err = in.Confirm(label)
	}

	ask(&p.Business.Name, "Business name", true)
	ask(&p.Business.Address, "Address", false)
	ask(&p.Business.GSTIN, "GSTIN", false)
	ask(&p.Business.HSN, "HSN code", false)
	ask(&p.Business.Email, "Business email", false)
	ask(&p.Business.Phone, "Business phone", false)
	confirm(&p.Business.WhatsAppConsent, "Send updates to the business number on WhatsApp?")

	if err == nil {
		fmt.Fprintln(app.out, titleStyle.Render("Contact person"))
	}
	ask(&p.ContactPerson.Salutation, "Salutation", false)
	ask(&p.ContactPerson.FirstName, "First name", true)
	ask(&p.ContactPerson.LastName, "Last name", false)
	ask(&p.ContactPerson.Email, "Email (used to sign in)", true)
	ask(&p.ContactPerson.Phone, "Phone", false)
	confirm(&p.ContactPerson.WhatsAppConsent, "Contact you on WhatsApp?")
	if err != nil {
		return p, err
	}

	for {
		pw, err := in.Secret("Password")
		if err != nil {
			return p, err
		}
		again, err := in.Secret("Confirm password")
		if err != nil {
			return p, err
		}
		if pw != "" && pw == again {
			p.Password = pw
			return p, nil
		}
		fmt.Fprintln(app.out, errorStyle.Render("Passwords do not match."))
	}
}

var forgotCmd = &cobra.Command{
	Use:   "forgot",
	Short: "Reset a forgotten password",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flow := app.newFlow()
		if err := flow.GoToForgotPassword(); err != nil {
			return err
		}

		email, err := app.in.AskRequired("Email")
		if err != nil {
			return err
		}
		if err := flow.SetForgotEmail(email); err != nil {
			return err
		}
		if err := flow.RequestPasswordReset(ctx); err != nil {
			return statusError(flow, err)
		}
		fmt.Fprintln(app.out, renderStatus(flow.State()))

		for {
			code, err := app.in.AskRequired("Enter the 6-digit code (r = resend)")
			if err != nil {
				return err
			}
			if strings.EqualFold(code, "r") {
				_ = flow.ResendOTP(ctx)
				fmt.Fprintln(app.out, renderStatus(flow.State()))
				continue
			}
			if !flow.PasteOTP(code) {
				fmt.Fprintln(app.out, errorStyle.Render("The code is six digits."))
				continue
			}

			pw, err := app.in.Secret("New password")
			if err != nil {
				return err
			}
			if err := flow.SetNewPassword(pw); err != nil {
				return err
			}

			if err := flow.ResetPassword(ctx); err != nil {
				fmt.Fprintln(app.out, renderStatus(flow.State()))
				continue
			}
			fmt.Fprintln(app.out, renderStatus(flow.State()))
			return nil
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := session.Clear(cmd.Context(), app.store); err != nil {
			return err
		}
		fmt.Fprintln(app.out, "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		me, err := app.api.Me(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s %s <%s>\n", me.Salutation, strings.TrimSpace(me.FirstName+" "+me.LastName), me.Email)
		fmt.Fprintf(app.out, "%s %s\n", mutedStyle.Render("Business:"), me.OrgName)
		fmt.Fprintf(app.out, "%s %s\n", mutedStyle.Render("Role:"), me.Role)
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update your business and contact details",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		me, err := app.api.Me(ctx)
		if err != nil {
			return err
		}

		in := app.in
		req := profileDefaults(me)

		b, c := &req.Business, &req.ContactPerson
		for _, q := range []struct {
			dst   *string
			label string
		}{
			{&b.Name, "Business name"},
			{&b.Address, "Address"},
			{&b.GSTIN, "GSTIN"},
			{&b.HSN, "HSN code"},
			{&b.Email, "Business email"},
			{&b.Phone, "Business phone"},
			{&c.Salutation, "Salutation"},
			{&c.FirstName, "First name"},
			{&c.LastName, "Last name"},
			{&c.Phone, "Phone"},
		} {
			if *q.dst, err = in.Ask(q.label, *q.dst); err != nil {
				return err
			}
		}
		if b.WhatsAppConsent, err = askConsent(in, "Send updates to the business number on WhatsApp?", b.WhatsAppConsent); err != nil {
			return err
		}
		if c.WhatsAppConsent, err = askConsent(in, "Contact you on WhatsApp?", c.WhatsAppConsent); err != nil {
			return err
		}

		user, err := app.api.UpdateProfile(ctx, req)
		if err != nil {
			return err
		}

		// Keep the cached user in step with the server.
		if sess, err := session.Load(ctx, app.store); err == nil {
			if raw, err := json.Marshal(user); err == nil {
				sess.User = raw
				if err := session.Save(ctx, app.store, *sess); err != nil {
					app.logger.Warn("failed to update cached user", "error", err)
				}
			}
		}

		fmt.Fprintln(app.out, successStyle.Render("Profile saved."))
		return nil
	},
}

// profileDefaults pre-fills the profile prompts with what is saved.
func profileDefaults(me *dto.UserDTO) dto.UpdateProfileRequest {
	req := dto.UpdateProfileRequest{
		Business: dto.BusinessDetails{Name: me.OrgName},
		ContactPerson: dto.ContactPersonDetails{
			Salutation:      me.Salutation,
			FirstName:       me.FirstName,
			LastName:        me.LastName,
			Phone:           me.Phone,
			WhatsAppConsent: me.WhatsAppConsent,
		},
	}
	if me.Business != nil {
		req.Business = *me.Business
	}
	return req
}

// askConsent is Confirm with the current answer kept on a blank line.
func askConsent(in *prompter, label string, current bool) (bool, error) {
	def := "n"
	if current {
		def = "y"
	}
	v, err := in.Ask(label+" (y/n)", def)
	if err != nil {
		return false, err
	}
	v = strings.ToLower(v)
	return v == "y" || v == "yes", nil
}

// statusError prefers the flow's inline message over the raw error.
func statusError(flow *authflow.Flow, err error) error {
	if msg := flow.State().Request.Error; msg != "" {
		return errors.New(msg)
	}
	return err
}
