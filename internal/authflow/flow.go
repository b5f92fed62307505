// Package authflow drives the portal's sign-in, sign-up, OTP and password
// reset screens against the auth backend.
//
// A Flow owns the active View, the request state shown inline (loading,
// error, success) and the OTP input. Submissions block until the backend
// answers; while one is outstanding every other submission is refused with
// ErrBusy rather than queued. A response is applied only if the view that
// issued it is still the active one.
package authflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/hugh/tarviz/internal/authclient"
	"github.com/hugh/tarviz/internal/session"
)

// Backend endpoints, relative to the auth base path.
const (
	EndpointSignIn          = "/signin/"
	EndpointSignup          = "/signup/"
	EndpointVerifySignupOTP = "/verify_signup_otp/"
	EndpointSendOTP         = "/send_otp/"
	EndpointResetPassword   = "/reset_password/"
	EndpointResendOTP       = "/resend_otp/"
)

// OTP purposes understood by the backend.
const (
	PurposeSignup = "signup"
	PurposeReset  = "reset"
)

// Messages shown after successful calls that do not echo a backend message.
const (
	MsgAccountCreated   = "Account created successfully! Please log in."
	MsgPasswordReset    = "Password reset successful. Please log in."
	MsgOTPResent        = "OTP resent successfully."
	MsgIncompleteOTP    = "Please enter a 6-digit OTP"
	MsgMissingEmail     = "Please enter your email address."
	MsgMissingPassword  = "Please enter a new password."
	DefaultAdminAddress = "admin@tarviz.com"
)

var (
	ErrBusy           = errors.New("a request is already in progress")
	ErrWrongView      = errors.New("operation not available on the current view")
	ErrIncompleteOTP  = errors.New("otp is incomplete")
	ErrMissingField   = errors.New("required field is empty")
	ErrBypassDisabled = errors.New("authentication bypass is disabled")
	ErrStale          = errors.New("view changed before the response arrived")
)

// missingField is ErrMissingField with the inline message for that field.
type missingField struct{ msg string }

func (e *missingField) Error() string        { return "required field is empty: " + e.msg }
func (e *missingField) Is(target error) bool { return target == ErrMissingField }

// localMessage is the inline text for a submission refused before any
// request was sent.
func localMessage(err error) string {
	var mf *missingField
	switch {
	case errors.As(err, &mf):
		return mf.msg
	case errors.Is(err, ErrIncompleteOTP):
		return MsgIncompleteOTP
	}
	return ""
}

// Role is what the app shell is told after authentication.
type Role string

const (
	RoleNone   Role = ""
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// Poster is the request helper; *authclient.Client satisfies it.
type Poster interface {
	Post(ctx context.Context, endpoint string, body any) (*authclient.Envelope, error)
}

// RequestState is what the inline status area renders. Empty strings mean
// "nothing to show"; Error and Success are never both set.
type RequestState struct {
	Loading bool
	Error   string
	Success string
}

// Snapshot is an immutable copy of the flow's state.
type Snapshot struct {
	View          View
	Request       RequestState
	Authenticated Role
	SubmitEnabled bool
}

func (s Snapshot) Kind() ViewKind {
	return s.View.Kind()
}

type Options struct {
	// DemoMode enables the admin-sentinel and guest shortcuts. They grant
	// roles without backend verification and must stay off in production.
	DemoMode      bool
	AdminSentinel string
	Logger        *slog.Logger
	// OnChange receives a snapshot after every state change.
	OnChange func(Snapshot)
}

type Flow struct {
	api   Poster
	store session.Store
	opts  Options

	mu            sync.Mutex
	view          View
	generation    uint64
	req           RequestState
	authenticated Role
}

func New(api Poster, store session.Store, opts Options) *Flow {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AdminSentinel == "" {
		opts.AdminSentinel = DefaultAdminAddress
	}
	return &Flow{
		api:   api,
		store: store,
		opts:  opts,
		view:  LoginView{},
	}
}

func (f *Flow) State() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) snapshotLocked() Snapshot {
	return Snapshot{
		View:          f.view,
		Request:       f.req,
		Authenticated: f.authenticated,
		SubmitEnabled: f.submitEnabledLocked(),
	}
}

func (f *Flow) submitEnabledLocked() bool {
	if f.req.Loading {
		return false
	}
	switch v := f.view.(type) {
	case OTPSignupView:
		return v.OTP.Complete()
	case ResetFinalView:
		return v.OTP.Complete() && v.NewPassword != ""
	default:
		return true
	}
}

// mutate runs fn under the lock and notifies the observer if fn reports a change.
func (f *Flow) mutate(fn func() (bool, error)) error {
	f.mu.Lock()
	changed, err := fn()
	snap := f.snapshotLocked()
	f.mu.Unlock()

	if changed && f.opts.OnChange != nil {
		f.opts.OnChange(snap)
	}
	return err
}

// setViewLocked switches screens; the generation bump invalidates in-flight responses.
func (f *Flow) setViewLocked(v View) {
	f.view = v
	f.generation++
}

// ---------------------------------------------------------------------------
// Navigation

// GoToSignup follows the "Create an account" link.
func (f *Flow) GoToSignup() error {
	return f.navigate(KindLogin, func() View { return SignupView{Profile: NewSignupProfile()} })
}

// GoToForgotPassword follows the "Forgot password?" link.
func (f *Flow) GoToForgotPassword() error {
	return f.navigate(KindLogin, func() View { return ForgotEmailView{} })
}

// BackToLogin is the back control on the signup and forgot-email screens.
func (f *Flow) BackToLogin() error {
	return f.mutate(func() (bool, error) {
		switch f.view.Kind() {
		case KindSignup, KindForgotEmail:
		default:
			return false, ErrWrongView
		}
		f.setViewLocked(LoginView{})
		f.req.Error = ""
		return true, nil
	})
}

// ChangeEmail returns from code entry to the signup form, keeping what was typed.
func (f *Flow) ChangeEmail() error {
	return f.mutate(func() (bool, error) {
		v, ok := f.view.(OTPSignupView)
		if !ok {
			return false, ErrWrongView
		}
		f.setViewLocked(SignupView{Profile: v.Profile})
		f.req.Error = ""
		return true, nil
	})
}

func (f *Flow) navigate(from ViewKind, next func() View) error {
	return f.mutate(func() (bool, error) {
		if f.view.Kind() != from {
			return false, ErrWrongView
		}
		f.setViewLocked(next())
		f.req.Error = ""
		return true, nil
	})
}

// ---------------------------------------------------------------------------
// Form editing

func (f *Flow) EditLogin(edit func(*LoginView)) error {
	return f.mutate(func() (bool, error) {
		v, ok := f.view.(LoginView)
		if !ok {
			return false, ErrWrongView
		}
		edit(&v)
		f.view = v
		return true, nil
	})
}

func (f *Flow) EditSignup(edit func(*SignupProfile)) error {
	return f.mutate(func() (bool, error) {
		v, ok := f.view.(SignupView)
		if !ok {
			return false, ErrWrongView
		}
		edit(&v.Profile)
		f.view = v
		return true, nil
	})
}

func (f *Flow) SetForgotEmail(email string) error {
	return f.mutate(func() (bool, error) {
		if _, ok := f.view.(ForgotEmailView); !ok {
			return false, ErrWrongView
		}
		f.view = ForgotEmailView{Email: email}
		return true, nil
	})
}

func (f *Flow) SetNewPassword(password string) error {
	return f.mutate(func() (bool, error) {
		v, ok := f.view.(ResetFinalView)
		if !ok {
			return false, ErrWrongView
		}
		v.NewPassword = password
		f.view = v
		return true, nil
	})
}

// EnterOTP types value into slot i of whichever code screen is active. It
// reports whether the input was accepted; rejected input leaves every slot
// unchanged.
func (f *Flow) EnterOTP(i int, value string) bool {
	var accepted bool
	_ = f.mutate(func() (bool, error) {
		accepted = f.editOTPLocked(func(o *OTPInput) bool { return o.Enter(i, value) })
		return accepted, nil
	})
	return accepted
}

// PasteOTP replaces the active code with code, one digit per slot. Codes
// longer than the input or containing non-digits are rejected whole.
func (f *Flow) PasteOTP(code string) bool {
	if len(code) > OTPLength {
		return false
	}
	var accepted bool
	_ = f.mutate(func() (bool, error) {
		accepted = f.editOTPLocked(func(o *OTPInput) bool {
			next := OTPInput{}
			for i, r := range code {
				if !next.Enter(i, string(r)) {
					return false
				}
			}
			*o = next
			return true
		})
		return accepted, nil
	})
	return accepted
}

// BackspaceOTP handles the backspace key in slot i.
func (f *Flow) BackspaceOTP(i int) {
	_ = f.mutate(func() (bool, error) {
		return f.editOTPLocked(func(o *OTPInput) bool { o.Backspace(i); return true }), nil
	})
}

func (f *Flow) editOTPLocked(edit func(*OTPInput) bool) bool {
	switch v := f.view.(type) {
	case OTPSignupView:
		if !edit(&v.OTP) {
			return false
		}
		f.view = v
	case ResetFinalView:
		if !edit(&v.OTP) {
			return false
		}
		f.view = v
	default:
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Bypasses

// GuestBypass grants the client role without credentials from the signup screen.
func (f *Flow) GuestBypass() (Role, error) {
	var role Role
	err := f.mutate(func() (bool, error) {
		if !f.opts.DemoMode {
			return false, ErrBypassDisabled
		}
		if f.view.Kind() != KindSignup {
			return false, ErrWrongView
		}
		f.opts.Logger.Warn("guest bypass used; no backend verification")
		f.authenticated = RoleClient
		role = RoleClient
		return true, nil
	})
	return role, err
}

// ---------------------------------------------------------------------------
// Backend operations

// call is the single request path. It gates on Loading, clears both
// messages, performs the request without holding the lock and applies the
// outcome only if the originating view is still active. Loading is always
// cleared afterwards.
func (f *Flow) call(ctx context.Context, expect ViewKind, prepare func(View) (string, any, error), apply func(*authclient.Envelope) error) error {
	var (
		endpoint string
		body     any
		gen      uint64
	)

	err := f.mutate(func() (bool, error) {
		if f.req.Loading {
			return false, ErrBusy
		}
		if f.view.Kind() != expect {
			return false, ErrWrongView
		}
		var err error
		endpoint, body, err = prepare(f.view)
		if err != nil {
			if msg := localMessage(err); msg != "" {
				f.req = RequestState{Error: msg}
				return true, err
			}
			return false, err
		}
		f.req = RequestState{Loading: true}
		gen = f.generation
		return true, nil
	})
	if err != nil {
		return err
	}

	env, reqErr := f.api.Post(ctx, endpoint, body)

	return f.mutate(func() (bool, error) {
		f.req.Loading = false

		if f.generation != gen {
			f.opts.Logger.Debug("discarding late auth response", "endpoint", endpoint, "view", f.view.Kind())
			return true, ErrStale
		}

		if reqErr != nil {
			f.req.Error = authclient.DisplayMessage(reqErr)
			return true, reqErr
		}
		if err := apply(env); err != nil {
			f.req.Error = authclient.DisplayMessage(err)
			return true, err
		}
		return true, nil
	})
}

// SignIn submits the login form. On success the session is persisted and
// the client role returned.
func (f *Flow) SignIn(ctx context.Context) (Role, error) {
	if role, ok := f.adminBypass(); ok {
		return role, nil
	}

	var email string
	err := f.call(ctx, KindLogin,
		func(v View) (string, any, error) {
			lv := v.(LoginView)
			email = lv.Email
			return EndpointSignIn, map[string]string{
				"email":    lv.Email,
				"password": lv.Password,
			}, nil
		},
		func(env *authclient.Envelope) error {
			user := env.User
			if len(user) == 0 {
				user = json.RawMessage("null")
			}
			if err := session.Save(ctx, f.store, session.Session{
				AccessToken:  env.Token,
				RefreshToken: env.Refresh,
				User:         user,
			}); err != nil {
				return err
			}
			f.authenticated = RoleClient
			f.opts.Logger.Info("signed in", "email", email)
			return nil
		},
	)
	if err != nil {
		return RoleNone, err
	}
	return RoleClient, nil
}

func (f *Flow) adminBypass() (Role, bool) {
	if !f.opts.DemoMode {
		return RoleNone, false
	}

	var granted bool
	_ = f.mutate(func() (bool, error) {
		v, ok := f.view.(LoginView)
		if !ok || f.req.Loading || v.Email != f.opts.AdminSentinel {
			return false, nil
		}
		f.opts.Logger.Warn("admin sentinel bypass used; no backend verification", "email", v.Email)
		f.authenticated = RoleAdmin
		granted = true
		return true, nil
	})
	if !granted {
		return RoleNone, false
	}
	return RoleAdmin, true
}

// RequestSignupOTP submits the signup form and moves to code entry.
func (f *Flow) RequestSignupOTP(ctx context.Context) error {
	var profile SignupProfile
	return f.call(ctx, KindSignup,
		func(v View) (string, any, error) {
			profile = v.(SignupView).Profile
			if profile.ContactPerson.Email == "" {
				return "", nil, &missingField{MsgMissingEmail}
			}
			return EndpointSignup, map[string]string{
				"email":     profile.ContactPerson.Email,
				"user_name": profile.ContactPerson.FirstName,
				"purpose":   PurposeSignup,
			}, nil
		},
		func(env *authclient.Envelope) error {
			f.setViewLocked(OTPSignupView{Profile: profile})
			f.req.Success = env.Message
			return nil
		},
	)
}

// VerifySignupOTP sends the six-digit code with the password held since signup.
func (f *Flow) VerifySignupOTP(ctx context.Context) error {
	var email string
	return f.call(ctx, KindOTPSignup,
		func(v View) (string, any, error) {
			ov := v.(OTPSignupView)
			if !ov.OTP.Complete() {
				return "", nil, ErrIncompleteOTP
			}
			email = ov.Profile.ContactPerson.Email
			return EndpointVerifySignupOTP, map[string]string{
				"email":    email,
				"otp":      ov.OTP.Code(),
				"password": ov.Profile.Password,
			}, nil
		},
		func(*authclient.Envelope) error {
			f.setViewLocked(LoginView{Email: email})
			f.req.Success = MsgAccountCreated
			return nil
		},
	)
}

// RequestPasswordReset sends a reset code to the entered email.
func (f *Flow) RequestPasswordReset(ctx context.Context) error {
	var email string
	return f.call(ctx, KindForgotEmail,
		func(v View) (string, any, error) {
			email = v.(ForgotEmailView).Email
			if email == "" {
				return "", nil, &missingField{MsgMissingEmail}
			}
			return EndpointSendOTP, map[string]string{
				"email":   email,
				"purpose": PurposeReset,
			}, nil
		},
		func(env *authclient.Envelope) error {
			f.setViewLocked(ResetFinalView{Email: email})
			f.req.Success = env.Message
			return nil
		},
	)
}

// ResetPassword submits the code and the new password.
func (f *Flow) ResetPassword(ctx context.Context) error {
	var email string
	return f.call(ctx, KindResetFinal,
		func(v View) (string, any, error) {
			rv := v.(ResetFinalView)
			if !rv.OTP.Complete() {
				return "", nil, ErrIncompleteOTP
			}
			if rv.NewPassword == "" {
				return "", nil, &missingField{MsgMissingPassword}
			}
			email = rv.Email
			return EndpointResetPassword, map[string]string{
				"email":        rv.Email,
				"otp":          rv.OTP.Code(),
				"new_password": rv.NewPassword,
			}, nil
		},
		func(*authclient.Envelope) error {
			f.setViewLocked(LoginView{Email: email})
			f.req.Success = MsgPasswordReset
			return nil
		},
	)
}

// ResendOTP asks for a fresh code for whichever code screen is active.
func (f *Flow) ResendOTP(ctx context.Context) error {
	kind := f.State().Kind()
	if kind != KindOTPSignup && kind != KindResetFinal {
		return ErrWrongView
	}

	return f.call(ctx, kind,
		func(v View) (string, any, error) {
			var email, purpose string
			switch v := v.(type) {
			case OTPSignupView:
				email, purpose = v.Profile.ContactPerson.Email, PurposeSignup
			case ResetFinalView:
				email, purpose = v.Email, PurposeReset
			}
			return EndpointResendOTP, map[string]string{
				"email":   email,
				"purpose": purpose,
			}, nil
		},
		func(*authclient.Envelope) error {
			f.req.Success = MsgOTPResent
			return nil
		},
	)
}
