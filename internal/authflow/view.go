package authflow

// ViewKind names one of the five screens of the sign-in flow.
type ViewKind string

const (
	KindLogin       ViewKind = "login"
	KindSignup      ViewKind = "signup"
	KindOTPSignup   ViewKind = "otp-signup"
	KindForgotEmail ViewKind = "forgot-email"
	KindResetFinal  ViewKind = "reset-final"
)

// View is the active screen together with exactly the form state it owns.
type View interface {
	Kind() ViewKind
	isView()
}

type LoginView struct {
	Email    string
	Password string
}

type SignupView struct {
	Profile SignupProfile
}

// OTPSignupView keeps the submitted profile because the password is only
// sent when the code is verified.
type OTPSignupView struct {
	Profile SignupProfile
	OTP     OTPInput
}

type ForgotEmailView struct {
	Email string
}

type ResetFinalView struct {
	Email       string
	OTP         OTPInput
	NewPassword string
}

func (LoginView) Kind() ViewKind       { return KindLogin }
func (SignupView) Kind() ViewKind      { return KindSignup }
func (OTPSignupView) Kind() ViewKind   { return KindOTPSignup }
func (ForgotEmailView) Kind() ViewKind { return KindForgotEmail }
func (ResetFinalView) Kind() ViewKind  { return KindResetFinal }

func (LoginView) isView()       {}
func (SignupView) isView()      {}
func (OTPSignupView) isView()   {}
func (ForgotEmailView) isView() {}
func (ResetFinalView) isView()  {}

type BusinessDetails struct {
	Name            string `json:"name"`
	Address         string `json:"address"`
	GSTIN           string `json:"gstin"`
	HSN             string `json:"hsn"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	WhatsAppConsent bool   `json:"whatsappConsent"`
}

type ContactPersonDetails struct {
	Salutation      string `json:"salutation"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	WhatsAppConsent bool   `json:"whatsappConsent"`
}

type SignupProfile struct {
	Business      BusinessDetails      `json:"business"`
	ContactPerson ContactPersonDetails `json:"contactPerson"`
	Password      string               `json:"-"`
}

// NewSignupProfile returns the empty form, salutation preselected.
func NewSignupProfile() SignupProfile {
	return SignupProfile{ContactPerson: ContactPersonDetails{Salutation: "Mr"}}
}
