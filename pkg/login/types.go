package login

import "github.com/tendant/loginapp/pkg/tokengenerator"

// Reason explains the outcome of a login. The string values are the wire
// codes clients match on.
type Reason string

const (
	ReasonOK          Reason = "allok"
	ReasonBadPassword Reason = "badpw"
	ReasonBadID       Reason = "badid"
	ReasonBadOTP      Reason = "badotp"
	ReasonBadApproval Reason = "notapproved"
	ReasonDomainError Reason = "domainerror"
	ReasonUnknown     Reason = "unknown"
)

// LoginAttempt is a login request. IPAddress comes from the transport.
type LoginAttempt struct {
	ID            string `json:"id"`
	PasswordProof string `json:"pwph"`
	OTP           string `json:"otp"`
	IPAddress     string `json:"-"`
}

func (a LoginAttempt) valid() bool {
	return a.ID != "" && a.PasswordProof != "" && a.OTP != ""
}

// LoginResult is the outcome of Login. Reason is always set when Success
// is false.
type LoginResult struct {
	ID        string `json:"id"`
	Org       string `json:"org"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Verified  bool   `json:"verified"`
	Approved  bool   `json:"approved"`
	Success   bool   `json:"result"`
	TokenFlag bool   `json:"tokenflag"`
	Reason    Reason `json:"reason"`

	// Token is set when the service issued an access token.
	Token *tokengenerator.Token `json:"-"`
}

func failure(reason Reason) LoginResult {
	return LoginResult{Success: false, Reason: reason}
}
