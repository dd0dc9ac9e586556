// Package twofa verifies time-based one-time passcodes (TOTP, RFC 6238).
//
// The verifier accepts 6 digit SHA1 codes with a configurable period and
// skew:
//
//	verifier := twofa.NewTotpVerifier(
//		twofa.WithPeriod(30),
//		twofa.WithSkew(1),
//	)
//	ok, err := verifier.Verify(account.TotpSecret, attempt.OTP)
//
// GenerateSecret produces a new base32 secret and the otpauth:// URL to
// enroll it in an authenticator app.
package twofa
