// Package login verifies login attempts and serves the login HTTP routes.
//
// A LoginAttempt carries an identifier, a password proof and a one-time
// code. Service.Login runs the checks in a fixed order and stops at the
// first failure:
//
//  1. all three fields present, otherwise "unknown"
//  2. the identifier's domain is allowed, otherwise "domainerror"
//  3. the password proof matches, otherwise "badid" or "badpw"
//  4. the account is approved, otherwise "notapproved"
//  5. the one-time code matches, otherwise "badotp"
//  6. with WithTokenIssuer, an access token is issued, otherwise "unknown"
//  7. the listener chain allows the login, otherwise "unknown" or the
//     reason the listener set. A vetoed login has its token expired.
//
// Listeners and the deferred stats write (time and address) only run for a
// login that already holds its token, so a signing failure never leaves a
// recorded login or a queued alert behind. A successful login returns with
// TokenFlag set and the token in LoginResult.Token.
//
// # Listeners
//
// Listeners are registered by name from a Catalog filled at startup:
//
//	catalog := login.NewCatalog()
//	catalog.Add("alerts", "newLogin", notification.NewLoginAlertListener(...))
//	chain := login.NewListenerChain(login.ChainModeAll, catalog)
//	err := chain.AddLoginListener("alerts", "newLogin")
//
// In ChainModeFirst only the first registered listener decides. In
// ChainModeAll every listener must allow. An empty chain allows.
package login
