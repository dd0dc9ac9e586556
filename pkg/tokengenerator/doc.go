// Package tokengenerator issues HS256 access tokens and announces their
// lifecycle.
//
// JwtTokenGenerator signs tokens. Issuer wraps a generator, keeps the set
// of live tokens and calls its listeners with token_generated and
// token_expired events:
//
//	issuer := tokengenerator.NewIssuer(
//		tokengenerator.NewJwtTokenGenerator(secret, "loginapp", "loginapp"),
//		tokengenerator.WithExpiry(15*time.Minute),
//	)
//	issuer.AddListener(registry.HandleTokenEvent)
//	go issuer.Run(ctx, time.Minute)
//
// Tokens leave the live set when Expire is called (logout) or when Run
// sweeps them after their expiry.
package tokengenerator
