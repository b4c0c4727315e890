// Package greeter provides the session primitives behind a session-aware
// home page: the Session record, the Authenticator collaborator contract and
// a Hub that fans session changes out to every open page.
//
// Sessions:
//   - A Session is owned by the Authenticator. Its Status is always one of
//     loading, authenticated or unauthenticated; callers only read it.
//   - An authenticated Session may carry a User without a display name.
//     Renderers show an empty name rather than failing.
//
// Subscriptions:
//   - Hub is keyed by browser key, so every tab of a browser observes the
//     same changes. Publish never blocks: each subscriber keeps only the
//     latest value it has not consumed yet.
//   - Closing the Hub closes every subscription, which ends long lived
//     streams during shutdown.
package greeter
