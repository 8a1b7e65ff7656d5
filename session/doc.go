// Package session implements the Session Store: per-principal key-value
// state addressed through the Context Carrier, with an in-memory backend
// (process-wide map, supports enumeration and stats) and a signed-cookie
// backend (the record travels with the client, encrypted and authenticated,
// and supports neither enumeration nor stats by construction).
package session
