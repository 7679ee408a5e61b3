// Package userdata manages the listen key that authorizes the private user
// data stream.
//
// The key moves through two states:
//
//	NoKey --Create--> Active --Renew--> Active --Close--> NoKey
//
// Every transition is one blocking HTTPS round trip on a fresh TLS
// connection, performed on the caller's goroutine. Calls are serialized, so
// the stored key has a single writer. Call these methods from ordinary
// goroutines, never from inside a result handler running on the callback
// pool.
//
// Keeper renews the key on a timer; an unrenewed key expires after 60
// minutes.
package userdata
