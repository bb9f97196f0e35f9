// Package password holds the password strength policy and the Argon2id hasher.
//
// # Policy
//
// [Policy.Validate] checks length, whitespace, character classes and similarity to the
// username and email local part, and reports every broken rule so a caller can render
// a complete list.
//
// # Hashing
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// This package never stores or logs passwords.
package password
