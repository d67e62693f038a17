// Package password hashes and verifies the passwords of the offline
// allow-list with Argon2id.
//
// Hashes use the PHC string format
//
//	$argon2id$v=19$m=<KiB>,t=<passes>,p=<threads>$<salt>$<key>
//
// with unpadded standard base64, so hashes produced by other Argon2id tools
// can be pasted into configuration unchanged.
package password
