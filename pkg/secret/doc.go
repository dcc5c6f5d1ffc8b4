// Package secret encrypts and decrypts configuration values.
//
// A value is sealed with AES-256-GCM under the data key taken from
// DBINIT_DATA_KEY, using the configuration attribute name as additional
// authenticated data, and stored as "enc:<base64>". A sealed admin_password
// therefore cannot be pasted into app_password and still decrypt.
//
//	c, err := secret.CipherFromEnv()
//	sealed, err := secret.Seal(c, "admin_password", "s3cret")
//	plain, err := secret.Open(c, "admin_password", sealed)
package secret
