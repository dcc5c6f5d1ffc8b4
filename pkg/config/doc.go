// Package config provides configuration management for dbinit.
//
// Values are resolved in order of precedence:
//
//   - Environment variables (DBINIT_*, plus MONGODB_URL, DATABASE_URL and the
//     MONGO_INITDB_ROOT_* / POSTGRES_* variables of the stock images)
//   - The config file $DBINIT_CONFIG_PATH/dbinit.yml (default /etc/dbinit)
//   - The selected profile ("inbox" or "m365")
//   - Built-in defaults
//
// Credential defaults (admin/password, app_user/app_password) are only
// applied when environment is not "production". Any credential may be stored
// sealed as "enc:<base64>"; see package secret.
package config
