// Package config loads the circulation settings and opens PostgreSQL connections.
//
// Settings come from an optional circulation.yaml file and CIRCULATION_* environment
// variables, read through viper. Connection factories exist for each supported driver
// (pgx.Pool, sql.DB, sqlx.DB) with pre-configured pool sizes, and OpenStore ties both
// together into a ready postgresengine.Store.
package config
