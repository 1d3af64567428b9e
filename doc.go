// Package localeprefs keeps a client's locale preference consistent across a
// large persistent store, a small cookie-backed header store that servers can
// read, and a short-lived in-memory cache.
//
// A Manager handles one client. It saves and validates PreferenceRecords,
// mirrors the locale to the header store, synchronizes the two stores,
// detects and repairs inconsistencies, and reports storage usage. Every
// orchestration method returns a Result instead of an error and never
// panics; store failures are logged and reported as failures.
//
// Storage backends (memory, SQLite, PostgreSQL, Redis) live in the storage
// package, cookie-backed header stores in the cookie package, and the
// per-client cache registry in the cache package.
package localeprefs
