// Package policy persists subjects, their weekly access windows and the
// audit log of access decisions in a SQLite database.
//
// Days of week follow the enrollment tooling convention: 0=Monday through
// 6=Sunday. Time windows are stored as minutes since midnight and are
// inclusive on both ends.
package policy
