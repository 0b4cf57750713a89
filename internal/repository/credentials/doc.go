// Package credentials loads the shared-secret file used by the
// challenge-response gate. The file is a flat JSON map of subject name to
// secret; a missing file is bootstrapped with a default set at startup.
package credentials
