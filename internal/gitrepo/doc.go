// Package gitrepo runs git against working copies and answers read-only questions
// about them.
//
// Runner executes one git argument string in a working directory and returns its
// trimmed output or a CommandError. Inspector builds on Runner to report whether a
// working copy exists, where its origin points, which branch is checked out, and
// whether a branch exists locally. FormatRemoteURL produces the canonical SSH remote
// that reconciliation compares against.
package gitrepo
