package testutil

import "testing"

// Given, When, and Then run a labelled subtest. They keep scenario-style
// tests readable without a BDD framework dependency.

func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	scenario(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	scenario(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	scenario(t, "Then", desc, fn)
}

func scenario(t *testing.T, prefix, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(prefix+" "+desc, fn)
}
