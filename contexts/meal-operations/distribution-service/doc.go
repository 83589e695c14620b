// Package distributionservice owns the meal-distribution lifecycle and the
// round-registration ledger: approval-gated visibility, serving-window
// checks, capacity-bounded claims, and the student dashboard view.
package distributionservice
