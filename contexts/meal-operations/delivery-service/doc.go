// Package deliveryservice owns the vendor side of meal operations: plan
// preparation status, delivery reconciliation against the declared plan, the
// approval trail it feeds, and the vendor dashboard view.
package deliveryservice
