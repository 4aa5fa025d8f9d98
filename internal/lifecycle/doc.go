// Package lifecycle runs the boot sequence for both unit categories: the
// allow-list init pass, persisted reconciliation and the after-init pass.
// Extensions always go before add-ons.
package lifecycle
