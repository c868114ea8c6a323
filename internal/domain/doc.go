// Package domain contains the core concepts shared by the case-study assistant:
// document requests, rendered documents, tool statuses and sentinel errors.
// Keep this package free of transport (HTTP) and infrastructure concerns.
package domain
