// Package domain contains the core data types for the Rainbow Tour Guides API.
// This package depends only on uuid and is imported by every other internal
// package (repo, service, handler).
package domain
