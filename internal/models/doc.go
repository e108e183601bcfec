// Package models defines persistent entities and the repository interface for vyra.
//
// [Download] records one track written to disk: which upstream track it was, the
// title and artist used for the file name, the quality tier and source that served
// it, and where it landed.
//
// All persistent entities implement the [Model] interface providing ID, timestamps
// and validation. Soft deletes are tracked with a deleted_at timestamp.
// The [Repository] interface defines the CRUD operations for database access.
package models
