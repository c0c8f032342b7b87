// Package mongo provides a MongoDB-backed runlog.Store.
//
// Build the low-level client with clients/mongo and pass it to NewStore. The
// store persists every recorded lifecycle event as one document in an
// append-only collection indexed by run ID.
package mongo
