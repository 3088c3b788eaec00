// Package types defines the Store and Table interfaces, the Member, Group
// and Membership entities, and the sentinel and business errors shared by
// the storage backends, the membership manager and the outer surfaces.
package types
