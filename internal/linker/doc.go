// Package linker defines the core types shared by the entity resolution
// pipeline: article records flowing through the work queue, catalog
// categories and their tables, and the interfaces implemented by the queue,
// the persistence engine, and the resolvers.
package linker
