package unitofwork

import "context"

// RepositoryFactory is the document store handle carried by the backend client.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
