package employee

import "context"

type StoreAPI interface {
	GetByID(ctx context.Context, id string) (Employee, error)
	List(ctx context.Context) ([]Employee, error)
	ListProfiles(ctx context.Context, userIDs []string) (map[string]Profile, error)
	UpsertSynced(ctx context.Context, user SyncedUser) (bool, error)
	Create(ctx context.Context, emp Employee) (Employee, error)
	Delete(ctx context.Context, id string) (Employee, error)
}

var _ StoreAPI = (*Store)(nil)
