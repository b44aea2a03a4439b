package attendance

import "context"

type StoreAPI interface {
	UpsertMany(ctx context.Context, records []Record) (int, error)
	FindPage(ctx context.Context, filter Filter, page, pageSize int) ([]Record, int, error)
	DeleteAll(ctx context.Context, filter Filter) (int64, error)
}

var _ StoreAPI = (*Store)(nil)
