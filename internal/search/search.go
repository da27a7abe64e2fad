package search

import "context"

// Index is the indexing surface the rest of the application depends on.
// Engine implements it against Elasticsearch.
type Index interface {
	Index(ctx context.Context, doc *ProductDocument) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query *Query) (*Result, error)
	Suggest(ctx context.Context, prefix string, limit int) ([]Suggestion, error)
	BulkIndex(ctx context.Context, docs []ProductDocument) error
	Clear(ctx context.Context) error
}

var _ Index = (*Engine)(nil)
