package shortener

import "context"

// Tx is the set of operations available inside a repository transaction.
type Tx interface {
	// FindLinkByOriginal returns the link owning an OriginalURL whose string equals original
	// exactly, or ErrNotFound. OriginalURLs without a link are never matched.
	FindLinkByOriginal(ctx context.Context, original string) (*Link, error)
	LinkExists(ctx context.Context, identifier string) (bool, error)
	CreateOriginalURL(ctx context.Context, original string) (*OriginalURL, error)
	// CreateLink persists link. A duplicate identifier returns ErrLabelTaken and leaves the
	// transaction usable.
	CreateLink(ctx context.Context, link *Link) error
}

// Repository persists OriginalURLs and Links.
type Repository interface {
	// WithinTx runs fn in a single unit of work. Writes made through tx become visible only
	// when fn returns nil.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetLink(ctx context.Context, identifier string) (*Link, error)
}

// WordFilter flags identifiers that must not be handed out.
type WordFilter interface {
	Contains(word string) bool
}
