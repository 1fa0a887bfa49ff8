package store

import (
	"context"
	"fmt"
)

// CreateSchema creates the feed tables when they do not exist yet. It does
// not migrate existing tables.
func (s *Store) CreateSchema(ctx context.Context) error {
	tables := []struct {
		model       any
		foreignKeys []string
	}{
		{model: (*Feed)(nil)},
		{
			model: (*User)(nil),
			foreignKeys: []string{
				`("last_visited_feed_id") REFERENCES "feeds" ("id") ON DELETE SET NULL`,
			},
		},
		{
			model: (*UserFeedMapping)(nil),
			foreignKeys: []string{
				`("feed_id") REFERENCES "feeds" ("id") ON DELETE CASCADE`,
				`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
			},
		},
		{
			model: (*Posting)(nil),
			foreignKeys: []string{
				`("feed_id") REFERENCES "feeds" ("id") ON DELETE CASCADE`,
			},
		},
	}

	for _, table := range tables {
		q := s.db.NewCreateTable().Model(table.model).IfNotExists()
		for _, fk := range table.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", table.model, s.classify("create schema", err))
		}
	}

	if _, err := s.db.NewCreateIndex().
		Model((*Posting)(nil)).
		Index("postings_feed_id_id_idx").
		Column("feed_id", "id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create postings index: %w", s.classify("create schema", err))
	}

	s.logger.InfoContext(ctx, "Feed schema is ready")
	return nil
}
