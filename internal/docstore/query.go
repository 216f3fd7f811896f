package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Document is one result of a collection query.
type Document struct {
	ID   string
	Data map[string]any
}

// Filter restricts a query to documents whose field compares against
// Value. Comparison is textual, which is sufficient for the enum and
// RFC 3339 timestamp fields stored here.
type Filter struct {
	Field string
	Op    string // one of == != > >= < <=
	Value string
}

// Order names the field a query is sorted by.
type Order struct {
	Field string
	Desc  bool
}

var sqlOps = map[string]string{
	"==": "=",
	"!=": "<>",
	">":  ">",
	">=": ">=",
	"<":  "<",
	"<=": "<=",
}

// Query runs a one-shot query over a collection, returning its documents
// in the requested order (insertion order when order is nil).
func (s *Store) Query(ctx context.Context, collection string, filters []Filter, order *Order) ([]Document, error) {
	if err := ValidateCollectionPath(collection); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	sql := "SELECT doc_id, data FROM documents WHERE collection = $1"
	args := []any{collection}

	for _, f := range filters {
		op, ok := sqlOps[f.Op]
		if !ok {
			return nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}

		args = append(args, f.Field, f.Value)
		sql += " AND data->>$" + strconv.Itoa(len(args)-1) + " " + op + " $" + strconv.Itoa(len(args))
	}

	if order != nil {
		args = append(args, order.Field)
		sql += " ORDER BY data->>$" + strconv.Itoa(len(args))
		if order.Desc {
			sql += " DESC"
		}
	} else {
		sql += " ORDER BY created_at"
	}

	rows, err := s.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, mapStoreError(err))
	}
	defer rows.Close()

	var docs []Document

	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", collection, err)
		}

		data := make(map[string]any)
		if err := json.Unmarshal(raw, &data); err != nil {
			s.Log.WithError(err).WithField("path", collection+"/"+id).Warn("skipping undecodable document")
			continue
		}

		docs = append(docs, Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", collection, mapStoreError(err))
	}

	return docs, nil
}
